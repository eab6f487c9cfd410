package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	UserToken    repos.UserTokenRepo
	Organization repos.OrganizationRepo
	Team         repos.TeamRepo
	Persona      repos.PersonaRepo
	Scenario     repos.ScenarioRepo
	Recording    repos.RecordingRepo
	Comment      repos.CommentRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		UserToken:    repos.NewUserTokenRepo(db, log),
		Organization: repos.NewOrganizationRepo(db, log),
		Team:         repos.NewTeamRepo(db, log),
		Persona:      repos.NewPersonaRepo(db, log),
		Scenario:     repos.NewScenarioRepo(db, log),
		Recording:    repos.NewRecordingRepo(db, log),
		Comment:      repos.NewCommentRepo(db, log),
	}
}
