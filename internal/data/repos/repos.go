package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos/auth"
	"github.com/yungbote/nepq-coach-backend/internal/data/repos/recording"
	"github.com/yungbote/nepq-coach-backend/internal/data/repos/training"
	"github.com/yungbote/nepq-coach-backend/internal/data/repos/user"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type OrganizationRepo = user.OrganizationRepo
type TeamRepo = user.TeamRepo
type UserTokenRepo = auth.UserTokenRepo

type PersonaRepo = training.PersonaRepo
type ScenarioRepo = training.ScenarioRepo
type ScenarioFilter = training.ScenarioFilter

type RecordingRepo = recording.RecordingRepo
type RecordingFilter = recording.RecordingFilter
type ScenarioStat = recording.ScenarioStat
type UserStat = recording.UserStat
type CommentRepo = recording.CommentRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return user.NewOrganizationRepo(db, baseLog)
}
func NewTeamRepo(db *gorm.DB, baseLog *logger.Logger) TeamRepo { return user.NewTeamRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return training.NewPersonaRepo(db, baseLog)
}
func NewScenarioRepo(db *gorm.DB, baseLog *logger.Logger) ScenarioRepo {
	return training.NewScenarioRepo(db, baseLog)
}

func NewRecordingRepo(db *gorm.DB, baseLog *logger.Logger) RecordingRepo {
	return recording.NewRecordingRepo(db, baseLog)
}
func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return recording.NewCommentRepo(db, baseLog)
}
