package domain

import (
	"github.com/yungbote/nepq-coach-backend/internal/domain/auth"
	"github.com/yungbote/nepq-coach-backend/internal/domain/recording"
	"github.com/yungbote/nepq-coach-backend/internal/domain/training"
	"github.com/yungbote/nepq-coach-backend/internal/domain/user"
)

type Role = user.Role

const (
	RoleAdmin = user.RoleAdmin
	RoleCoach = user.RoleCoach
	RoleAgent = user.RoleAgent
)

type Plan = user.Plan

const (
	PlanStarter      = user.PlanStarter
	PlanProfessional = user.PlanProfessional
	PlanEnterprise   = user.PlanEnterprise
)

type Organization = user.Organization
type OrganizationSettings = user.OrganizationSettings
type Team = user.Team
type User = user.User

type UserToken = auth.UserToken

type Category = training.Category
type Difficulty = training.Difficulty

const (
	CategoryPhone  = training.CategoryPhone
	CategoryZoom   = training.CategoryZoom
	CategoryInHome = training.CategoryInHome

	DifficultyBeginner     = training.DifficultyBeginner
	DifficultyIntermediate = training.DifficultyIntermediate
	DifficultyAdvanced     = training.DifficultyAdvanced
)

type Persona = training.Persona
type PersonaTraits = training.PersonaTraits
type Scenario = training.Scenario

type Recording = recording.Recording
type RecordingMetadata = recording.RecordingMetadata
type Comment = recording.Comment
type CommentType = recording.CommentType

const (
	CommentCoaching    = recording.CommentCoaching
	CommentQuestion    = recording.CommentQuestion
	CommentPraise      = recording.CommentPraise
	CommentImprovement = recording.CommentImprovement
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&Organization{},
		&Team{},
		&User{},
		&UserToken{},
		&Persona{},
		&Scenario{},
		&Recording{},
		&Comment{},
	}
}
