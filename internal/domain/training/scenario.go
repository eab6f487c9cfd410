package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryPhone  Category = "phone"
	CategoryZoom   Category = "zoom"
	CategoryInHome Category = "in_home"
)

func (c Category) Valid() bool {
	return c == CategoryPhone || c == CategoryZoom || c == CategoryInHome
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyBeginner || d == DifficultyIntermediate || d == DifficultyAdvanced
}

// Scenario is a practice setup: who the prospect is, which stages the agent
// should work through, and how long they have.
type Scenario struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string         `gorm:"not null;column:name" json:"name"`
	Category       Category       `gorm:"not null;column:category;index" json:"category"`
	PersonaID      uuid.UUID      `gorm:"type:uuid;index;not null;column:persona_id" json:"personaId"`
	Persona        *Persona       `gorm:"foreignKey:PersonaID;references:ID" json:"persona,omitempty"`
	NEPQStages     datatypes.JSON `gorm:"column:nepq_stages" json:"nepqStages"`
	TimeLimit      int            `gorm:"not null;default:0;column:time_limit" json:"timeLimit"`
	Difficulty     Difficulty     `gorm:"not null;column:difficulty;index" json:"difficulty"`
	Objectives     datatypes.JSON `gorm:"column:objectives" json:"objectives"`
	Context        string         `gorm:"column:context" json:"context"`
	IsActive       bool           `gorm:"not null;column:is_active" json:"isActive"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;index;not null;column:organization_id" json:"orgId"`

	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Scenario) TableName() string { return "scenario" }

func (s *Scenario) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
