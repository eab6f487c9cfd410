package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PersonaTraits drives how a simulated prospect behaves.
type PersonaTraits struct {
	Personality             []string          `json:"personality" yaml:"personality"`
	Objections              []string          `json:"objections" yaml:"objections"`
	Triggers                []string          `json:"triggers" yaml:"triggers"`
	ResponsePatterns        map[string]string `json:"responsePatterns" yaml:"responsePatterns"`
	DecisionMakingStyle     string            `json:"decisionMakingStyle" yaml:"decisionMakingStyle"`
	CommunicationPreference string            `json:"communicationPreference" yaml:"communicationPreference"`
}

type Persona struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string         `gorm:"not null;column:name" json:"name"`
	Description    string         `gorm:"column:description" json:"description"`
	Traits         datatypes.JSON `gorm:"column:traits" json:"traits"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;index;not null;column:organization_id" json:"orgId"`

	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Persona) TableName() string { return "persona" }

func (p *Persona) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
