package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Plan string

const (
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// OrganizationSettings is stored as JSON on the organization row.
type OrganizationSettings struct {
	RetentionDays          int  `json:"retentionDays" yaml:"retentionDays"`
	AllowRecordingDownload bool `json:"allowRecordingDownload" yaml:"allowRecordingDownload"`
	EnableRealTimeCoaching bool `json:"enableRealTimeCoaching" yaml:"enableRealTimeCoaching"`
}

type Organization struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"not null;column:name" json:"name"`
	Plan      Plan           `gorm:"not null;default:starter;column:plan" json:"plan"`
	Seats     int            `gorm:"not null;default:0;column:seats" json:"seats"`
	UsedSeats int            `gorm:"not null;default:0;column:used_seats" json:"usedSeats"`
	Settings  datatypes.JSON `gorm:"column:settings" json:"settings"`

	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Organization) TableName() string { return "organization" }

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type Team struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string     `gorm:"not null;column:name" json:"name"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null;column:organization_id" json:"orgId"`
	CoachID        *uuid.UUID `gorm:"type:uuid;index;column:coach_id" json:"coachId,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Team) TableName() string { return "team" }

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
