package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleCoach Role = "COACH"
	RoleAgent Role = "AGENT"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCoach || r == RoleAgent
}

// CanManageTraining reports whether the role may author scenarios and
// review other users' recordings.
func (r Role) CanManageTraining() bool {
	return r == RoleAdmin || r == RoleCoach
}

type User struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string        `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password       string        `gorm:"not null;column:password" json:"-"`
	FirstName      string        `gorm:"not null;column:first_name" json:"firstName"`
	LastName       string        `gorm:"not null;column:last_name" json:"lastName"`
	Role           Role          `gorm:"not null;default:AGENT;column:role" json:"role"`
	OrganizationID *uuid.UUID    `gorm:"type:uuid;index;column:organization_id" json:"orgId,omitempty"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID;references:ID" json:"organization,omitempty"`
	TeamID         *uuid.UUID    `gorm:"type:uuid;index;column:team_id" json:"teamId,omitempty"`
	Team           *Team         `gorm:"foreignKey:TeamID;references:ID" json:"team,omitempty"`
	AvatarColor    string        `gorm:"column:avatar_color" json:"avatarColor,omitempty"`
	LastActiveAt   *time.Time    `gorm:"column:last_active_at" json:"lastActive,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
