package recording

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CommentType string

const (
	CommentCoaching    CommentType = "coaching"
	CommentQuestion    CommentType = "question"
	CommentPraise      CommentType = "praise"
	CommentImprovement CommentType = "improvement"
)

func (t CommentType) Valid() bool {
	switch t {
	case CommentCoaching, CommentQuestion, CommentPraise, CommentImprovement:
		return true
	}
	return false
}

// Comment is coach or peer feedback on a recording, optionally pinned to a
// playback position and optionally a reply to another comment.
type Comment struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	RecordingID uuid.UUID   `gorm:"type:uuid;index;not null;column:recording_id" json:"recordingId"`
	UserID      uuid.UUID   `gorm:"type:uuid;index;not null;column:user_id" json:"userId"`
	ParentID    *uuid.UUID  `gorm:"type:uuid;index;column:parent_id" json:"parentId,omitempty"`
	Content     string      `gorm:"not null;column:content" json:"content"`
	Timestamp   *float64    `gorm:"column:timestamp" json:"timestamp,omitempty"`
	Type        CommentType `gorm:"not null;default:coaching;column:type" json:"type"`
	// Reactions maps an emoji to the ids of the users who reacted with it.
	Reactions datatypes.JSON `gorm:"column:reactions" json:"reactions"`

	CreatedAt time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Comment) TableName() string { return "comment" }

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
