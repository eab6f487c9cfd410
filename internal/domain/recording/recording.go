package recording

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecordingMetadata describes the capture environment.
type RecordingMetadata struct {
	DeviceInfo       string `json:"deviceInfo,omitempty"`
	BrowserInfo      string `json:"browserInfo,omitempty"`
	RecordingQuality string `json:"recordingQuality,omitempty"`
}

// Recording is the persisted form of a finished practice session. The JSON
// columns hold the nepq.Transcript, nepq.Score, nepq.Analytics and
// []nepq.Violation documents exactly as they serialize.
type Recording struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;index;not null;column:user_id" json:"userId"`
	ScenarioID   uuid.UUID      `gorm:"type:uuid;index;not null;column:scenario_id" json:"scenarioId"`
	Duration     float64        `gorm:"not null;default:0;column:duration" json:"duration"`
	AudioURL     string         `gorm:"column:audio_url" json:"audioUrl,omitempty"`
	Transcript   datatypes.JSON `gorm:"column:transcript" json:"transcript"`
	Score        datatypes.JSON `gorm:"column:score" json:"score"`
	OverallScore int            `gorm:"not null;default:0;index;column:overall_score" json:"-"`
	Analytics    datatypes.JSON `gorm:"column:analytics" json:"analytics"`
	Violations   datatypes.JSON `gorm:"column:violations" json:"violations,omitempty"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	Tags         datatypes.JSON `gorm:"column:tags" json:"tags"`
	IsBookmarked bool           `gorm:"not null;default:false;column:is_bookmarked" json:"isBookmarked"`

	// Version starts at 1; re-scoring writes a new row pointing at the old one.
	Version           int        `gorm:"not null;default:1;column:version" json:"version"`
	PreviousVersionID *uuid.UUID `gorm:"type:uuid;index;column:previous_version_id" json:"previousVersionId,omitempty"`
	SupersededByID    *uuid.UUID `gorm:"type:uuid;index;column:superseded_by_id" json:"supersededById,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Recording) TableName() string { return "recording" }

// IsLatest reports whether no newer version of this recording exists.
func (r *Recording) IsLatest() bool { return r.SupersededByID == nil }

func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	return nil
}
