package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// IngestionRun records one execution of a flow (news/reddit/market) and its counts.
type IngestionRun struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Flow     string    `gorm:"column:flow;not null;index" json:"flow"`
	Category string    `gorm:"column:category;index" json:"category,omitempty"`
	Status   string    `gorm:"column:status;not null;index" json:"status"`
	Stage    string    `gorm:"column:stage;not null" json:"stage"`
	Attempts int       `gorm:"column:attempts;not null;default:0" json:"attempts"`

	Fetched  int `gorm:"column:fetched;not null;default:0" json:"fetched"`
	Inserted int `gorm:"column:inserted;not null;default:0" json:"inserted"`
	Skipped  int `gorm:"column:skipped;not null;default:0" json:"skipped"`
	Dropped  int `gorm:"column:dropped;not null;default:0" json:"dropped"`

	StagingURI string         `gorm:"column:staging_uri" json:"staging_uri,omitempty"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	ErrorKind  string         `gorm:"column:error_kind" json:"error_kind,omitempty"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`

	StartedAt  time.Time  `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (IngestionRun) TableName() string { return "ingestion_run" }

func (r *IngestionRun) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
