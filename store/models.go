package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Run statuses.
const (
	StatusPlanned   = "planned"
	StatusSubmitted = "submitted"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
)

// BaseModel contains common fields for all store models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// BeforeCreate generates a UUID if not already set.
func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// WorkflowRun records one planned workflow run.
type WorkflowRun struct {
	BaseModel

	// RunID is the epoch-derived workflow identifier, unique per run.
	RunID string `gorm:"uniqueIndex;size:64"`
	// Name is the human-readable run name.
	Name string `gorm:"index;size:128"`
	// Document is the path of the workflow document that was planned.
	Document string
	// Stages is the number of stages in the document.
	Stages int
	// Target is the execution site the run was planned for.
	Target string
	// Broker is the submission backend the run was handed to.
	Broker string
	// Status is one of planned, submitted, complete, failed.
	Status string `gorm:"index;size:32"`
	// RunDir is the local run directory holding generated fragments.
	RunDir string
	// JobDir is the remote per-run job directory.
	JobDir string
	// Detail carries broker output or an error summary.
	Detail string
}
