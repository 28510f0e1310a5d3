package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity action tags.
const (
	ActionCreated         = "created"
	ActionMoved           = "moved"
	ActionCommented       = "commented"
	ActionPriorityChanged = "priority_changed"
	ActionDueChanged      = "due_changed"
	ActionCompleted       = "completed"
	ActionArchived        = "archived"
	ActionRestored        = "restored"
)

// Activity is an append-only log entry. Rows are never updated after insert;
// the newest row per task is the source of staleness computations.
type Activity struct {
	ID string `gorm:"primaryKey;type:text"`

	TaskID  string `gorm:"type:text;not null;index"`
	BoardID string `gorm:"type:text;not null;index"`

	Action string `gorm:"type:text;not null;index"`

	ActorKind string `gorm:"type:text;not null"`
	ActorUser string `gorm:"type:text"`

	// Free-form details bag (from/to/note/confidence/context).
	Details map[string]string `gorm:"serializer:json"`

	CreatedAt time.Time `gorm:"index"`
}

func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
