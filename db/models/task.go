package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task priority tiers, highest first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type Task struct {
	ID string `gorm:"primaryKey;type:text"`

	BoardID  string `gorm:"type:text;not null;index"`
	ColumnID string `gorm:"type:text;not null;index"`

	Title       string `gorm:"type:text;not null"`
	Description string `gorm:"type:text"`

	// Dense per-(board, column) sequence. Unique and contiguous after any
	// reorder; MoveTask restores the invariant within its transaction.
	SortOrder int `gorm:"not null;default:0;index"`

	Labels    []string        `gorm:"serializer:json"`
	Priority  string          `gorm:"type:text"`
	DueAt     *time.Time      `gorm:"index"`
	Assignee  string          `gorm:"type:text"`
	Checklist []ChecklistItem `gorm:"serializer:json"`

	CreatedByKind string `gorm:"type:text;not null"`
	CreatedByUser string `gorm:"type:text"`

	Archived   bool `gorm:"not null;default:0;index"`
	ArchivedAt *time.Time
	ArchivedBy string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
