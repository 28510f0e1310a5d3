package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutomationRun struct {
	ID string `gorm:"primaryKey;type:text"`

	JobID string        `gorm:"type:text;not null;index"`
	Job   AutomationJob `gorm:"foreignKey:JobID;references:ID;constraint:OnDelete:CASCADE"`

	// queued|running|succeeded|failed|canceled|timed_out|skipped
	Status string `gorm:"type:text;not null;index"`

	// UTC unix seconds
	ScheduledFor int64  `gorm:"not null;index"`
	StartedAt    *int64 `gorm:""`
	FinishedAt   *int64 `gorm:""`

	Error         *string `gorm:"type:text"`
	ResultSummary *string `gorm:"type:text"`

	CreatedAt int64 `gorm:"autoCreateTime"`
	UpdatedAt int64 `gorm:"autoUpdateTime"`
}

func (r *AutomationRun) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
