package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Automation job kinds dispatched by the scheduler.
const (
	JobKindStuckScan     = "stuck_scan"
	JobKindDailyBriefing = "daily_briefing"
)

type AutomationJob struct {
	ID string `gorm:"primaryKey;type:text"`

	Name    string `gorm:"type:text;not null;uniqueIndex"`
	Kind    string `gorm:"type:text;not null"`
	Enabled bool   `gorm:"not null;default:1"`

	// Exactly one of DailyAt ("HH:MM", UTC) or IntervalSeconds should be set.
	DailyAt         *string `gorm:"type:text"`
	IntervalSeconds *int64  `gorm:""`

	// If true, disable the job after its next scheduled enqueue.
	RunOnce bool `gorm:"not null;default:0"`

	// Per-run timeout override (seconds). If nil/<=0, the scheduler default applies.
	TimeoutSeconds *int64 `gorm:""`

	// Only "forbid" is supported: a due run is skipped while a prior run is
	// still in flight.
	OverlapPolicy string `gorm:"type:text;not null;default:'forbid'"`

	// Derived schedule state (UTC unix seconds).
	LastRunAt *int64 `gorm:""`
	NextRunAt *int64 `gorm:"index"`

	CreatedAt int64 `gorm:"autoCreateTime"`
	UpdatedAt int64 `gorm:"autoUpdateTime"`
}

func (j *AutomationJob) BeforeCreate(_ *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
