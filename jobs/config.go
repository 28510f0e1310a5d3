package jobs

import "time"

// Config carries the scan thresholds. Everything here is injected so tests
// and non-production deployments can exercise different values
// deterministically; nothing branches on the runtime environment.
type Config struct {
	// StuckThresholdDays is the inclusive staleness boundary: a task idle for
	// exactly this many days is flagged. Production default 3; staging
	// deployments typically run 1.
	StuckThresholdDays int

	// MaxAlertsPerBoard caps stuck alerts per board per run.
	MaxAlertsPerBoard int

	// AlertDedupeWindow is how far back the idempotence check looks for an
	// identical alert before re-sending.
	AlertDedupeWindow time.Duration

	// InProgressColumnIDs are matched by exact id; any column id containing
	// "progress" also counts.
	InProgressColumnIDs []string

	// Briefing composition limits.
	StuckLimit        int
	FocusLimit        int
	SuggestionLimit   int
	InProgressSoftCap int
	DueSoonDays       int
}

func DefaultConfig() Config {
	return Config{
		StuckThresholdDays:  3,
		MaxAlertsPerBoard:   3,
		AlertDedupeWindow:   24 * time.Hour,
		InProgressColumnIDs: []string{"in_progress", "in-progress", "doing", "wip"},
		StuckLimit:          3,
		FocusLimit:          3,
		SuggestionLimit:     2,
		InProgressSoftCap:   5,
		DueSoonDays:         3,
	}
}
