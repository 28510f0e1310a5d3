package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/moltboard/moltbot/db/models"
)

// nextRunAt computes the next fire time strictly after afterUnix. Jobs carry
// either a daily wall-clock time (UTC) or a fixed interval.
func nextRunAt(job models.AutomationJob, afterUnix int64) (int64, error) {
	after := time.Unix(afterUnix, 0).UTC()

	if job.DailyAt != nil && strings.TrimSpace(*job.DailyAt) != "" {
		hour, minute, err := parseDailyAt(*job.DailyAt)
		if err != nil {
			return 0, err
		}
		next := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, time.UTC)
		if !next.After(after) {
			next = next.Add(24 * time.Hour)
		}
		return next.Unix(), nil
	}
	if job.IntervalSeconds != nil && *job.IntervalSeconds > 0 {
		return after.Add(time.Duration(*job.IntervalSeconds) * time.Second).Unix(), nil
	}
	return 0, fmt.Errorf("job has neither daily_at nor interval_seconds")
}

// parseDailyAt accepts "HH:MM" on a 24h clock.
func parseDailyAt(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	var parsed time.Time
	parsed, err = time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid daily_at %q: want HH:MM", s)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
