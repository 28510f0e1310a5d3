// Package cmdutil holds the wiring shared by moltbot subcommands: database
// opening and jobs-runner construction from viper settings.
package cmdutil

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/moltboard/moltbot/bot"
	"github.com/moltboard/moltbot/db"
	"github.com/moltboard/moltbot/intent"
	"github.com/moltboard/moltbot/internal/configutil"
	"github.com/moltboard/moltbot/jobs"
	"github.com/moltboard/moltbot/store"
)

// OpenStore opens the configured SQLite database and wraps it in a Store.
func OpenStore(cmd *cobra.Command) (*gorm.DB, *store.Store, error) {
	cfg := db.DefaultConfig()
	cfg.DSN = configutil.FlagOrViperString(cmd, "db-dsn", "db.dsn")
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(gdb)
	if err != nil {
		return nil, nil, err
	}
	return gdb, st, nil
}

// JobsConfigFromViper maps the jobs.* settings onto the runner config,
// keeping the package defaults for anything unset.
func JobsConfigFromViper() jobs.Config {
	cfg := jobs.DefaultConfig()
	if v := viper.GetInt("jobs.stuck_threshold_days"); v > 0 {
		cfg.StuckThresholdDays = v
	}
	if v := viper.GetInt("jobs.max_alerts_per_board"); v > 0 {
		cfg.MaxAlertsPerBoard = v
	}
	if v := viper.GetDuration("jobs.alert_dedupe_window"); v > 0 {
		cfg.AlertDedupeWindow = v
	}
	if v := viper.GetStringSlice("jobs.in_progress_column_ids"); len(v) > 0 {
		cfg.InProgressColumnIDs = v
	}
	return cfg
}

// NewJobsRunner builds the runner used by both the one-shot commands and the
// daemon's scheduled jobs.
func NewJobsRunner(st *store.Store, log *slog.Logger) (*jobs.Runner, error) {
	messenger, err := bot.NewMessenger(st, log, time.Now)
	if err != nil {
		return nil, err
	}
	return jobs.NewRunner(st, messenger, JobsConfigFromViper(), jobs.WithLogger(log))
}

// BotConfigFromViper maps the bot.* settings onto the pipeline config.
func BotConfigFromViper() bot.Config {
	cfg := bot.DefaultConfig()
	if v := viper.GetString("bot.min_confidence"); v != "" {
		cfg.MinConfidence = intent.Confidence(v)
	}
	if v := viper.GetString("bot.fallback_column_id"); v != "" {
		cfg.FallbackColumnID = v
	}
	return cfg
}
