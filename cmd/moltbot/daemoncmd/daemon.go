// Package daemoncmd runs the long-lived automation process: it owns the
// scheduler, registers the job kinds and blocks until a shutdown signal.
package daemoncmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/moltboard/moltbot/cmd/moltbot/cmdutil"
	"github.com/moltboard/moltbot/db/models"
	"github.com/moltboard/moltbot/jobs"
	"github.com/moltboard/moltbot/scheduler"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the automation scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, st, err := cmdutil.OpenStore(cmd)
			if err != nil {
				return err
			}

			log := slog.Default()
			runner, err := cmdutil.NewJobsRunner(st, log)
			if err != nil {
				return err
			}

			if err := ensureDefaultJobs(gdb); err != nil {
				return err
			}

			schedCfg := scheduler.DefaultConfig()
			schedCfg.Enabled = true
			schedCfg.Concurrency = viper.GetInt("scheduler.concurrency")
			schedCfg.Tick = viper.GetDuration("scheduler.tick")

			sched, err := scheduler.New(gdb, schedCfg, log)
			if err != nil {
				return err
			}
			if err := registerJobKinds(sched, runner); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := sched.Start(ctx); err != nil {
				return err
			}
			log.Info("daemon_started")
			sched.Wait()
			log.Info("daemon_stopped")
			return nil
		},
	}
	return cmd
}

func registerJobKinds(sched *scheduler.Scheduler, runner *jobs.Runner) error {
	if err := sched.Register(models.JobKindStuckScan, func(ctx context.Context) (string, error) {
		report := runner.DetectAndAlertStuckTasks(ctx)
		summary := fmt.Sprintf("checked %d, stuck %d, alerts %d", report.TasksChecked, report.StuckFound, report.AlertsSent)
		if !report.Success {
			return summary, fmt.Errorf("%s", strings.Join(report.Errors, "; "))
		}
		return summary, nil
	}); err != nil {
		return err
	}
	return sched.Register(models.JobKindDailyBriefing, func(ctx context.Context) (string, error) {
		report := runner.GenerateDailyBriefings(ctx)
		summary := fmt.Sprintf("boards %d, posted %d", report.BoardsProcessed, report.MessagesPosted)
		if !report.Success {
			return summary, fmt.Errorf("%s", strings.Join(report.Errors, "; "))
		}
		return summary, nil
	})
}

// ensureDefaultJobs seeds the two built-in automation jobs on first start.
// Existing rows are left alone so operators can tune or disable them.
func ensureDefaultJobs(gdb *gorm.DB) error {
	interval := int64(viper.GetInt("jobs.stuck_scan_interval_seconds"))
	if interval <= 0 {
		interval = 3600
	}
	dailyAt := strings.TrimSpace(viper.GetString("jobs.briefing_daily_at"))
	if dailyAt == "" {
		dailyAt = "08:00"
	}

	defaults := []models.AutomationJob{
		{
			Name:            "stuck-task-scan",
			Kind:            models.JobKindStuckScan,
			Enabled:         true,
			IntervalSeconds: &interval,
		},
		{
			Name:    "daily-briefing",
			Kind:    models.JobKindDailyBriefing,
			Enabled: true,
			DailyAt: &dailyAt,
		},
	}
	for _, job := range defaults {
		var count int64
		if err := gdb.Model(&models.AutomationJob{}).Where("name = ?", job.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := gdb.Create(&job).Error; err != nil {
			return err
		}
	}
	return nil
}
