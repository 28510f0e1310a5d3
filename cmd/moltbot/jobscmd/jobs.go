// Package jobscmd exposes the automation jobs as one-shot commands for
// operators and cron-style external schedulers.
package jobscmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/moltboard/moltbot/cmd/moltbot/cmdutil"
)

func NewScan() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run the stuck-task scan once and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := cmdutil.OpenStore(cmd)
			if err != nil {
				return err
			}
			runner, err := cmdutil.NewJobsRunner(st, slog.Default())
			if err != nil {
				return err
			}

			report := runner.DetectAndAlertStuckTasks(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "checked: %d\nstuck: %d\nalerts sent: %d\n",
				report.TasksChecked, report.StuckFound, report.AlertsSent)
			for _, e := range report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
			}
			if !report.Success {
				return fmt.Errorf("scan finished with %d errors", len(report.Errors))
			}
			return nil
		},
	}
}

func NewBriefing() *cobra.Command {
	return &cobra.Command{
		Use:   "briefing",
		Short: "Generate daily briefings once and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := cmdutil.OpenStore(cmd)
			if err != nil {
				return err
			}
			runner, err := cmdutil.NewJobsRunner(st, slog.Default())
			if err != nil {
				return err
			}

			report := runner.GenerateDailyBriefings(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "boards: %d\nposted: %d\n",
				report.BoardsProcessed, report.MessagesPosted)
			for _, e := range report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
			}
			if !report.Success {
				return fmt.Errorf("briefing finished with %d errors", len(report.Errors))
			}
			return nil
		},
	}
}
