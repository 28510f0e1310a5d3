// Package seedcmd loads demo boards from a YAML fixture.
package seedcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/moltboard/moltbot/cmd/moltbot/cmdutil"
	"github.com/moltboard/moltbot/internal/seed"
)

func New() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load boards and tasks from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			fixture, err := seed.Load(file)
			if err != nil {
				return err
			}
			_, st, err := cmdutil.OpenStore(cmd)
			if err != nil {
				return err
			}
			boards, tasks, err := fixture.Apply(cmd.Context(), st, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d boards, %d tasks\n", boards, tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Fixture file path")
	return cmd
}
