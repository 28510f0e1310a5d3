// Package webhookcmd holds the manual delivery checks for chat-gateway
// integrations.
package webhookcmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/moltboard/moltbot/cmd/moltbot/cmdutil"
	"github.com/moltboard/moltbot/webhook"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage outbound webhook delivery",
	}
	cmd.AddCommand(newTestCmd())
	return cmd
}

func newTestCmd() *cobra.Command {
	var integrationID string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a signed test message to an integration's endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if integrationID == "" {
				return fmt.Errorf("--integration is required")
			}

			_, st, err := cmdutil.OpenStore(cmd)
			if err != nil {
				return err
			}
			integ, err := st.FindIntegration(cmd.Context(), integrationID)
			if err != nil {
				return err
			}

			dispatcher, err := webhook.NewDispatcher(st)
			if err != nil {
				return err
			}
			result := dispatcher.Send(cmd.Context(), *integ, webhook.OutboundMessage{
				ID:        uuid.NewString(),
				Content:   "Moltboard connection test",
				Author:    "system",
				CreatedAt: time.Now().UTC(),
			})

			if !result.Success {
				return fmt.Errorf("delivery failed: %s", result.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered to %s in %dms\n", integ.WebhookURL, result.LatencyMs)
			return nil
		},
	}

	cmd.Flags().StringVar(&integrationID, "integration", "", "Integration id to test")
	return cmd
}
