// Package integrationcmd manages chat-gateway integrations: provisioning,
// key rotation and masked listings. Raw credentials print exactly once.
package integrationcmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/moltboard/moltbot/cmd/moltbot/cmdutil"
	"github.com/moltboard/moltbot/integration"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration",
		Short: "Manage chat-gateway integrations",
	}
	cmd.PersistentFlags().String("tenant", "", "Tenant id")
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newRotateCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

func serviceFromCmd(cmd *cobra.Command) (*integration.Service, error) {
	_, st, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return nil, err
	}
	return integration.NewService(st, slog.Default())
}

func newCreateCmd() *cobra.Command {
	var name, url, user string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Provision an integration and print its one-time credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			svc, err := serviceFromCmd(cmd)
			if err != nil {
				return err
			}
			integ, creds, err := svc.Create(cmd.Context(), tenant, user, name, url)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "integration id: %s\n", integ.ID)
			fmt.Fprintf(out, "api key:        %s\n", creds.APIKey)
			fmt.Fprintf(out, "webhook secret: %s\n", creds.WebhookSecret)
			fmt.Fprintln(out, "store these now; they are not shown again")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&url, "url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&user, "user", "", "Owning user id")
	return cmd
}

func newRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <integration-id>",
		Short: "Rotate an integration's API key and webhook secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := serviceFromCmd(cmd)
			if err != nil {
				return err
			}
			creds, err := svc.Regenerate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api key:        %s\n", creds.APIKey)
			fmt.Fprintf(out, "webhook secret: %s\n", creds.WebhookSecret)
			fmt.Fprintln(out, "the previous credentials no longer work")
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List a tenant's integrations with masked keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			svc, err := serviceFromCmd(cmd)
			if err != nil {
				return err
			}
			views, err := svc.List(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range views {
				fmt.Fprintf(out, "%s  %-20s  %s  %s  sent=%d\n", v.ID, v.Name, v.MaskedKey, v.Status, v.MessagesSent)
			}
			return nil
		},
	}
}
