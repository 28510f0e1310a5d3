// Package chatcmd feeds a single message through the chat pipeline. Useful
// for local demos and for checking what the intent detector makes of a phrase
// without a gateway in front.
package chatcmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/moltboard/moltbot/actor"
	"github.com/moltboard/moltbot/bot"
	"github.com/moltboard/moltbot/cmd/moltbot/cmdutil"
	"github.com/moltboard/moltbot/command"
)

func New() *cobra.Command {
	var boardID, userID string

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message through the bot pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(args[0])
			if boardID == "" {
				return fmt.Errorf("--board is required")
			}

			_, st, err := cmdutil.OpenStore(cmd)
			if err != nil {
				return err
			}
			log := slog.Default()
			author := actor.Human(userID)

			if command.LooksLikeCommand(text) {
				executor, err := bot.NewCommandExecutor(st, cmdutil.BotConfigFromViper(), log, time.Now)
				if err != nil {
					return err
				}
				reply, err := executor.Execute(cmd.Context(), boardID, command.Parse(text), author)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			}

			handler, err := bot.NewHandler(st, cmdutil.BotConfigFromViper(), bot.WithLogger(log))
			if err != nil {
				return err
			}
			result, err := handler.HandleChatMessage(cmd.Context(), text, boardID, author)
			if err != nil {
				return err
			}
			if result.TaskCreated {
				fmt.Fprintf(cmd.OutOrStdout(), "task created: %s\n", result.TaskID)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no task created")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&boardID, "board", "", "Board id the message belongs to")
	cmd.Flags().StringVar(&userID, "user", "cli", "User id of the message author")
	return cmd
}
