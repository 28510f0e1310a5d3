// Package rootcmd assembles the moltbot command tree and owns config loading:
// flags override MOLTBOT_* environment variables, which override the config
// file at ~/.moltbot/config.yaml.
package rootcmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moltboard/moltbot/cmd/moltbot/chatcmd"
	"github.com/moltboard/moltbot/cmd/moltbot/daemoncmd"
	"github.com/moltboard/moltbot/cmd/moltbot/integrationcmd"
	"github.com/moltboard/moltbot/cmd/moltbot/jobscmd"
	"github.com/moltboard/moltbot/cmd/moltbot/seedcmd"
	"github.com/moltboard/moltbot/cmd/moltbot/webhookcmd"
	"github.com/moltboard/moltbot/internal/logutil"
)

func New() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "moltbot",
		Short:         "Moltboard conversational task assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(configFile); err != nil {
				return err
			}
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.moltbot/config.yaml)")
	cmd.PersistentFlags().String("db-dsn", "", "SQLite DSN (default resolves ~/.moltbot/moltbot.sqlite)")

	cmd.AddCommand(daemoncmd.New())
	cmd.AddCommand(jobscmd.NewScan())
	cmd.AddCommand(jobscmd.NewBriefing())
	cmd.AddCommand(chatcmd.New())
	cmd.AddCommand(webhookcmd.New())
	cmd.AddCommand(integrationcmd.New())
	cmd.AddCommand(seedcmd.New())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix("MOLTBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(filepath.Join(home, ".moltbot"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && (errors.As(err, &notFound) || os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("scheduler.concurrency", 1)
	viper.SetDefault("scheduler.tick", "1s")

	viper.SetDefault("jobs.stuck_threshold_days", 3)
	viper.SetDefault("jobs.max_alerts_per_board", 3)
	viper.SetDefault("jobs.stuck_scan_interval_seconds", 3600)
	viper.SetDefault("jobs.briefing_daily_at", "08:00")

	viper.SetDefault("bot.min_confidence", "medium")
}
