// Package cli is the contentpilot command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"contentpilot/config"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "contentpilot",
	Short: "Scheduled content generation pipeline",
	Long: `contentpilot researches, writes, illustrates and publishes articles from a
project backlog, on a schedule or on demand.

Examples:
  contentpilot serve                          # HTTP API, cron trigger and Kafka consumer
  contentpilot run <item-id> --owner alice    # Generate one item now
  contentpilot schedule preview --file s.yaml # Preview a schedule without a store
  contentpilot reschedule <project-id>        # Recompute a project's backlog dates`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./contentpilot.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}
