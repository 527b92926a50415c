package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "outreach-cli",
	Short: "Sponsorship contact discovery pipeline",
	Long:  "Resolves organization websites via search, crawls candidate contact pages, extracts emails and phone numbers, and appends deduplicated rows to a rate-limited tabular store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
