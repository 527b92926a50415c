package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/dedup"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one duplicate and blacklist reconciliation sweep over the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		dd := dedup.New(0, cfg.Keywords.PageBlacklist)
		removed, err := dd.Reconcile(ctx, store)
		if err != nil {
			return eris.Wrap(err, "reconcile sweep")
		}
		zap.L().Info("reconcile: sweep complete", zap.Int("rows_removed", removed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
