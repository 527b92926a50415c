package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/annotate"
)

var verifyLimit int

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Annotate stored rows with sponsorship-form detection marks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		v := annotate.NewFormVerifier(
			newFetcher(cfg),
			store,
			cfg.Keywords.FormKeywords,
			cfg.Batch.Concurrency,
			cfg.Writer.WritesPerMinute,
		)
		n, err := v.Run(ctx, verifyLimit)
		if err != nil {
			return eris.Wrap(err, "verify pass")
		}
		zap.L().Info("verify: pass complete", zap.Int("rows_annotated", n))
		return nil
	},
}

func init() {
	verifyCmd.Flags().IntVar(&verifyLimit, "limit", 0, "annotate at most this many rows (0 = all)")
	rootCmd.AddCommand(verifyCmd)
}
