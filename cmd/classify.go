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

var classifyLimit int

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Annotate stored rows with email relevance labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		c := annotate.NewEmailClassifier(
			store,
			cfg.Keywords.RelevantEmail,
			cfg.Keywords.IrrelevantEmail,
			cfg.Writer.WritesPerMinute,
		)
		n, err := c.Run(ctx, classifyLimit)
		if err != nil {
			return eris.Wrap(err, "classify pass")
		}
		zap.L().Info("classify: pass complete", zap.Int("rows_labeled", n))
		return nil
	},
}

func init() {
	classifyCmd.Flags().IntVar(&classifyLimit, "limit", 0, "label at most this many rows (0 = all)")
	rootCmd.AddCommand(classifyCmd)
}
