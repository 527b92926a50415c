package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/dedup"
	"github.com/sells-group/outreach-cli/internal/discover"
	"github.com/sells-group/outreach-cli/internal/input"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/resolver"
	"github.com/sells-group/outreach-cli/internal/search"
	"github.com/sells-group/outreach-cli/internal/writer"
	"github.com/sells-group/outreach-cli/pkg/duckduckgo"
)

var (
	runInput       string
	runOutput      string
	runLimit       int
	runConcurrency int
	runDeepen      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover and store contact information for a list of organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		orgs, deepen, err := loadOrganizations()
		if err != nil {
			return err
		}
		if runLimit > 0 && len(orgs) > runLimit {
			orgs = orgs[:runLimit]
		}
		if len(orgs) == 0 {
			return eris.New("run: no organizations to process")
		}

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		dd := dedup.New(0, cfg.Keywords.PageBlacklist)
		if err := dd.Preload(ctx, store); err != nil {
			return eris.Wrap(err, "preload dedup state")
		}

		fetcher := newFetcher(cfg)

		ddg := duckduckgo.NewClient(
			duckduckgo.WithHTMLBaseURL(cfg.Search.HTMLBaseURL),
			duckduckgo.WithAPIBaseURL(cfg.Search.APIBaseURL),
			duckduckgo.WithUserAgent(cfg.Crawl.UserAgent),
		)
		chain := search.NewChain(
			search.NewHTMLTransport(ddg),
			search.NewInstantTransport(ddg),
		)
		res := resolver.New(chain, resolver.Options{
			QueryTemplates:   cfg.Keywords.QueryTemplates,
			MaxResults:       cfg.Search.MaxResults,
			RequireNameMatch: cfg.Crawl.RequireNameMatch,
		})

		probe := discover.NewSitemapProbe(
			time.Duration(cfg.Crawl.SitemapTimeoutSecs)*time.Second,
			cfg.Crawl.UserAgent,
		)
		disc := discover.New(fetcher, probe, discover.Options{
			MaxPages:     cfg.Crawl.MaxPages,
			LinkKeywords: cfg.Keywords.LinkKeywords,
			Blacklist:    cfg.Keywords.PageBlacklist,
			Allowlist:    cfg.Keywords.PageAllowlist,
		})

		w := writer.New(store, writer.Options{
			WritesPerMinute: cfg.Writer.WritesPerMinute,
			MaxAttempts:     cfg.Writer.MaxAttempts,
			RetryDelay:      time.Duration(cfg.Writer.RetryDelayMS) * time.Millisecond,
			QuotaDelay:      time.Duration(cfg.Writer.QuotaDelayMS) * time.Millisecond,
		})

		concurrency := cfg.Batch.Concurrency
		if runConcurrency > 0 {
			concurrency = runConcurrency
		}
		p := pipeline.New(res, disc, fetcher, dd, w, store, pipeline.Options{
			Concurrency:    concurrency,
			ReconcileEvery: cfg.Pipeline.ReconcileEvery,
			Deepen:         deepen,
		})

		summary, err := p.Run(ctx, orgs)
		if summary != nil && runOutput != "" {
			if exportErr := pipeline.ExportCSV(runOutput, p.Records()); exportErr != nil {
				zap.L().Error("run: export failed", zap.Error(exportErr))
			}
		}
		if err != nil {
			return eris.Wrap(err, "run pipeline")
		}
		return nil
	},
}

// loadOrganizations reads the intake list: a previous output CSV in deepen
// mode, otherwise the --input CSV/XLSX.
func loadOrganizations() ([]model.Organization, bool, error) {
	if runDeepen != "" {
		orgs, err := input.ReadDeepen(runDeepen)
		if err != nil {
			return nil, false, eris.Wrap(err, "read deepen file")
		}
		return orgs, true, nil
	}
	if runInput == "" {
		return nil, false, eris.New("run: --input or --deepen is required")
	}
	orgs, err := input.ReadOrganizations(runInput)
	if err != nil {
		return nil, false, eris.Wrap(err, "read input file")
	}
	return orgs, false, nil
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "CSV or XLSX file with organization names in the first column")
	runCmd.Flags().StringVar(&runOutput, "output", "", "export written records to this CSV file")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most this many organizations (0 = all)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "overrides batch.concurrency")
	runCmd.Flags().StringVar(&runDeepen, "deepen", "", "previous output CSV to re-crawl using recorded site roots")
	rootCmd.AddCommand(runCmd)
}
