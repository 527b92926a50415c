package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/fetch"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/tabstore"
)

// openStore builds the configured store and makes sure the header exists.
func openStore(ctx context.Context, cfg *config.Config) (tabstore.Store, error) {
	store, err := tabstore.New(cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := tabstore.EnsureHeader(ctx, store, model.SheetHeader); err != nil {
		store.Close()
		return nil, eris.Wrap(err, "ensure header")
	}
	return store, nil
}

// newFetcher builds the shared page fetcher with a fresh failure registry.
func newFetcher(cfg *config.Config) *fetch.Fetcher {
	registry := fetch.NewFailedPageRegistry(cfg.Crawl.MaxPageRetries)
	return fetch.New(registry, fetch.Options{
		UserAgent:  cfg.Crawl.UserAgent,
		Timeout:    time.Duration(cfg.Crawl.TimeoutSecs) * time.Second,
		PerHostRPS: cfg.Crawl.PerHostRPS,
	})
}
