// Package search resolves queries to result URLs through an ordered chain
// of search engine transports.
package search

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Result is a single search hit.
type Result struct {
	Title string
	URL   string
}

// Transport is one search engine integration.
type Transport interface {
	Name() string
	// Search returns up to maxResults hits for the query; 0 means no cap.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Chain tries transports in priority order, returning the first non-empty
// result set.
type Chain struct {
	transports []Transport
}

// NewChain creates a Chain. Transports are tried in the order given.
func NewChain(transports ...Transport) *Chain {
	return &Chain{transports: transports}
}

// Search runs the query through the chain. An empty result set with a nil
// error means every transport answered but none had hits.
func (c *Chain) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	var lastErr error
	for _, t := range c.transports {
		results, err := t.Search(ctx, query, maxResults)
		if err != nil {
			zap.L().Debug("search: transport failed, trying next",
				zap.String("transport", t.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
		zap.L().Debug("search: transport returned no results",
			zap.String("transport", t.Name()),
			zap.String("query", query),
		)
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "search: all transports failed")
	}
	return nil, nil
}
