package search

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/pkg/duckduckgo"
)

// HTMLTransport searches via the DuckDuckGo HTML results endpoint. The
// endpoint rate-limits scrapers aggressively, so a circuit breaker trips
// after repeated failures and lets the chain fall through to the next
// transport instead of hammering it.
type HTMLTransport struct {
	client  duckduckgo.Client
	breaker *circuitBreaker
}

// NewHTMLTransport wraps a DuckDuckGo client as the primary transport.
// Three consecutive failures within 30s open the circuit for 60s.
func NewHTMLTransport(client duckduckgo.Client) *HTMLTransport {
	return &HTMLTransport{
		client:  client,
		breaker: newCircuitBreaker("duckduckgo-html", 3, 30*time.Second, 60*time.Second),
	}
}

func (t *HTMLTransport) Name() string { return "duckduckgo-html" }

func (t *HTMLTransport) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if t.breaker.isOpen() {
		return nil, eris.New("duckduckgo-html: circuit breaker open")
	}
	hits, err := t.client.SearchHTML(ctx, query, maxResults)
	if err != nil {
		t.breaker.recordFailure()
		return nil, err
	}
	t.breaker.recordSuccess()
	return fromHits(hits), nil
}

// InstantTransport searches via the DuckDuckGo Instant Answer API. It
// rarely returns organic web results but answers reliably, which makes it
// a reasonable fallback for well-known organization names.
type InstantTransport struct {
	client duckduckgo.Client
}

// NewInstantTransport wraps a DuckDuckGo client as a fallback transport.
func NewInstantTransport(client duckduckgo.Client) *InstantTransport {
	return &InstantTransport{client: client}
}

func (t *InstantTransport) Name() string { return "duckduckgo-instant" }

func (t *InstantTransport) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	hits, err := t.client.SearchInstant(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	return fromHits(hits), nil
}

func fromHits(hits []duckduckgo.Result) []Result {
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{Title: h.Title, URL: h.URL})
	}
	return results
}
