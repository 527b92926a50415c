// Package fetch retrieves HTML pages with per-host politeness limits and a
// process-wide registry of pages that are known to be broken.
package fetch

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// ErrPageSkipped marks a URL whose retry budget is exhausted in the
// FailedPageRegistry. It is not a fetch failure; callers move on.
var ErrPageSkipped = eris.New("fetch: page skipped, retry budget exhausted")

const maxBodyBytes = 512 * 1024

// Page is a fetched page. URL is the final URL after redirects.
type Page struct {
	URL  string
	Body string
}

// Options configures a Fetcher.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	PerHostRPS float64
	HTTPClient *http.Client // overrides Timeout when set (for testing)
}

// Fetcher fetches pages, spacing requests per host and recording failures
// in a shared FailedPageRegistry.
type Fetcher struct {
	client    *http.Client
	userAgent string
	registry  *FailedPageRegistry

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
}

// New creates a Fetcher backed by the given registry.
func New(registry *FailedPageRegistry, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PerHostRPS <= 0 {
		opts.PerHostRPS = 2
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; OutreachBot/1.0)"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		}
	}
	return &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		registry:  registry,
		limiters:  make(map[string]*rate.Limiter),
		rps:       rate.Limit(opts.PerHostRPS),
	}
}

// Registry returns the shared failed-page registry.
func (f *Fetcher) Registry() *FailedPageRegistry { return f.registry }

// FetchPage fetches a URL, retrying until the URL's budget in the registry
// runs out. Every failed attempt is recorded; a URL that arrives already
// exhausted returns ErrPageSkipped without a request.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	if f.registry.Exhausted(pageURL) {
		return nil, ErrPageSkipped
	}

	var lastErr error
	for !f.registry.Exhausted(pageURL) {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fetch: canceled")
		}

		page, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		count := f.registry.RecordFailure(pageURL)
		zap.L().Debug("fetch: page attempt failed",
			zap.String("url", pageURL),
			zap.Int("failures", count),
			zap.Error(err),
		)
	}
	return nil, eris.Wrap(lastErr, "fetch: retries exhausted")
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (*Page, error) {
	if err := f.waitHost(ctx, pageURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		err := eris.Errorf("fetch: status %d for %s", resp.StatusCode, pageURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Page{URL: finalURL, Body: body}, nil
}

// waitHost blocks on the per-host politeness limiter.
func (f *Fetcher) waitHost(ctx context.Context, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return eris.Wrapf(err, "fetch: parse url %s", pageURL)
	}

	f.mu.Lock()
	limiter, ok := f.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(f.rps, 1)
		f.limiters[u.Host] = limiter
	}
	f.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "fetch: rate limit wait")
	}
	return nil
}

// decodeBody reads at most maxBodyBytes and converts the body to UTF-8
// using the charset declared in the Content-Type header, if any.
func decodeBody(resp *http.Response) (string, error) {
	var reader io.Reader = io.LimitReader(resp.Body, maxBodyBytes)

	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		if cs, ok := params["charset"]; ok && !strings.EqualFold(cs, "utf-8") {
			if enc, err := htmlindex.Get(cs); err == nil {
				reader = transform.NewReader(reader, enc.NewDecoder())
			}
		}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", eris.Wrap(err, "fetch: read body")
	}
	return string(body), nil
}
