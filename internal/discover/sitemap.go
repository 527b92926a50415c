package discover

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// sitemapPaths are probed in order. robots.txt is last: it is the most
// likely to exist but only points at a sitemap indirectly.
var sitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap",
	"/sitemap.php",
	"/robots.txt",
}

const maxProbeBytes = 256 * 1024

// SitemapProbe checks well-known sitemap locations with short timeouts.
type SitemapProbe struct {
	client    *http.Client
	userAgent string
	retry     resilience.RetryConfig
}

// NewSitemapProbe creates a probe with its own short-timeout client.
func NewSitemapProbe(timeout time.Duration, userAgent string) *SitemapProbe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SitemapProbe{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     time.Second,
			OnRetry:        resilience.RetryLogger("discover", "sitemap probe"),
		},
	}
}

// Find returns a sitemap URL for the site, or "" when none is found.
// Absence of a sitemap is not a failure.
func (p *SitemapProbe) Find(ctx context.Context, siteRoot string) string {
	for _, path := range sitemapPaths {
		probeURL, err := url.JoinPath(siteRoot, path)
		if err != nil {
			continue
		}

		body, ok := p.get(ctx, probeURL)
		if !ok {
			continue
		}

		if path == "/robots.txt" {
			if loc := sitemapFromRobots(body); loc != "" {
				zap.L().Debug("discover: sitemap from robots.txt",
					zap.String("site_root", siteRoot),
					zap.String("sitemap", loc),
				)
				return loc
			}
			continue
		}

		if strings.Contains(body, "</urlset>") || strings.Contains(body, "<sitemapindex") {
			zap.L().Debug("discover: sitemap found",
				zap.String("site_root", siteRoot),
				zap.String("sitemap", probeURL),
			)
			return probeURL
		}
	}
	return ""
}

// get fetches one probe URL, retrying transient failures once. A missing
// or unreadable location reports not-ok, never an error to the caller.
func (p *SitemapProbe) get(ctx context.Context, probeURL string) (string, bool) {
	body, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.getOnce(ctx, probeURL)
	})
	if err != nil {
		return "", false
	}
	return body, true
}

func (p *SitemapProbe) getOnce(ctx context.Context, probeURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "discover: create probe request")
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "discover: probe request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("discover: probe status %d for %s", resp.StatusCode, probeURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		return "", eris.Wrap(err, "discover: read probe body")
	}
	return string(body), nil
}

// sitemapFromRobots returns the value of the first "sitemap:" line,
// case-insensitive.
func sitemapFromRobots(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 8 && strings.EqualFold(line[:8], "sitemap:") {
			return strings.TrimSpace(line[8:])
		}
	}
	return ""
}
