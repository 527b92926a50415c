// Package discover finds the pages on a site most likely to carry contact
// or sponsorship information: the root, keyword-matched links harvested
// from it, and a sitemap located through well-known paths.
package discover

import (
	"net/url"
	"strings"

	"context"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/fetch"
	"github.com/sells-group/outreach-cli/internal/resolver"
)

// Options tunes discovery.
type Options struct {
	// MaxPages bounds the returned candidate set, the site root included.
	MaxPages int
	// LinkKeywords qualify a hyperlink when any is a substring of its
	// href plus visible text, lower-cased.
	LinkKeywords []string
	// Blacklist drops a discovered URL unless an Allowlist keyword is
	// also present.
	Blacklist []string
	Allowlist []string
}

// Discoverer finds candidate contact pages for a site root.
type Discoverer struct {
	fetcher *fetch.Fetcher
	probe   *SitemapProbe
	opts    Options
}

// New creates a Discoverer sharing the pipeline's page fetcher. The
// sitemap probe uses its own short-timeout client and does not count
// probe misses against the failed-page registry.
func New(fetcher *fetch.Fetcher, probe *SitemapProbe, opts Options) *Discoverer {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 6
	}
	return &Discoverer{fetcher: fetcher, probe: probe, opts: opts}
}

// Discover returns candidate page URLs for a site root, the root first.
// It never fails: fetch errors shrink the set, down to just the root.
func (d *Discoverer) Discover(ctx context.Context, siteRoot string) []string {
	pages := []string{siteRoot}
	seen := map[string]bool{siteRoot: true}

	for _, link := range d.harvestLinks(ctx, siteRoot) {
		if len(pages) >= d.opts.MaxPages {
			return pages
		}
		if seen[link] || !d.passesFilter(link) {
			continue
		}
		seen[link] = true
		pages = append(pages, link)
	}

	if d.probe != nil && len(pages) < d.opts.MaxPages {
		if sm := d.probe.Find(ctx, siteRoot); sm != "" && !seen[sm] {
			pages = append(pages, sm)
		}
	}

	return pages
}

// harvestLinks fetches the root page and returns qualifying same-domain
// links in document order.
func (d *Discoverer) harvestLinks(ctx context.Context, siteRoot string) []string {
	page, err := d.fetcher.FetchPage(ctx, siteRoot)
	if err != nil {
		zap.L().Debug("discover: root fetch failed",
			zap.String("site_root", siteRoot),
			zap.Error(err),
		)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		zap.L().Debug("discover: root parse failed",
			zap.String("site_root", siteRoot),
			zap.Error(err),
		)
		return nil
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return nil
	}
	rootDomain, _ := resolver.SiteRoot(page.URL)

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if skipScheme(href) {
			return
		}

		combined := strings.ToLower(href + " " + sel.Text())
		if !containsAny(combined, d.opts.LinkKeywords) {
			return
		}

		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		// Stay on the organization's own registrable domain.
		if linkDomain, err := resolver.SiteRoot(abs.String()); err != nil || !sameDomain(linkDomain, rootDomain) {
			return
		}

		u := abs.String()
		if !seen[u] {
			seen[u] = true
			links = append(links, u)
		}
	})

	return links
}

// passesFilter applies the blacklist with the allowlist override: an allow
// keyword rescues an otherwise blacklisted URL.
func (d *Discoverer) passesFilter(pageURL string) bool {
	lower := strings.ToLower(pageURL)
	if !containsAny(lower, d.opts.Blacklist) {
		return true
	}
	return containsAny(lower, d.opts.Allowlist)
}

func skipScheme(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// sameDomain compares scheme-stripped registrable domains, so an https
// root still claims its http links.
func sameDomain(a, b string) bool {
	return stripScheme(a) == stripScheme(b)
}

func stripScheme(s string) string {
	if _, rest, ok := strings.Cut(s, "://"); ok {
		return rest
	}
	return s
}
