// Package resolver turns an organization name into a best-guess canonical
// site root using an ordered list of search query variants.
package resolver

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/sells-group/outreach-cli/internal/search"
)

// ErrNoSite means no query produced an acceptable candidate domain. It is
// an expected outcome, not a failure.
var ErrNoSite = eris.New("resolver: no site found")

// Searcher is the search capability the resolver consumes, satisfied by
// search.Chain.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// Options tunes resolution behavior.
type Options struct {
	// QueryTemplates are tried in order; {name} is replaced with the
	// organization name.
	QueryTemplates []string
	// MaxResults caps results requested per query.
	MaxResults int
	// RequireNameMatch demands that a token of the organization name
	// (length > 2) appears in the candidate domain. Precision heuristic.
	RequireNameMatch bool
}

// Resolver resolves organization names to site roots.
type Resolver struct {
	searcher Searcher
	opts     Options
}

// New creates a Resolver over the given search capability.
func New(searcher Searcher, opts Options) *Resolver {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 3
	}
	if len(opts.QueryTemplates) == 0 {
		opts.QueryTemplates = []string{"{name} official site"}
	}
	return &Resolver{searcher: searcher, opts: opts}
}

// Resolve returns the canonical site root for an organization, or ErrNoSite.
// Search failures degrade to "no results for this query" and the next
// variant is tried.
func (r *Resolver) Resolve(ctx context.Context, orgName string) (string, error) {
	log := zap.L().With(zap.String("organization", orgName))

	for _, query := range r.Queries(orgName) {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "resolver: canceled")
		}

		results, err := r.searcher.Search(ctx, query, r.opts.MaxResults)
		if err != nil {
			log.Debug("resolver: query failed", zap.String("query", query), zap.Error(err))
			continue
		}

		for _, res := range results {
			root, err := SiteRoot(res.URL)
			if err != nil {
				continue
			}
			if r.opts.RequireNameMatch && !nameMatchesDomain(orgName, root) {
				log.Debug("resolver: candidate rejected by name check",
					zap.String("candidate", root),
					zap.String("query", query),
				)
				continue
			}
			log.Info("resolver: site found",
				zap.String("site_root", root),
				zap.String("query", query),
			)
			return root, nil
		}
	}

	return "", ErrNoSite
}

// Queries expands the configured templates for an organization name.
func (r *Resolver) Queries(orgName string) []string {
	queries := make([]string, 0, len(r.opts.QueryTemplates))
	for _, tmpl := range r.opts.QueryTemplates {
		queries = append(queries, strings.ReplaceAll(tmpl, "{name}", orgName))
	}
	return queries
}

// SiteRoot reduces a URL to scheme://registrable-domain, stripping
// subdomains with public-suffix awareness: www.shop.example.co.uk becomes
// https://example.co.uk.
func SiteRoot(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "resolver: parse url %s", rawURL)
	}
	host := u.Hostname()
	if host == "" {
		return "", eris.Errorf("resolver: no host in %s", rawURL)
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// IPs and single-label hosts have no registrable domain; keep the
		// host as-is, port included.
		domain = u.Host
	}

	scheme := u.Scheme
	if scheme != "http" && scheme != "https" {
		scheme = "https"
	}
	return scheme + "://" + domain, nil
}

// nameMatchesDomain reports whether any organization-name token longer
// than two characters appears in the domain string.
func nameMatchesDomain(orgName, domain string) bool {
	domain = strings.ToLower(domain)
	for _, tok := range strings.Fields(strings.ToLower(orgName)) {
		tok = strings.Trim(tok, ".,&'\"-()")
		if len(tok) > 2 && strings.Contains(domain, tok) {
			return true
		}
	}
	return false
}
