package discover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/fetch"
)

var testKeywords = Options{
	MaxPages:     6,
	LinkKeywords: []string{"contact", "sponsor", "partner", "about", "community"},
	Blacklist:    []string{"job", "career", "news", "press", "login", "shop"},
	Allowlist:    []string{"contact", "sponsor", "about", "community"},
}

func newTestDiscoverer(opts Options) *Discoverer {
	f := fetch.New(fetch.NewFailedPageRegistry(2), fetch.Options{PerHostRPS: 1000})
	return New(f, nil, opts)
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte(html))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscover_HarvestsKeywordLinks(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body>
		<a href="/contact">Contact Us</a>
		<a href="/giving">Sponsorship</a>
		<a href="/pricing">Pricing</a>
		<a href="mailto:info@acme.org">Email</a>
		<a href="tel:+15551234567">Call</a>
		<a href="javascript:void(0)">Menu</a>
	</body></html>`)

	d := newTestDiscoverer(testKeywords)
	pages := d.Discover(context.Background(), srv.URL)

	require.Len(t, pages, 3)
	assert.Equal(t, srv.URL, pages[0])
	assert.Contains(t, pages, srv.URL+"/contact")
	assert.Contains(t, pages, srv.URL+"/giving") // matched on visible text
	assert.NotContains(t, pages, srv.URL+"/pricing")
}

func TestDiscover_BlacklistWithAllowOverride(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body>
		<a href="/jobs">Contact our recruiters</a>
		<a href="/careers/contact">Contact HR</a>
	</body></html>`)

	d := newTestDiscoverer(testKeywords)
	pages := d.Discover(context.Background(), srv.URL)

	// /jobs is blacklisted with no allow keyword in the URL; the allow
	// keyword in /careers/contact wins over the blacklist.
	assert.NotContains(t, pages, srv.URL+"/jobs")
	assert.Contains(t, pages, srv.URL+"/careers/contact")
}

func TestDiscover_DropsOffDomainLinks(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body>
		<a href="https://partner-directory.example.com/contact">Contact</a>
		<a href="/contact">Contact</a>
	</body></html>`)

	d := newTestDiscoverer(testKeywords)
	pages := d.Discover(context.Background(), srv.URL)

	require.Len(t, pages, 2)
	assert.Equal(t, srv.URL+"/contact", pages[1])
}

func TestDiscover_DeduplicatesAbsoluteURLs(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body>
		<a href="/contact">Contact</a>
		<a href="/contact#form">Contact form</a>
	</body></html>`)

	d := newTestDiscoverer(testKeywords)
	pages := d.Discover(context.Background(), srv.URL)

	count := 0
	for _, p := range pages {
		if p == srv.URL+"/contact" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDiscover_BoundedByMaxPages(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body>
		<a href="/contact-1">Contact</a>
		<a href="/contact-2">Contact</a>
		<a href="/contact-3">Contact</a>
		<a href="/contact-4">Contact</a>
		<a href="/contact-5">Contact</a>
	</body></html>`)

	opts := testKeywords
	opts.MaxPages = 3
	d := newTestDiscoverer(opts)
	pages := d.Discover(context.Background(), srv.URL)

	assert.Len(t, pages, 3)
	assert.Equal(t, srv.URL, pages[0])
}

func TestDiscover_RootFetchFailureYieldsRootOnly(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := newTestDiscoverer(testKeywords)
	pages := d.Discover(context.Background(), srv.URL)

	assert.Equal(t, []string{srv.URL}, pages)
}

func TestSitemapProbe_XMLMarker(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><urlset><url><loc>https://a</loc></url></urlset>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewSitemapProbe(time.Second, "test-agent")
	got := p.Find(context.Background(), srv.URL)

	assert.Equal(t, srv.URL+"/sitemap.xml", got)
}

func TestSitemapProbe_RejectsNonSitemapBody(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>soft 404</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewSitemapProbe(time.Second, "")
	assert.Empty(t, p.Find(context.Background(), srv.URL))
}

func TestSitemapProbe_RobotsDirective(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /admin\nSITEMAP: https://cdn.example.com/map.xml\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewSitemapProbe(time.Second, "")
	got := p.Find(context.Background(), srv.URL)

	assert.Equal(t, "https://cdn.example.com/map.xml", got)
}

func TestSitemapProbe_NothingFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := NewSitemapProbe(time.Second, "")
	assert.Empty(t, p.Find(context.Background(), srv.URL))
}
