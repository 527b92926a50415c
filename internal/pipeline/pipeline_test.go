package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/dedup"
	"github.com/sells-group/outreach-cli/internal/discover"
	"github.com/sells-group/outreach-cli/internal/fetch"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resolver"
	"github.com/sells-group/outreach-cli/internal/search"
	"github.com/sells-group/outreach-cli/internal/tabstore"
	"github.com/sells-group/outreach-cli/internal/writer"
)

type stubSearcher struct {
	results []search.Result
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]search.Result, error) {
	return s.results, nil
}

// newOrgSite serves a minimal organization site: a root page linking to a
// contact page that carries one email and one phone number.
func newOrgSite(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><body><a href="/contact">Contact us</a></body></html>`)
		case "/contact":
			fmt.Fprint(w, `<html><body>
				<p>Email grants@acme-example.org or call (262) 822-9274.</p>
				</body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestStore(t *testing.T) tabstore.Store {
	t.Helper()
	store, err := tabstore.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, tabstore.EnsureHeader(context.Background(), store, model.SheetHeader))
	return store
}

func newTestPipeline(t *testing.T, store tabstore.Store, searcher resolver.Searcher, dd *dedup.Store, opts Options) *Pipeline {
	t.Helper()
	fetcher := fetch.New(fetch.NewFailedPageRegistry(2), fetch.Options{
		PerHostRPS: 1000,
		HTTPClient: http.DefaultClient,
	})
	res := resolver.New(searcher, resolver.Options{RequireNameMatch: false})
	disc := discover.New(fetcher, discover.NewSitemapProbe(time.Second, "test-agent"), discover.Options{
		MaxPages:     6,
		LinkKeywords: []string{"contact"},
	})
	w := writer.New(store, writer.Options{
		WritesPerMinute: 60000,
		MaxAttempts:     2,
		RetryDelay:      time.Millisecond,
		QuotaDelay:      time.Millisecond,
	})
	return New(res, disc, fetcher, dd, w, store, opts)
}

func TestRun_EndToEnd(t *testing.T) {
	srv, _ := newOrgSite(t)
	store := newTestStore(t)
	dd := dedup.New(100, nil)
	p := newTestPipeline(t, store, &stubSearcher{results: []search.Result{{URL: srv.URL}}}, dd, Options{Concurrency: 2})

	summary, err := p.Run(context.Background(), []model.Organization{{Name: "Acme Robotics"}})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Processed)
	assert.EqualValues(t, 1, summary.Written)
	assert.Zero(t, summary.NoSite)
	assert.Zero(t, summary.WriteFailed)

	rows, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "Acme Robotics", row[0])
	assert.Equal(t, srv.URL+"/contact", row[1])
	assert.Equal(t, "(262) 822-9274", row[2])
	assert.Equal(t, "grants@acme-example.org", row[3])
	_, err = time.Parse(time.RFC3339, row[4])
	assert.NoError(t, err)

	records := p.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Acme Robotics", records[0].Organization)
}

func TestRun_NoSiteShortCircuits(t *testing.T) {
	srv, hits := newOrgSite(t)
	_ = srv
	store := newTestStore(t)
	p := newTestPipeline(t, store, &stubSearcher{}, dedup.New(100, nil), Options{Concurrency: 1})

	summary, err := p.Run(context.Background(), []model.Organization{{Name: "Ghost Org"}})
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.NoSite)
	assert.Zero(t, summary.Written)
	assert.Zero(t, hits.Load(), "no pages should be fetched without a resolved site")

	rows, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRun_SeenOrganizationSkipped(t *testing.T) {
	srv, hits := newOrgSite(t)
	store := newTestStore(t)
	dd := dedup.New(100, nil)
	dd.MarkSeen("Acme Robotics")
	p := newTestPipeline(t, store, &stubSearcher{results: []search.Result{{URL: srv.URL}}}, dd, Options{Concurrency: 1})

	summary, err := p.Run(context.Background(), []model.Organization{{Name: "acme robotics"}})
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Skipped)
	assert.Zero(t, summary.Written)
	assert.Zero(t, hits.Load(), "seen organizations must not touch the network")
}

func TestRun_DeepenSkipsUnchangedRecord(t *testing.T) {
	srv, _ := newOrgSite(t)
	store := newTestStore(t)
	dd := dedup.New(100, nil)
	searcher := &stubSearcher{results: []search.Result{{URL: srv.URL}}}

	first := newTestPipeline(t, store, searcher, dd, Options{Concurrency: 1})
	summary, err := first.Run(context.Background(), []model.Organization{{Name: "Acme Robotics"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.Written)

	// A deepen pass bypasses the seen shortcut but the unchanged contact
	// set is refused at admission.
	second := newTestPipeline(t, store, searcher, dd, Options{Concurrency: 1, Deepen: true})
	summary, err = second.Run(context.Background(), []model.Organization{{Name: "Acme Robotics", SeedURL: srv.URL}})
	require.NoError(t, err)

	assert.Zero(t, summary.Written)
	assert.EqualValues(t, 1, summary.DuplicateSkipped)

	rows, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRun_IdenticalOrganizationsCollapse(t *testing.T) {
	srv, _ := newOrgSite(t)
	store := newTestStore(t)
	dd := dedup.New(100, nil)
	p := newTestPipeline(t, store, &stubSearcher{results: []search.Result{{URL: srv.URL}}}, dd, Options{Concurrency: 1})

	summary, err := p.Run(context.Background(), []model.Organization{
		{Name: "Acme Robotics"},
		{Name: "ACME Robotics"},
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Written)
	assert.EqualValues(t, 1, summary.Skipped)

	rows, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRun_FinalReconcileRemovesDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dup := []string{"Acme", "https://acme.example", "", "a@acme.example", "2026-01-01T00:00:00Z"}
	require.NoError(t, store.Append(ctx, dup))
	require.NoError(t, store.Append(ctx, dup))

	p := newTestPipeline(t, store, &stubSearcher{}, dedup.New(100, nil), Options{Concurrency: 1})
	summary, err := p.Run(ctx, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Reconciled)
	rows, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRun_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, store, &stubSearcher{}, dedup.New(100, nil), Options{Concurrency: 1})
	_, err := p.Run(ctx, []model.Organization{{Name: "Acme"}})
	assert.Error(t, err)
}
