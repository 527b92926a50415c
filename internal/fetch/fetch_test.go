package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(maxFailures int) *Fetcher {
	return New(NewFailedPageRegistry(maxFailures), Options{PerHostRPS: 1000})
}

func TestFailedPageRegistry_Exhausted(t *testing.T) {
	t.Parallel()

	r := NewFailedPageRegistry(2)
	assert.False(t, r.Exhausted("https://x.example.com/a"))

	r.RecordFailure("https://x.example.com/a")
	assert.False(t, r.Exhausted("https://x.example.com/a"))

	r.RecordFailure("https://x.example.com/a")
	assert.True(t, r.Exhausted("https://x.example.com/a"))
	assert.Equal(t, 2, r.Failures("https://x.example.com/a"))
	assert.Equal(t, 1, r.Len())
}

func TestFetchPage_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(2)
	page, err := f.FetchPage(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, page.Body, "hello")
	assert.Equal(t, 0, f.Registry().Len())
}

func TestFetchPage_RetriesThenExhausts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(2)
	_, err := f.FetchPage(context.Background(), srv.URL)

	require.Error(t, err)
	assert.EqualValues(t, 2, hits.Load())
	assert.True(t, f.Registry().Exhausted(srv.URL))
}

func TestFetchPage_SkipsExhaustedWithoutRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	f := newTestFetcher(2)
	f.Registry().RecordFailure(srv.URL)
	f.Registry().RecordFailure(srv.URL)

	_, err := f.FetchPage(context.Background(), srv.URL)

	require.ErrorIs(t, err, ErrPageSkipped)
	assert.EqualValues(t, 0, hits.Load())
}

func TestFetchPage_FollowsRedirects(t *testing.T) {
	t.Parallel()

	var final string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	final = srv.URL + "/contact"

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final, http.StatusMovedPermanently)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("contact page"))
	})

	f := newTestFetcher(2)
	page, err := f.FetchPage(context.Background(), srv.URL+"/")

	require.NoError(t, err)
	assert.Equal(t, final, page.URL)
}

func TestFetchPage_DecodesDeclaredCharset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" in Latin-1.
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xe9})
	}))
	defer srv.Close()

	f := newTestFetcher(2)
	page, err := f.FetchPage(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "café", page.Body)
}

func TestFetchPage_CanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(2)
	_, err := f.FetchPage(ctx, srv.URL)

	require.Error(t, err)
}
