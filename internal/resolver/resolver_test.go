package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/search"
)

type stubSearcher struct {
	byQuery map[string][]search.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.byQuery[query], nil
}

func TestSiteRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://www.shop.example.com/contact", "https://example.com"},
		{"http://example.co.uk/about", "http://example.co.uk"},
		{"https://sub.deep.acme.org", "https://acme.org"},
		{"https://example.com", "https://example.com"},
		{"http://127.0.0.1:8080/contact", "http://127.0.0.1:8080"},
	}

	for _, tt := range tests {
		got, err := SiteRoot(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSiteRoot_NoHost(t *testing.T) {
	t.Parallel()

	_, err := SiteRoot("not a url at all ://")
	assert.Error(t, err)

	_, err = SiteRoot("/relative/path")
	assert.Error(t, err)
}

func TestResolve_FirstMatchingDomainWins(t *testing.T) {
	t.Parallel()

	s := &stubSearcher{byQuery: map[string][]search.Result{
		"Acme Robotics official site": {
			{URL: "https://www.acmerobotics.com/home"},
		},
	}}
	r := New(s, Options{
		QueryTemplates:   []string{"{name} official site", "{name} contact"},
		RequireNameMatch: true,
	})

	root, err := r.Resolve(context.Background(), "Acme Robotics")

	require.NoError(t, err)
	assert.Equal(t, "https://acmerobotics.com", root)
	// First query satisfied; second never issued.
	assert.Equal(t, []string{"Acme Robotics official site"}, s.queries)
}

func TestResolve_NameCheckRejectsUnrelatedDomains(t *testing.T) {
	t.Parallel()

	s := &stubSearcher{byQuery: map[string][]search.Result{
		"Acme Robotics official site": {
			{URL: "https://www.directory-listing.com/acme"},
		},
		"Acme Robotics contact": {
			{URL: "https://acme.org"},
		},
	}}
	r := New(s, Options{
		QueryTemplates:   []string{"{name} official site", "{name} contact"},
		RequireNameMatch: true,
	})

	root, err := r.Resolve(context.Background(), "Acme Robotics")

	require.NoError(t, err)
	assert.Equal(t, "https://acme.org", root)
}

func TestResolve_NoSite(t *testing.T) {
	t.Parallel()

	s := &stubSearcher{}
	r := New(s, Options{QueryTemplates: []string{"{name} official site"}})

	_, err := r.Resolve(context.Background(), "Acme Robotics")

	assert.ErrorIs(t, err, ErrNoSite)
}

func TestResolve_SearchErrorDegradesToNoSite(t *testing.T) {
	t.Parallel()

	s := &stubSearcher{err: errors.New("all transports failed")}
	r := New(s, Options{QueryTemplates: []string{"{name} a", "{name} b"}})

	_, err := r.Resolve(context.Background(), "Acme Robotics")

	assert.ErrorIs(t, err, ErrNoSite)
	assert.Len(t, s.queries, 2) // every variant still tried
}

func TestQueries_TemplateExpansion(t *testing.T) {
	t.Parallel()

	r := New(&stubSearcher{}, Options{QueryTemplates: []string{
		"{name} official site",
		"{name} sponsorship request",
	}})

	assert.Equal(t, []string{
		"Acme Robotics official site",
		"Acme Robotics sponsorship request",
	}, r.Queries("Acme Robotics"))
}
