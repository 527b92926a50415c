package fetch

import "sync"

// FailedPageRegistry tracks fetch failures per URL for the lifetime of a
// run. Once a URL has burned its retry budget it is skipped everywhere,
// including later discovery cycles that re-surface the same page.
type FailedPageRegistry struct {
	mu          sync.Mutex
	maxFailures int
	failures    map[string]int
}

// NewFailedPageRegistry creates a registry that exhausts a URL after
// maxFailures recorded failures.
func NewFailedPageRegistry(maxFailures int) *FailedPageRegistry {
	if maxFailures <= 0 {
		maxFailures = 2
	}
	return &FailedPageRegistry{
		maxFailures: maxFailures,
		failures:    make(map[string]int),
	}
}

// RecordFailure increments the failure count for a URL and returns the new
// count.
func (r *FailedPageRegistry) RecordFailure(url string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[url]++
	return r.failures[url]
}

// Failures returns the recorded failure count for a URL.
func (r *FailedPageRegistry) Failures(url string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[url]
}

// Exhausted reports whether a URL has used up its retry budget.
func (r *FailedPageRegistry) Exhausted(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[url] >= r.maxFailures
}

// Len returns the number of URLs with at least one recorded failure.
func (r *FailedPageRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}
