// Package dedup keeps duplicate contact rows out of the persisted store:
// a bounded cache of recently written row keys, the set of organizations
// already present at startup, and a full-table reconciliation sweep.
package dedup

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/tabstore"
)

// DefaultCapacity bounds the recent-keys cache.
const DefaultCapacity = 1000

// Store is the in-memory deduplication state for one run. It is safe for
// concurrent use by all organization pipelines.
type Store struct {
	mu       sync.Mutex
	capacity int

	recent map[model.RowKey]struct{}
	// order tracks approximate insertion order for eviction; precision
	// is not required, only bounded memory.
	order []model.RowKey

	seen map[string]struct{}

	blacklist []string
}

// New creates an empty dedup store. The blacklist drives reconciliation's
// unconditional row removal.
func New(capacity int, blacklist []string) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity:  capacity,
		recent:    make(map[model.RowKey]struct{}),
		seen:      make(map[string]struct{}),
		blacklist: blacklist,
	}
}

// Preload populates seen identities and recent keys from the persisted
// store. A header-only or empty store loads nothing.
func (s *Store) Preload(ctx context.Context, ts tabstore.Store) error {
	rows, err := ts.ReadAll(ctx)
	if err != nil {
		return eris.Wrap(err, "dedup: preload read")
	}
	if len(rows) <= 1 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows[1:] {
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			s.seen[model.NormalizeIdentity(row[0])] = struct{}{}
		}
		s.insertLocked(model.RowKeyFromCells(row))
	}

	zap.L().Info("dedup: preloaded store state",
		zap.Int("seen_identities", len(s.seen)),
		zap.Int("recent_keys", len(s.recent)),
	)
	return nil
}

// Seen reports whether an organization already has rows in the store; the
// orchestrator skips such organizations without any network activity.
func (s *Store) Seen(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[model.NormalizeIdentity(name)]
	return ok
}

// MarkSeen records an organization after its row is written.
func (s *Store) MarkSeen(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[model.NormalizeIdentity(name)] = struct{}{}
}

// Admit reports whether a candidate key may be written: false means the
// key is a known duplicate. Admit does not reserve the key; call Record
// after the write succeeds.
func (s *Store) Admit(key model.RowKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, dup := s.recent[key]
	return !dup
}

// Record inserts a written key into the recent cache, evicting the
// approximately oldest member past capacity.
func (s *Store) Record(key model.RowKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(key)
}

func (s *Store) insertLocked(key model.RowKey) {
	if _, ok := s.recent[key]; ok {
		return
	}
	s.recent[key] = struct{}{}
	s.order = append(s.order, key)
	for len(s.recent) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.recent, oldest)
	}
}

// Len returns the recent-key cache size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recent)
}

// Reconcile sweeps the full table from one ReadAll snapshot and deletes
// every row whose key repeats an earlier row's, plus every row whose URL
// column contains a blacklist keyword. Deletions are issued in strictly
// descending row order. Callers must hold the writer's gate so no append
// interleaves with the index-based deletes.
func (s *Store) Reconcile(ctx context.Context, ts tabstore.Store) (int, error) {
	rows, err := ts.ReadAll(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "dedup: reconcile read")
	}
	if len(rows) <= 1 {
		return 0, nil
	}

	seenKeys := make(map[model.RowKey]struct{}, len(rows)-1)
	var doomed []int
	for i, row := range rows[1:] {
		key := model.RowKeyFromCells(row)

		_, dup := seenKeys[key]
		if dup || s.urlBlacklisted(key.URLField()) {
			// Data row i is sheet row i+2 (header is row 1).
			doomed = append(doomed, i+2)
			continue
		}
		seenKeys[key] = struct{}{}
	}

	if len(doomed) == 0 {
		return 0, nil
	}

	sort.Sort(sort.Reverse(sort.IntSlice(doomed)))
	if err := ts.DeleteRows(ctx, doomed); err != nil {
		return 0, eris.Wrap(err, "dedup: reconcile delete")
	}

	zap.L().Info("dedup: reconciled store", zap.Int("rows_removed", len(doomed)))
	return len(doomed), nil
}

func (s *Store) urlBlacklisted(urlField string) bool {
	for _, kw := range s.blacklist {
		if strings.Contains(urlField, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
