// Package pipeline orchestrates the per-organization state machine: resolve
// a site, discover candidate pages, extract contact identifiers, admit
// against the dedup store, and append through the rate-limited writer.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/dedup"
	"github.com/sells-group/outreach-cli/internal/discover"
	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/fetch"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resolver"
	"github.com/sells-group/outreach-cli/internal/tabstore"
	"github.com/sells-group/outreach-cli/internal/writer"
)

// Options tunes orchestration behavior.
type Options struct {
	// Concurrency bounds the per-organization fan-out.
	Concurrency int
	// ReconcileEvery triggers a reconciliation sweep after that many
	// successful writes. Zero disables periodic sweeps; the end-of-run
	// sweep always happens.
	ReconcileEvery int
	// Deepen reprocesses organizations that are already present in the
	// store, using their recorded site roots as seeds.
	Deepen bool
}

// Summary is the terminal accounting of one run.
type Summary struct {
	RunID            string
	Processed        int
	Written          int64
	Skipped          int64
	NoSite           int64
	NoContacts       int64
	DuplicateSkipped int64
	WriteFailed      int64
	Reconciled       int64
	Duration         time.Duration
}

// Pipeline wires the run loop together.
type Pipeline struct {
	resolver   *resolver.Resolver
	discoverer *discover.Discoverer
	fetcher    *fetch.Fetcher
	dedup      *dedup.Store
	writer     *writer.Writer
	store      tabstore.Store
	opts       Options

	written    atomic.Int64
	reconciled atomic.Int64

	recordsMu sync.Mutex
	records   []*model.ContactRecord
}

// New creates a Pipeline with all dependencies.
func New(
	res *resolver.Resolver,
	disc *discover.Discoverer,
	fetcher *fetch.Fetcher,
	dd *dedup.Store,
	w *writer.Writer,
	store tabstore.Store,
	opts Options,
) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Pipeline{
		resolver:   res,
		discoverer: disc,
		fetcher:    fetcher,
		dedup:      dd,
		writer:     w,
		store:      store,
		opts:       opts,
	}
}

// Run processes every organization and returns the run summary. Individual
// organization failures never abort the run; only context cancellation does.
func (p *Pipeline) Run(ctx context.Context, orgs []model.Organization) (*Summary, error) {
	runID := uuid.New().String()
	start := time.Now()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: starting run", zap.Int("organizations", len(orgs)), zap.Int("concurrency", p.opts.Concurrency))

	summary := &Summary{RunID: runID, Processed: len(orgs)}

	var counts struct {
		skipped, noSite, noContacts, dupSkipped, writeFailed atomic.Int64
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, org := range orgs {
		g.Go(func() error {
			outcome := p.processOne(gctx, log, org)
			switch outcome {
			case model.OutcomeSkipped:
				counts.skipped.Add(1)
			case model.OutcomeNoSite:
				counts.noSite.Add(1)
			case model.OutcomeNoContacts:
				counts.noContacts.Add(1)
			case model.OutcomeDuplicateSkipped:
				counts.dupSkipped.Add(1)
			case model.OutcomeWriteFailed:
				counts.writeFailed.Add(1)
			}
			return gctx.Err()
		})
	}
	runErr := g.Wait()

	// End-of-run sweep runs even after cancellation fails the group, as
	// long as the parent context is still live.
	if err := p.reconcile(ctx, log); err != nil {
		log.Warn("pipeline: final reconcile failed", zap.Error(err))
	}

	summary.Written = p.written.Load()
	summary.Skipped = counts.skipped.Load()
	summary.NoSite = counts.noSite.Load()
	summary.NoContacts = counts.noContacts.Load()
	summary.DuplicateSkipped = counts.dupSkipped.Load()
	summary.WriteFailed = counts.writeFailed.Load()
	summary.Reconciled = p.reconciled.Load()
	summary.Duration = time.Since(start)

	log.Info("pipeline: run complete",
		zap.Int("processed", summary.Processed),
		zap.Int64("written", summary.Written),
		zap.Int64("skipped", summary.Skipped),
		zap.Int64("no_site", summary.NoSite),
		zap.Int64("no_contacts", summary.NoContacts),
		zap.Int64("duplicate_skipped", summary.DuplicateSkipped),
		zap.Int64("write_failed", summary.WriteFailed),
		zap.Int64("rows_reconciled", summary.Reconciled),
		zap.Duration("duration", summary.Duration),
	)

	if runErr != nil {
		return summary, eris.Wrap(runErr, "pipeline: run aborted")
	}
	return summary, nil
}

// Records returns the records written during this run, in write order.
func (p *Pipeline) Records() []*model.ContactRecord {
	p.recordsMu.Lock()
	defer p.recordsMu.Unlock()
	out := make([]*model.ContactRecord, len(p.records))
	copy(out, p.records)
	return out
}

// processOne drives a single organization from intake to a terminal outcome.
func (p *Pipeline) processOne(ctx context.Context, log *zap.Logger, org model.Organization) model.Outcome {
	log = log.With(zap.String("organization", org.Name))

	if p.dedup.Seen(org.Name) && !p.opts.Deepen {
		log.Debug("pipeline: organization already in store")
		return model.OutcomeSkipped
	}

	siteRoot, err := p.siteRoot(ctx, org)
	if err != nil {
		log.Info("pipeline: no site found", zap.Error(err))
		return model.OutcomeNoSite
	}
	log = log.With(zap.String("site_root", siteRoot))

	record := p.extractContacts(ctx, log, org.Name, siteRoot)
	if !record.HasContacts() {
		log.Info("pipeline: no contacts found")
		return model.OutcomeNoContacts
	}

	if !p.dedup.Admit(record.Key()) {
		log.Info("pipeline: duplicate record skipped")
		return model.OutcomeDuplicateSkipped
	}

	if err := p.writer.Append(ctx, record.Row()); err != nil {
		// A concurrent worker may have written the same key while this
		// append was retrying; report that as a duplicate, not a failure.
		if !p.dedup.Admit(record.Key()) {
			log.Info("pipeline: duplicate record skipped")
			return model.OutcomeDuplicateSkipped
		}
		log.Error("pipeline: write failed", zap.Error(err))
		return model.OutcomeWriteFailed
	}

	p.dedup.Record(record.Key())
	p.dedup.MarkSeen(org.Name)
	p.recordsMu.Lock()
	p.records = append(p.records, record)
	p.recordsMu.Unlock()

	written := p.written.Add(1)
	log.Info("pipeline: record written",
		zap.Int("urls", len(record.URLs)),
		zap.Int("emails", len(record.Emails)),
		zap.Int("phones", len(record.Phones)),
	)

	if p.opts.ReconcileEvery > 0 && written%int64(p.opts.ReconcileEvery) == 0 {
		if err := p.reconcile(ctx, log); err != nil {
			log.Warn("pipeline: periodic reconcile failed", zap.Error(err))
		}
	}
	return model.OutcomeWritten
}

// siteRoot yields the canonical site root: the seed's registrable domain in
// deepen mode, otherwise a search resolution.
func (p *Pipeline) siteRoot(ctx context.Context, org model.Organization) (string, error) {
	if org.SeedURL != "" {
		return resolver.SiteRoot(org.SeedURL)
	}
	return p.resolver.Resolve(ctx, org.Name)
}

// extractContacts crawls the discovered pages and aggregates identifiers
// into one record. Pages that fail or yield nothing contribute no URL.
func (p *Pipeline) extractContacts(ctx context.Context, log *zap.Logger, orgName, siteRoot string) *model.ContactRecord {
	record := &model.ContactRecord{
		Organization: orgName,
		Timestamp:    time.Now().UTC(),
	}

	emails := map[string]struct{}{}
	phones := map[string]struct{}{}

	for _, pageURL := range p.discoverer.Discover(ctx, siteRoot) {
		page, err := p.fetcher.FetchPage(ctx, pageURL)
		if err != nil {
			log.Debug("pipeline: page fetch failed", zap.String("url", pageURL), zap.Error(err))
			continue
		}
		contacts := extract.Contact(page.Body)
		if len(contacts.Emails) == 0 && len(contacts.Phones) == 0 {
			continue
		}
		record.URLs = append(record.URLs, page.URL)
		for _, e := range contacts.Emails {
			emails[e] = struct{}{}
		}
		for _, ph := range contacts.Phones {
			phones[ph] = struct{}{}
		}
	}

	record.Emails = sortedKeys(emails)
	record.Phones = sortedKeys(phones)
	return record
}

// reconcile runs the dedup sweep while holding the writer's gate so no
// append can land between the snapshot and the deletions.
func (p *Pipeline) reconcile(ctx context.Context, log *zap.Logger) error {
	return p.writer.Exclusive(ctx, func(ctx context.Context) error {
		removed, err := p.dedup.Reconcile(ctx, p.store)
		if err != nil {
			return err
		}
		if removed > 0 {
			p.reconciled.Add(int64(removed))
			log.Info("pipeline: reconcile removed rows", zap.Int("rows", removed))
		}
		return nil
	})
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
