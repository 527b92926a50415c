// Package writer serializes all persisted-store appends through a single
// gate and enforces the store's write-rate budget.
package writer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/tabstore"
)

// Options tunes the writer.
type Options struct {
	// WritesPerMinute is the store's write budget; spacing between
	// successful appends is 60/WritesPerMinute seconds.
	WritesPerMinute int
	// MaxAttempts is the total append attempts before giving up.
	MaxAttempts int
	// RetryDelay is the pause after a generic failure.
	RetryDelay time.Duration
	// QuotaDelay is the base pause after a rate-limit response; it is
	// multiplied by the attempt number.
	QuotaDelay time.Duration
}

// Writer owns the store's write path. Appends are mutually exclusive
// process-wide, and the post-append spacing sleep happens while still
// holding the gate, which is what produces the rate limit.
type Writer struct {
	store   tabstore.Store
	gate    chan struct{}
	spacing time.Duration
	opts    Options
}

// New creates a Writer over the persisted store.
func New(store tabstore.Store, opts Options) *Writer {
	if opts.WritesPerMinute <= 0 {
		opts.WritesPerMinute = 60
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 1500 * time.Millisecond
	}
	if opts.QuotaDelay <= 0 {
		opts.QuotaDelay = 10 * time.Second
	}
	return &Writer{
		store:   store,
		gate:    make(chan struct{}, 1),
		spacing: time.Minute / time.Duration(opts.WritesPerMinute),
		opts:    opts,
	}
}

// Spacing returns the enforced minimum interval between appends.
func (w *Writer) Spacing() time.Duration { return w.spacing }

// Append writes one row, retrying transient failures with backoff and a
// longer, escalating delay on quota responses. The gate is released
// between attempts so reconciliation is never starved by a retry loop.
func (w *Writer) Append(ctx context.Context, row []string) error {
	var lastErr error
	for attempt := 1; attempt <= w.opts.MaxAttempts; attempt++ {
		if err := w.acquire(ctx); err != nil {
			return err
		}

		err := w.store.Append(ctx, row)
		if err == nil {
			// Hold the gate through the spacing sleep: the next writer
			// cannot start until the budget interval has elapsed.
			w.sleep(ctx, w.spacing)
			w.release()
			return nil
		}
		w.release()
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt == w.opts.MaxAttempts {
			break
		}

		delay := w.opts.RetryDelay
		if resilience.IsRateLimited(err) {
			delay = w.opts.QuotaDelay * time.Duration(attempt)
			zap.L().Warn("writer: store quota exhausted, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
		} else {
			zap.L().Warn("writer: append failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}
		w.sleep(ctx, delay)
	}
	return eris.Wrap(lastErr, "writer: append attempts exhausted")
}

// Exclusive runs fn while holding the write gate, so it can never overlap
// an append. Reconciliation's index-based deletions go through here.
func (w *Writer) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := w.acquire(ctx); err != nil {
		return err
	}
	defer w.release()
	return fn(ctx)
}

func (w *Writer) acquire(ctx context.Context) error {
	select {
	case w.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "writer: gate wait")
	}
}

func (w *Writer) release() {
	<-w.gate
}

func (w *Writer) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
