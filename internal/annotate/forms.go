// Package annotate runs the post-run passes that mark up stored rows:
// sponsorship-form verification and email relevance classification.
package annotate

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/fetch"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/tabstore"
)

const (
	markYes = "✅"
	markNo  = "❌"

	// updateChunk bounds cells written per store call.
	updateChunk = 10
)

// FormVerifier annotates each data row with whether its first URL hosts a
// form at all, and whether any form looks like a sponsorship form.
type FormVerifier struct {
	fetcher      *fetch.Fetcher
	store        tabstore.Store
	formKeywords []string
	concurrency  int
	writeLimiter *rate.Limiter
}

// NewFormVerifier builds the verify pass. writesPerMinute paces the cell
// updates against the same budget the writer honors.
func NewFormVerifier(fetcher *fetch.Fetcher, store tabstore.Store, formKeywords []string, concurrency, writesPerMinute int) *FormVerifier {
	if concurrency <= 0 {
		concurrency = 4
	}
	if writesPerMinute <= 0 {
		writesPerMinute = 60
	}
	return &FormVerifier{
		fetcher:      fetcher,
		store:        store,
		formKeywords: formKeywords,
		concurrency:  concurrency,
		writeLimiter: rate.NewLimiter(rate.Limit(float64(writesPerMinute)/60.0), 1),
	}
}

// Run verifies up to limit data rows (0 means all) and writes ✅/❌ marks
// into the Has Form and Sponsor Form columns.
func (v *FormVerifier) Run(ctx context.Context, limit int) (int, error) {
	rows, err := v.store.ReadAll(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "annotate: read rows")
	}
	if len(rows) <= 1 {
		return 0, nil
	}

	data := rows[1:]
	if limit > 0 && len(data) > limit {
		data = data[:limit]
	}

	var mu sync.Mutex
	updates := make([]tabstore.CellUpdate, 0, len(data))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, row := range data {
		g.Go(func() error {
			hasForm, sponsorForm := v.checkRow(gctx, row)
			mu.Lock()
			updates = append(updates, tabstore.CellUpdate{
				// Data row i sits at sheet row i+2: the header is row 1.
				Row:    i + 2,
				Col:    model.ColHasForm,
				Values: []string{mark(hasForm), mark(sponsorForm)},
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, eris.Wrap(err, "annotate: verify rows")
	}

	if err := v.flush(ctx, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

// checkRow fetches the row's first URL and inspects its forms. Rows with
// no usable URL are marked ❌ ❌ without a fetch.
func (v *FormVerifier) checkRow(ctx context.Context, row []string) (hasForm, sponsorForm bool) {
	pageURL := firstURL(row)
	if pageURL == "" {
		return false, false
	}

	page, err := v.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		zap.L().Debug("annotate: fetch failed", zap.String("url", pageURL), zap.Error(err))
		return false, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return false, false
	}

	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		hasForm = true
		if v.isSponsorshipForm(form) && !isSearchForm(form) {
			sponsorForm = true
			return false
		}
		return true
	})
	return hasForm, sponsorForm
}

// isSponsorshipForm matches a sponsorship keyword against the form's
// field names and placeholders.
func (v *FormVerifier) isSponsorshipForm(form *goquery.Selection) bool {
	var sb strings.Builder
	form.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
		name, _ := field.Attr("name")
		placeholder, _ := field.Attr("placeholder")
		sb.WriteString(name)
		sb.WriteString(" ")
		sb.WriteString(placeholder)
		sb.WriteString(" ")
	})
	fields := strings.ToLower(sb.String())
	for _, kw := range v.formKeywords {
		if strings.Contains(fields, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// isSearchForm spots site-search forms so they never count as sponsorship
// forms: a type=search input or "search" in a field name.
func isSearchForm(form *goquery.Selection) bool {
	found := false
	form.Find("input, textarea, select").EachWithBreak(func(_ int, field *goquery.Selection) bool {
		typ, _ := field.Attr("type")
		name, _ := field.Attr("name")
		if strings.EqualFold(typ, "search") || strings.Contains(strings.ToLower(name), "search") {
			found = true
			return false
		}
		return true
	})
	return found
}

// flush writes updates in chunks, each paced by the write limiter.
func (v *FormVerifier) flush(ctx context.Context, updates []tabstore.CellUpdate) error {
	return flushUpdates(ctx, v.store, v.writeLimiter, updates)
}

func flushUpdates(ctx context.Context, store tabstore.Store, limiter *rate.Limiter, updates []tabstore.CellUpdate) error {
	for start := 0; start < len(updates); start += updateChunk {
		end := start + updateChunk
		if end > len(updates) {
			end = len(updates)
		}
		if err := limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "annotate: pacing wait")
		}
		if err := store.UpdateCells(ctx, updates[start:end]); err != nil {
			return eris.Wrap(err, "annotate: update cells")
		}
	}
	return nil
}

func mark(ok bool) string {
	if ok {
		return markYes
	}
	return markNo
}

// firstURL pulls the first usable URL from a row's URLs column.
func firstURL(row []string) string {
	if len(row) < 2 {
		return ""
	}
	first, _, _ := strings.Cut(row[1], ",")
	first = strings.TrimSpace(first)
	if !strings.HasPrefix(first, "http://") && !strings.HasPrefix(first, "https://") {
		return ""
	}
	return first
}
