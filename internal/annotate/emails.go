package annotate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/tabstore"
)

// EmailClassifier annotates each data row with the relevance label of its
// best email address. Rows with no parsable address are left untouched.
type EmailClassifier struct {
	store        tabstore.Store
	relevant     []string
	irrelevant   []string
	writeLimiter *rate.Limiter
}

func NewEmailClassifier(store tabstore.Store, relevant, irrelevant []string, writesPerMinute int) *EmailClassifier {
	if writesPerMinute <= 0 {
		writesPerMinute = 60
	}
	return &EmailClassifier{
		store:        store,
		relevant:     relevant,
		irrelevant:   irrelevant,
		writeLimiter: rate.NewLimiter(rate.Limit(float64(writesPerMinute)/60.0), 1),
	}
}

// Run classifies up to limit data rows (0 means all) and writes labels
// into the Email Relevance column.
func (c *EmailClassifier) Run(ctx context.Context, limit int) (int, error) {
	rows, err := c.store.ReadAll(ctx)
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

	updates := make([]tabstore.CellUpdate, 0, len(data))
	for i, row := range data {
		label, ok := extract.ClassifyEmails(rowEmails(row), c.relevant, c.irrelevant)
		if !ok {
			continue
		}
		updates = append(updates, tabstore.CellUpdate{
			Row:    i + 2,
			Col:    model.ColEmailRelevance,
			Values: []string{string(label)},
		})
	}

	if err := flushUpdates(ctx, c.store, c.writeLimiter, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

func rowEmails(row []string) []string {
	if len(row) < 4 {
		return nil
	}
	parts := strings.Split(row[3], ",")
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			emails = append(emails, p)
		}
	}
	return emails
}
