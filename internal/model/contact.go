package model

import (
	"strings"
	"time"
)

// SheetHeader is row 1 of the persisted store. Columns F, G, and H are
// reserved for the annotation passes.
var SheetHeader = []string{"Organization", "URLs", "Phones", "Emails", "Timestamp"}

// 1-indexed annotation column positions (A = 1).
const (
	ColHasForm        = 6 // F, verify pass: any form present
	ColSponsorForm    = 7 // G, verify pass: sponsorship form present
	ColEmailRelevance = 8 // H, classify pass: relevance label
)

// ContactRecord accumulates everything discovered for one organization.
// It is written in a single append or not at all.
type ContactRecord struct {
	Organization string
	URLs         []string // pages that yielded at least one identifier, in visit order
	Phones       []string // sorted
	Emails       []string // sorted
	Timestamp    time.Time
}

// HasContacts reports whether the record carries at least one identifier.
func (r *ContactRecord) HasContacts() bool {
	return len(r.Emails) > 0 || len(r.Phones) > 0
}

// Row renders the record as a store row in SheetHeader order.
func (r *ContactRecord) Row() []string {
	return []string{
		r.Organization,
		strings.Join(r.URLs, ", "),
		strings.Join(r.Phones, ", "),
		strings.Join(r.Emails, ", "),
		r.Timestamp.Format(time.RFC3339),
	}
}

// Key returns the record's deduplication identity.
func (r *ContactRecord) Key() RowKey {
	return RowKeyFromCells(r.Row())
}

// RowKey is the canonical deduplication identity: the first four cells of a
// row (organization, joined URLs, joined phones, joined emails), each
// whitespace-trimmed and lower-cased. Two rows are duplicates iff their
// keys compare equal.
type RowKey [4]string

// NewRowKey builds a key from the four identity fields.
func NewRowKey(org, urls, phones, emails string) RowKey {
	return RowKey{normalize(org), normalize(urls), normalize(phones), normalize(emails)}
}

// RowKeyFromCells builds a key from a stored row. Rows shorter than four
// cells key on what they have; missing cells normalize to "".
func RowKeyFromCells(cells []string) RowKey {
	var k RowKey
	for i := 0; i < len(k) && i < len(cells); i++ {
		k[i] = normalize(cells[i])
	}
	return k
}

// URLField returns the key's joined-URLs column, used for blacklist checks
// during reconciliation.
func (k RowKey) URLField() string { return k[1] }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeIdentity canonicalizes an organization name the same way
// seenIdentities entries are stored.
func NormalizeIdentity(name string) string {
	return normalize(name)
}
