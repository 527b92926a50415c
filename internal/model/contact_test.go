package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowKey_Pure(t *testing.T) {
	t.Parallel()

	a := NewRowKey("Acme Robotics", "https://acme.com", "555-123-4567", "info@acme.com")
	b := NewRowKey("Acme Robotics", "https://acme.com", "555-123-4567", "info@acme.com")
	assert.Equal(t, a, b)
}

func TestRowKey_CollapsesCaseAndWhitespace(t *testing.T) {
	t.Parallel()

	a := NewRowKey("  ACME Robotics ", "HTTPS://Acme.com", "555-123-4567", "Info@Acme.com ")
	b := NewRowKey("acme robotics", "https://acme.com", "555-123-4567", "info@acme.com")
	assert.Equal(t, a, b)
}

func TestRowKeyFromCells_ShortRow(t *testing.T) {
	t.Parallel()

	k := RowKeyFromCells([]string{"Acme", "https://acme.com"})
	assert.Equal(t, "acme", k[0])
	assert.Equal(t, "https://acme.com", k.URLField())
	assert.Equal(t, "", k[2])
	assert.Equal(t, "", k[3])
}

func TestContactRecord_Row(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	rec := &ContactRecord{
		Organization: "Acme Robotics",
		URLs:         []string{"https://acme.com", "https://acme.com/contact"},
		Phones:       []string{"(262) 822-9274"},
		Emails:       []string{"grants@acme.com", "info@acme.com"},
		Timestamp:    ts,
	}

	row := rec.Row()
	require.Len(t, row, len(SheetHeader))
	assert.Equal(t, "Acme Robotics", row[0])
	assert.Equal(t, "https://acme.com, https://acme.com/contact", row[1])
	assert.Equal(t, "(262) 822-9274", row[2])
	assert.Equal(t, "grants@acme.com, info@acme.com", row[3])
	assert.Equal(t, "2025-06-01T12:30:00Z", row[4])
}

func TestContactRecord_KeyMatchesStoredRow(t *testing.T) {
	t.Parallel()

	rec := &ContactRecord{
		Organization: "Acme Robotics",
		URLs:         []string{"https://acme.com"},
		Emails:       []string{"Info@Acme.com"},
		Timestamp:    time.Now(),
	}

	// A record's key must equal the key recomputed from its persisted cells.
	assert.Equal(t, rec.Key(), RowKeyFromCells(rec.Row()))
}

func TestContactRecord_HasContacts(t *testing.T) {
	t.Parallel()

	assert.False(t, (&ContactRecord{Organization: "Empty Co"}).HasContacts())
	assert.True(t, (&ContactRecord{Emails: []string{"a@b.co"}}).HasContacts())
	assert.True(t, (&ContactRecord{Phones: []string{"5551234567"}}).HasContacts())
}
