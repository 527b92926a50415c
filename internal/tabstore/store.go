// Package tabstore abstracts the append-only tabular store behind the
// pipeline: a remote spreadsheet in production, a local SQLite table for
// offline runs and tests. Rows are 1-indexed with the header as row 1.
package tabstore

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/pkg/sheets"
)

// CellUpdate writes a contiguous horizontal run of cells. Row and Col are
// 1-indexed (A1 is Row 1, Col 1).
type CellUpdate struct {
	Row    int
	Col    int
	Values []string
}

// Store is the persisted-store capability.
type Store interface {
	// ReadAll returns every row; row 0 of the result is the header.
	ReadAll(ctx context.Context) ([][]string, error)
	// Append adds one row after the last row.
	Append(ctx context.Context, row []string) error
	// DeleteRows removes rows by 1-indexed position, header counted as
	// row 1. Callers pass indices sorted descending so deletions never
	// shift a not-yet-deleted row.
	DeleteRows(ctx context.Context, indices []int) error
	// UpdateCells applies batch cell writes.
	UpdateCells(ctx context.Context, updates []CellUpdate) error
	Close() error
}

// New builds a Store from configuration, selected by store.driver.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sheets", "":
		client := sheets.NewClient(cfg.Token, sheets.WithBaseURL(cfg.BaseURL))
		return NewSheets(client, cfg.SpreadsheetID, cfg.SheetName, cfg.SheetGID), nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("tabstore: unknown driver %q", cfg.Driver)
	}
}

// EnsureHeader appends the header row iff the store is empty.
func EnsureHeader(ctx context.Context, s Store, header []string) error {
	rows, err := s.ReadAll(ctx)
	if err != nil {
		return eris.Wrap(err, "tabstore: read for header check")
	}
	if len(rows) > 0 {
		return nil
	}
	if err := s.Append(ctx, header); err != nil {
		return eris.Wrap(err, "tabstore: append header")
	}
	return nil
}
