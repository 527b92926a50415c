package tabstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/sheets"
)

// SheetsStore adapts the Sheets API client to the Store interface.
type SheetsStore struct {
	client        sheets.Client
	spreadsheetID string
	sheetName     string
	sheetGID      int
}

// NewSheets wraps a Sheets client for one spreadsheet tab.
func NewSheets(client sheets.Client, spreadsheetID, sheetName string, sheetGID int) *SheetsStore {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &SheetsStore{
		client:        client,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		sheetGID:      sheetGID,
	}
}

func (s *SheetsStore) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := s.client.GetValues(ctx, s.spreadsheetID, s.sheetName)
	return rows, s.classify(err)
}

func (s *SheetsStore) Append(ctx context.Context, row []string) error {
	return s.classify(s.client.AppendRow(ctx, s.spreadsheetID, s.sheetName, row))
}

func (s *SheetsStore) DeleteRows(ctx context.Context, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	// Store indices are 1-based with the header as row 1; the API takes
	// 0-based row indexes on the tab.
	zeroBased := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 1 {
			return eris.Errorf("tabstore: invalid row index %d", idx)
		}
		zeroBased = append(zeroBased, idx-1)
	}
	return s.classify(s.client.DeleteRows(ctx, s.spreadsheetID, s.sheetGID, zeroBased))
}

func (s *SheetsStore) UpdateCells(ctx context.Context, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		if u.Row < 1 || u.Col < 1 || len(u.Values) == 0 {
			return eris.Errorf("tabstore: invalid cell update %+v", u)
		}
		data = append(data, sheets.ValueRange{
			Range:  s.rangeFor(u),
			Values: [][]string{u.Values},
		})
	}
	return s.classify(s.client.BatchUpdateValues(ctx, s.spreadsheetID, data))
}

func (s *SheetsStore) Close() error { return nil }

// rangeFor renders a CellUpdate as an A1 range on the configured tab,
// e.g. {Row: 5, Col: 6, Values: 2 cells} -> "Sheet1!F5:G5".
func (s *SheetsStore) rangeFor(u CellUpdate) string {
	start := columnName(u.Col)
	end := columnName(u.Col + len(u.Values) - 1)
	if start == end {
		return fmt.Sprintf("%s!%s%d", s.sheetName, start, u.Row)
	}
	return fmt.Sprintf("%s!%s%d:%s%d", s.sheetName, start, u.Row, end, u.Row)
}

// columnName converts a 1-based column number to its letter name (1 -> A,
// 27 -> AA).
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

// classify marks retryable API responses as transient so the writer can
// pick its backoff, quota errors included.
func (s *SheetsStore) classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *sheets.APIError
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}
