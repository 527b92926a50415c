// Package input loads organization lists from local CSV or XLSX files.
package input

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
)

// headerWords mark a first row as a header rather than data.
var headerWords = map[string]bool{
	"organization": true,
	"company":      true,
	"company name": true,
	"name":         true,
}

// ReadOrganizations loads organization names from the first column of a
// CSV or XLSX file, skipping a leading header row, blank entries, and
// case-insensitive duplicates (first-seen order preserved).
func ReadOrganizations(path string) ([]model.Organization, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, eris.Errorf("input: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return firstColumn(rows), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open %s", path)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "input: read csv %s", path)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("input: xlsx %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// firstColumn extracts unique organization names from column A.
func firstColumn(rows [][]string) []model.Organization {
	seen := make(map[string]bool)
	var orgs []model.Organization

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		if i == 0 && headerWords[strings.ToLower(name)] {
			continue
		}

		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		orgs = append(orgs, model.Organization{Name: name})
	}
	return orgs
}
