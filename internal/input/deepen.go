package input

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ReadDeepen loads a previous run's output CSV for the deepen pass:
// organizations paired with the first URL recorded for them, used as the
// site seed instead of a fresh search.
func ReadDeepen(path string) ([]model.Organization, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("input: deepen file %s has no data rows", path)
	}

	orgIdx, urlIdx := columnIndexes(rows[0])
	if orgIdx < 0 || urlIdx < 0 {
		return nil, eris.Errorf("input: deepen file %s missing Organization/URLs columns", path)
	}

	seen := make(map[string]bool)
	var orgs []model.Organization
	for _, row := range rows[1:] {
		if len(row) <= orgIdx {
			continue
		}
		name := strings.TrimSpace(row[orgIdx])
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		org := model.Organization{Name: name}
		if len(row) > urlIdx {
			// The URLs column joins multiple URLs with ", "; the first
			// is the seed.
			if first, _, _ := strings.Cut(row[urlIdx], ","); strings.TrimSpace(first) != "" {
				org.SeedURL = strings.TrimSpace(first)
			}
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}

func columnIndexes(header []string) (orgIdx, urlIdx int) {
	orgIdx, urlIdx = -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "organization", "company name", "company":
			if orgIdx < 0 {
				orgIdx = i
			}
		case "urls", "url":
			if urlIdx < 0 {
				urlIdx = i
			}
		}
	}
	return orgIdx, urlIdx
}
