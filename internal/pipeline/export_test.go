package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func TestExportCSV(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	records := []*model.ContactRecord{
		{
			Organization: "Acme Robotics",
			URLs:         []string{"https://acme.example/contact", "https://acme.example/about"},
			Phones:       []string{"(262) 822-9274"},
			Emails:       []string{"grants@acme.example"},
			Timestamp:    ts,
		},
		{
			Organization: "Widget Co",
			Emails:       []string{"info@widget.example"},
			Timestamp:    ts,
		},
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, ExportCSV(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, model.SheetHeader, rows[0])
	assert.Equal(t, []string{
		"Acme Robotics",
		"https://acme.example/contact, https://acme.example/about",
		"(262) 822-9274",
		"grants@acme.example",
		"2026-03-14T09:26:53Z",
	}, rows[1])
	assert.Equal(t, "Widget Co", rows[2][0])
	assert.Empty(t, rows[2][1])
}

func TestExportCSV_EmptyRunStillWritesHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, ExportCSV(path, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.SheetHeader, rows[0])
}

func TestExportCSV_BadPath(t *testing.T) {
	t.Parallel()

	err := ExportCSV(filepath.Join(t.TempDir(), "missing", "out.csv"), nil)
	assert.Error(t, err)
}
