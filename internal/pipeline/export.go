package pipeline

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ExportCSV writes the run's records to a local CSV with the store's five
// columns, header included.
func ExportCSV(path string, records []*model.ContactRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create export file %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(model.SheetHeader); err != nil {
		return eris.Wrap(err, "pipeline: write export header")
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return eris.Wrap(err, "pipeline: write export row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "pipeline: flush export")
	}
	return nil
}
