package tabstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the local tabular driver: one table whose autoincrement
// position column preserves append order, cells stored as a JSON array.
// The 1-indexed row view is identical to the sheet's.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a local store at the given path.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "tabstore: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "tabstore: exec %s", pragma)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sheet_rows (
		pos   INTEGER PRIMARY KEY AUTOINCREMENT,
		cells TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "tabstore: migrate")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cells FROM sheet_rows ORDER BY pos`)
	if err != nil {
		return nil, eris.Wrap(err, "tabstore: select rows")
	}
	defer func() { _ = rows.Close() }()

	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "tabstore: scan row")
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, eris.Wrap(err, "tabstore: decode cells")
		}
		out = append(out, cells)
	}
	return out, eris.Wrap(rows.Err(), "tabstore: iterate rows")
}

func (s *SQLiteStore) Append(ctx context.Context, row []string) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return eris.Wrap(err, "tabstore: encode cells")
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sheet_rows (cells) VALUES (?)`, string(raw))
	return eris.Wrap(err, "tabstore: insert row")
}

func (s *SQLiteStore) DeleteRows(ctx context.Context, indices []int) error {
	if len(indices) == 0 {
		return nil
	}

	// Positions are not contiguous after earlier deletions; map the
	// 1-indexed view onto stored positions from one snapshot.
	positions, err := s.positions(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "tabstore: begin delete")
	}
	defer func() { _ = tx.Rollback() }()

	for _, idx := range indices {
		if idx < 1 || idx > len(positions) {
			return eris.Errorf("tabstore: row index %d out of range (%d rows)", idx, len(positions))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE pos = ?`, positions[idx-1]); err != nil {
			return eris.Wrapf(err, "tabstore: delete row %d", idx)
		}
	}
	return eris.Wrap(tx.Commit(), "tabstore: commit delete")
}

func (s *SQLiteStore) UpdateCells(ctx context.Context, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	positions, err := s.positions(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "tabstore: begin update")
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range updates {
		if u.Row < 1 || u.Row > len(positions) || u.Col < 1 || len(u.Values) == 0 {
			return eris.Errorf("tabstore: invalid cell update %+v", u)
		}
		pos := positions[u.Row-1]

		var raw string
		if err := tx.QueryRowContext(ctx, `SELECT cells FROM sheet_rows WHERE pos = ?`, pos).Scan(&raw); err != nil {
			return eris.Wrapf(err, "tabstore: read row %d", u.Row)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return eris.Wrapf(err, "tabstore: decode row %d", u.Row)
		}

		for len(cells) < u.Col+len(u.Values)-1 {
			cells = append(cells, "")
		}
		copy(cells[u.Col-1:], u.Values)

		updated, err := json.Marshal(cells)
		if err != nil {
			return eris.Wrapf(err, "tabstore: encode row %d", u.Row)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE sheet_rows SET cells = ? WHERE pos = ?`, string(updated), pos); err != nil {
			return eris.Wrapf(err, "tabstore: update row %d", u.Row)
		}
	}
	return eris.Wrap(tx.Commit(), "tabstore: commit update")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// positions returns stored row positions in sheet order.
func (s *SQLiteStore) positions(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pos FROM sheet_rows ORDER BY pos`)
	if err != nil {
		return nil, eris.Wrap(err, "tabstore: select positions")
	}
	defer func() { _ = rows.Close() }()

	var positions []int64
	for rows.Next() {
		var pos int64
		if err := rows.Scan(&pos); err != nil {
			return nil, eris.Wrap(err, "tabstore: scan position")
		}
		positions = append(positions, pos)
	}
	return positions, eris.Wrap(rows.Err(), "tabstore: iterate positions")
}
