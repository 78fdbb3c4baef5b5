package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// dateLayout is the canonical snapshot-date encoding, both in filenames and
// in the store. ISO dates compare correctly as text.
const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS sales_history (
	sku             TEXT NOT NULL,
	location        TEXT NOT NULL,
	report_end_date TEXT NOT NULL,
	quantity        REAL NOT NULL DEFAULT 0,
	net_sales       REAL NOT NULL DEFAULT 0,
	gross_sales     REAL NOT NULL DEFAULT 0,
	profit          REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (sku, location, report_end_date)
);
CREATE INDEX IF NOT EXISTS idx_sales_history_date ON sales_history (report_end_date);
`

// Row is one deduplicated snapshot observation: quantity sold for a SKU at a
// location in the report period ending at ReportEndDate.
type Row struct {
	SKU           string  `db:"sku"`
	Location      string  `db:"location"`
	ReportEndDate string  `db:"report_end_date"`
	Quantity      float64 `db:"quantity"`
	NetSales      float64 `db:"net_sales"`
	GrossSales    float64 `db:"gross_sales"`
	Profit        float64 `db:"profit"`
}

// Store is the memory bank: the durable, deduplicated union of all ingested
// sales snapshots. It is a single-writer resource; callers serialize
// ingestion runs against the same store.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open opens (or creates) the memory bank at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history: store path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("history: create store dir: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the store's on-disk location.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// ReplaceDate removes every existing row for the given report end date and
// inserts the replacement rows in one transaction. This is what makes
// ingestion idempotent: re-ingesting a snapshot date always converges on the
// same end state.
func (s *Store) ReplaceDate(ctx context.Context, date time.Time, rows []Row) (removed int, err error) {
	dateStr := date.Format(dateLayout)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin merge: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM sales_history WHERE report_end_date = ?`, dateStr)
	if err != nil {
		return 0, fmt.Errorf("history: clear date %s: %w", dateStr, err)
	}
	if n, raErr := res.RowsAffected(); raErr == nil {
		removed = int(n)
	}

	const insert = `
		INSERT INTO sales_history (sku, location, report_end_date, quantity, net_sales, gross_sales, profit)
		VALUES (:sku, :location, :report_end_date, :quantity, :net_sales, :gross_sales, :profit)
		ON CONFLICT (sku, location, report_end_date) DO UPDATE SET
			quantity    = quantity + excluded.quantity,
			net_sales   = net_sales + excluded.net_sales,
			gross_sales = gross_sales + excluded.gross_sales,
			profit      = profit + excluded.profit`
	for i := range rows {
		rows[i].ReportEndDate = dateStr
		if _, err = tx.NamedExecContext(ctx, insert, rows[i]); err != nil {
			return 0, fmt.Errorf("history: insert row for %s: %w", rows[i].SKU, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit merge: %w", err)
	}
	return removed, nil
}

// RowCount reports the total number of rows in the bank.
func (s *Store) RowCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sales_history`); err != nil {
		return 0, fmt.Errorf("history: count rows: %w", err)
	}
	return n, nil
}

// SnapshotDates lists the distinct report end dates present, newest first.
func (s *Store) SnapshotDates(ctx context.Context) ([]time.Time, error) {
	var raw []string
	err := s.db.SelectContext(ctx, &raw,
		`SELECT DISTINCT report_end_date FROM sales_history ORDER BY report_end_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("history: list snapshot dates: %w", err)
	}

	dates := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		d, err := time.Parse(dateLayout, r)
		if err != nil {
			return nil, fmt.Errorf("history: corrupt snapshot date %q: %w", r, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Empty reports whether the bank has no rows yet.
func (s *Store) Empty(ctx context.Context) (bool, error) {
	n, err := s.RowCount(ctx)
	return n == 0, err
}

// windowSum returns the total quantity and the number of distinct snapshot
// dates for a SKU/location inside (from, to]. Windows are half-open at the
// lower bound, so a snapshot dated exactly on the boundary between the
// trailing and prior windows counts once, in the prior window.
func (s *Store) windowSum(ctx context.Context, sku, location string, from, to time.Time) (float64, int, error) {
	var agg struct {
		Quantity  float64 `db:"quantity"`
		Snapshots int     `db:"snapshots"`
	}
	err := s.db.GetContext(ctx, &agg, `
		SELECT COALESCE(SUM(quantity), 0) AS quantity,
		       COUNT(DISTINCT report_end_date) AS snapshots
		FROM sales_history
		WHERE sku = ? AND location = ?
		  AND report_end_date > ? AND report_end_date <= ?`,
		sku, location, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return 0, 0, fmt.Errorf("history: window sum for %s/%s: %w", sku, location, err)
	}
	return agg.Quantity, agg.Snapshots, nil
}
