package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/extract"
	"github.com/greenridge/replen/internal/reconcile"
)

// archiveDirName is where merged snapshot files move so a later scan never
// reprocesses them.
const archiveDirName = "Archive"

var snapshotDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// FileOutcome records what happened to one inbox file during a batch.
type FileOutcome struct {
	File    string `json:"file"`
	Status  string `json:"status"` // merged | skipped | failed
	Rows    int    `json:"rows"`
	Removed int    `json:"removed_rows"` // prior rows overwritten for the same date
	Reason  string `json:"reason,omitempty"`
}

// BatchSummary is the result of one ingestion pass over the inbox.
type BatchSummary struct {
	Scanned  int           `json:"scanned"`
	Merged   int           `json:"merged"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Files    []FileOutcome `json:"files"`
	Duration time.Duration `json:"-"`
}

// Ingestor feeds the memory bank from the snapshot inbox. The store is a
// single-writer resource; concurrent Run calls against one Ingestor are
// serialized away by an internal guard rather than supported.
type Ingestor struct {
	store   *Store
	cfg     config.HistoryConfig
	columns config.ColumnMap
	guard   *semaphore.Weighted
}

// NewIngestor creates an Ingestor for the given store.
func NewIngestor(store *Store, cfg config.HistoryConfig, columns config.ColumnMap) *Ingestor {
	return &Ingestor{
		store:   store,
		cfg:     cfg,
		columns: columns,
		guard:   semaphore.NewWeighted(1),
	}
}

// Run executes one ingestion batch: scan the inbox, then per file parse,
// validate, and merge; archive what merged. Files are processed sequentially;
// one file's failure never rolls back another's completed merge. The store is
// left consistent with whichever files finished.
func (ing *Ingestor) Run(ctx context.Context) (*BatchSummary, error) {
	if !ing.guard.TryAcquire(1) {
		return nil, fmt.Errorf("history: ingestion already in progress")
	}
	defer ing.guard.Release(1)

	start := time.Now()
	summary := &BatchSummary{}

	files, err := ing.scan()
	if err != nil {
		return nil, err
	}
	summary.Scanned = len(files)
	if len(files) == 0 {
		log.Info().Str("inbox", ing.cfg.InboxDir).Msg("no snapshot files to ingest")
		summary.Duration = time.Since(start)
		return summary, nil
	}

	archiveDir := filepath.Join(ing.cfg.BankDir, archiveDirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create archive dir: %w", err)
	}

	for _, path := range files {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(start)
			return summary, ctx.Err()
		default:
		}

		outcome := ing.processFile(ctx, path, archiveDir)
		summary.Files = append(summary.Files, outcome)
		switch outcome.Status {
		case "merged":
			summary.Merged++
		case "skipped":
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	total, err := ing.store.RowCount(ctx)
	if err == nil {
		log.Info().Int("merged_files", summary.Merged).Int("total_rows", total).Msg("memory bank updated")
	}
	summary.Duration = time.Since(start)
	return summary, nil
}

// scan lists inbox files matching the snapshot naming convention, sorted for
// deterministic processing order.
func (ing *Ingestor) scan() ([]string, error) {
	entries, err := os.ReadDir(ing.cfg.InboxDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: scan inbox %s: %w", ing.cfg.InboxDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ing.cfg.FilePrefix != "" && !strings.HasPrefix(name, ing.cfg.FilePrefix) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		files = append(files, filepath.Join(ing.cfg.InboxDir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (ing *Ingestor) processFile(ctx context.Context, path, archiveDir string) FileOutcome {
	name := filepath.Base(path)
	outcome := FileOutcome{File: name}

	reportDate, err := snapshotEndDate(name)
	if err != nil {
		outcome.Status = "skipped"
		outcome.Reason = err.Error()
		log.Warn().Str("file", name).Msg("skipping: filename has no valid date range")
		return outcome
	}

	// Best-effort lock check: a file an exporter still holds open cannot be
	// renamed on platforms that lock on write.
	if err := os.Rename(path, path); err != nil {
		outcome.Status = "skipped"
		outcome.Reason = "file is open or locked"
		log.Warn().Str("file", name).Msg("skipping: file is open or locked")
		return outcome
	}

	rows, err := ing.parseSnapshot(path, reportDate)
	if err != nil {
		outcome.Status = "failed"
		outcome.Reason = err.Error()
		log.Error().Err(err).Str("file", name).Msg("snapshot parse failed")
		return outcome
	}
	if len(rows) == 0 {
		outcome.Status = "failed"
		outcome.Reason = "no usable rows after column mapping"
		log.Error().Str("file", name).Msg("snapshot rejected: no usable rows after column mapping")
		return outcome
	}

	removed, err := ing.store.ReplaceDate(ctx, reportDate, rows)
	if err != nil {
		outcome.Status = "failed"
		outcome.Reason = err.Error()
		log.Error().Err(err).Str("file", name).Msg("snapshot merge failed")
		return outcome
	}
	if removed > 0 {
		log.Info().Str("file", name).Int("rows", removed).Str("date", reportDate.Format(dateLayout)).Msg("overwrote prior records for snapshot date")
	}

	if err := os.Rename(path, filepath.Join(archiveDir, name)); err != nil {
		// The merge already committed; a stuck archive move is a warning,
		// not a rollback.
		log.Warn().Err(err).Str("file", name).Msg("could not archive snapshot file")
	}

	outcome.Status = "merged"
	outcome.Rows = len(rows)
	outcome.Removed = removed
	log.Info().Str("file", name).Int("rows", len(rows)).Str("date", reportDate.Format(dateLayout)).Msg("snapshot merged")
	return outcome
}

// parseSnapshot reads one snapshot file into aggregated store rows, applying
// the same SKU and location normalization as reconciliation.
func (ing *Ingestor) parseSnapshot(path string, reportDate time.Time) ([]Row, error) {
	t, err := extract.ReadTable(path)
	if err != nil {
		return nil, err
	}

	idxSKU := t.ColIndex(ing.columns.SKU)
	idxQty := t.ColIndex(ing.columns.QtySold)
	if idxSKU < 0 || idxQty < 0 {
		return nil, fmt.Errorf("missing %q or %q column", ing.columns.SKU, ing.columns.QtySold)
	}
	idxLoc := t.ColIndex(ing.columns.Location)
	idxNet := t.ColIndex(ing.columns.NetSales)
	idxGross := t.ColIndex(ing.columns.GrossSales)
	idxProfit := t.ColIndex(ing.columns.Profit)

	type key struct {
		sku string
		loc string
	}
	agg := make(map[key]*Row)
	dateStr := reportDate.Format(dateLayout)

	for _, record := range t.Rows {
		sku := domain.NormalizeSKU(t.Cell(record, idxSKU))
		if sku == domain.NoValue {
			continue
		}
		loc := string(domain.NormalizeLocation(t.Cell(record, idxLoc)))

		k := key{sku, loc}
		row, ok := agg[k]
		if !ok {
			row = &Row{SKU: sku, Location: loc, ReportEndDate: dateStr}
			agg[k] = row
		}
		row.Quantity += reconcile.CleanCurrency(t.Cell(record, idxQty))
		row.NetSales += reconcile.CleanCurrency(t.Cell(record, idxNet))
		row.GrossSales += reconcile.CleanCurrency(t.Cell(record, idxGross))
		row.Profit += reconcile.CleanCurrency(t.Cell(record, idxProfit))
	}

	rows := make([]Row, 0, len(agg))
	for _, row := range agg {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SKU != rows[j].SKU {
			return rows[i].SKU < rows[j].SKU
		}
		return rows[i].Location < rows[j].Location
	})
	return rows, nil
}

// snapshotEndDate extracts the report end date from a snapshot filename. The
// convention embeds the covered range as two YYYY-MM-DD dates; the later one
// is the report end.
func snapshotEndDate(filename string) (time.Time, error) {
	matches := snapshotDatePattern.FindAllString(filename, -1)
	if len(matches) < 2 {
		return time.Time{}, fmt.Errorf("filename %q does not embed a date range", filename)
	}

	var end time.Time
	for _, m := range matches {
		d, err := time.Parse(dateLayout, m)
		if err != nil {
			return time.Time{}, fmt.Errorf("filename %q has invalid date %q", filename, m)
		}
		if d.After(end) {
			end = d
		}
	}
	return end, nil
}
