package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/engine"
	"github.com/greenridge/replen/internal/extract"
	"github.com/greenridge/replen/internal/history"
	"github.com/greenridge/replen/internal/reconcile"
	"github.com/greenridge/replen/internal/report"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing. Runs are serialized; results are whole-run or nothing.
var ErrRunInProgress = errors.New("analysis run already in progress")

// AnalysisInputs names the source files for one run. Transfer files are
// outbound from the purchase-order destination; the receiving store is
// inferred from each filename.
type AnalysisInputs struct {
	InventoryPath      string   `json:"inventory"`
	SalesPath          string   `json:"sales"`
	PurchaseOrderPaths []string `json:"purchase_orders"`
	TransferPaths      []string `json:"transfers"`
	CaseRefPath        string   `json:"case_ref"`
	OutputPath         string   `json:"output"`
	WindowDays         float64  `json:"window_days"` // overrides the configured report window when positive
}

// AnalysisService runs the replenishment pipeline end to end and retains the
// most recent result for the API.
type AnalysisService struct {
	cfg   *config.Config
	store *history.Store

	running atomic.Bool

	mu      sync.RWMutex
	latest  *engine.Result
	summary *reconcile.Summary
}

// NewAnalysisService builds the service. store may be nil when no memory
// bank is configured; runs then score on the snapshot window alone.
func NewAnalysisService(cfg *config.Config, store *history.Store) *AnalysisService {
	return &AnalysisService{cfg: cfg, store: store}
}

// Run executes one full analysis: extract, reconcile, score, and optionally
// write the order-builder workbook. Only one run executes at a time.
func (s *AnalysisService) Run(ctx context.Context, in AnalysisInputs) (*engine.Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	runner, records, summary, err := s.prepare(in)
	if err != nil {
		return nil, err
	}
	result, err := runner.Run(ctx, records)
	if err != nil {
		return nil, err
	}
	if err := s.finish(in, result, summary, len(records), start); err != nil {
		return nil, err
	}
	return result, nil
}

// RunAsync reads and reconciles the inputs synchronously, so input errors
// surface to the caller, then scores in the background. The in-progress guard
// stays held until the run finishes; done receives the outcome.
func (s *AnalysisService) RunAsync(ctx context.Context, in AnalysisInputs, done func(*engine.Result, error)) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}

	start := time.Now()
	runner, records, summary, err := s.prepare(in)
	if err != nil {
		s.running.Store(false)
		return err
	}

	runner.RunAsync(ctx, records, func(result *engine.Result, err error) {
		if err == nil {
			err = s.finish(in, result, summary, len(records), start)
		}
		s.running.Store(false)
		if done != nil {
			done(result, err)
		}
	})
	return nil
}

// prepare reads every input file, reconciles the records, and builds the
// configured runner.
func (s *AnalysisService) prepare(in AnalysisInputs) (*engine.Runner, []reconcile.SKURecord, *reconcile.Summary, error) {
	inventory, err := extract.ReadInventory(in.InventoryPath, s.cfg.Columns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read inventory: %w", err)
	}
	sales, err := extract.ReadSales(in.SalesPath, s.cfg.Columns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read sales: %w", err)
	}

	var transfers []domain.TransferRecord
	for _, path := range in.TransferPaths {
		dest := inferTransferDest(path)
		rows, err := extract.ReadTransfers(path, s.cfg.Columns, s.cfg.App.PODestination, dest)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("read transfers %s: %w", path, err)
		}
		transfers = append(transfers, rows...)
	}

	var purchaseOrders []domain.PurchaseOrderRecord
	for _, path := range in.PurchaseOrderPaths {
		rows, err := extract.ReadPurchaseOrders(path, s.cfg.Columns)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("read purchase orders %s: %w", path, err)
		}
		purchaseOrders = append(purchaseOrders, rows...)
	}

	caseSizes := map[string]int{}
	if in.CaseRefPath != "" {
		caseSizes, err = extract.ReadCaseSizes(in.CaseRefPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("read case reference: %w", err)
		}
	}

	rec := reconcile.NewReconciler()
	records, summary, err := rec.Reconcile(reconcile.Inputs{
		Inventory:      inventory,
		Sales:          sales,
		Transfers:      transfers,
		PurchaseOrders: purchaseOrders,
		CaseSizes:      caseSizes,
		PODestination:  s.cfg.App.PODestination,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reconcile: %w", err)
	}

	windowDays := s.cfg.App.ReportWindowDays
	if in.WindowDays > 0 {
		windowDays = in.WindowDays
	}
	runner, err := engine.NewRunner(engine.RunnerOptions{
		Rules:         s.cfg.Rules,
		History:       s.store,
		WindowWeeks:   s.cfg.History.WindowWeeks,
		MinSnapshots:  s.cfg.History.MinSnapshots,
		AccessoryHold: s.cfg.App.AccessoryHold,
		ReportDays:    windowDays,
		ReportStart:   time.Now().AddDate(0, 0, -int(windowDays)),
		Workers:       s.cfg.App.Workers,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return runner, records, summary, nil
}

// finish writes the workbook when requested and retains the result for the
// API. The run counts as failed if the workbook cannot be written.
func (s *AnalysisService) finish(in AnalysisInputs, result *engine.Result, summary *reconcile.Summary, skus int, start time.Time) error {
	if in.OutputPath != "" {
		if err := report.WriteWorkbook(in.OutputPath, result); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.latest = result
	s.summary = summary
	s.mu.Unlock()

	log.Info().
		Int("skus", skus).
		Int("rows", len(result.Rows)).
		Int("excluded", summary.ExcludedSKUs).
		Dur("elapsed", time.Since(start)).
		Msg("analysis run complete")
	return nil
}

// Running reports whether a run is executing right now.
func (s *AnalysisService) Running() bool {
	return s.running.Load()
}

// Latest returns the most recent completed result, if any.
func (s *AnalysisService) Latest() (*engine.Result, *reconcile.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, nil, false
	}
	return s.latest, s.summary, true
}

// inferTransferDest matches a known store name inside the filename. Files
// without a recognizable store fall back to the unmapped location, which the
// reconciler surfaces as a warning.
func inferTransferDest(path string) domain.Location {
	name := strings.ToLower(filepath.Base(path))
	for _, loc := range domain.Locations {
		if strings.Contains(name, strings.ToLower(string(loc))) {
			return loc
		}
	}
	return domain.LocationUnmapped
}
