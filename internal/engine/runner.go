package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/history"
	"github.com/greenridge/replen/internal/reconcile"
)

const defaultWorkers = 4

// Diagnostic is one non-fatal observation surfaced during a run. Diagnostics
// are advisory; they never change a report row.
type Diagnostic struct {
	SKU      string          `json:"sku"`
	Location domain.Location `json:"location"`
	Message  string          `json:"message"`
}

// RunnerOptions configures a Runner. History is optional; when nil the engine
// scores on the snapshot window alone, exactly as if the memory bank were
// empty.
type RunnerOptions struct {
	Rules         domain.RuleSet
	History       *history.Store
	WindowWeeks   int
	MinSnapshots  int
	AccessoryHold bool
	ReportDays    float64
	ReportStart   time.Time
	Workers       int
}

// Runner fans reconciled SKU records out across a worker pool and produces
// one report row per (SKU, location) pair.
type Runner struct {
	opts RunnerOptions
}

// NewRunner validates options and builds a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := opts.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid rules: %w", err)
	}
	if opts.ReportDays <= 0 {
		return nil, fmt.Errorf("engine: report window must be positive, got %v", opts.ReportDays)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MinSnapshots < 1 {
		opts.MinSnapshots = 1
	}
	return &Runner{opts: opts}, nil
}

// Result is the complete output of one analysis run.
type Result struct {
	Rows        []domain.SKUReport `json:"rows"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Run scores every (SKU, location) pair in the reconciled records. Workers
// write into preallocated result slots, so no ordering or locking is needed
// beyond the errgroup itself. Any per-pair failure aborts the run; there is
// no partial result.
func (r *Runner) Run(ctx context.Context, records []reconcile.SKURecord) (*Result, error) {
	type pair struct {
		record reconcile.SKURecord
		loc    domain.Location
	}

	var pairs []pair
	for _, rec := range records {
		for _, loc := range domain.Locations {
			if _, ok := rec.Locations[loc]; !ok {
				continue
			}
			pairs = append(pairs, pair{rec, loc})
		}
	}

	rows := make([]domain.SKUReport, len(pairs))
	diags := make(chan Diagnostic, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			row, diag, err := r.score(ctx, p.record, p.loc)
			if err != nil {
				return fmt.Errorf("score %s at %s: %w", p.record.SKU, p.loc, err)
			}
			rows[i] = row
			if diag != nil {
				diags <- *diag
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(diags)

	result := &Result{Rows: rows, GeneratedAt: time.Now()}
	for d := range diags {
		log.Warn().Str("sku", d.SKU).Str("location", string(d.Location)).Msg(d.Message)
		result.Diagnostics = append(result.Diagnostics, d)
	}
	sort.Slice(result.Diagnostics, func(i, j int) bool {
		a, b := result.Diagnostics[i], result.Diagnostics[j]
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		return a.Location < b.Location
	})
	return result, nil
}

// RunAsync starts a run in the background and invokes done with the outcome.
// Intended for the API surface, where the HTTP handler returns immediately.
func (r *Runner) RunAsync(ctx context.Context, records []reconcile.SKURecord, done func(*Result, error)) {
	go func() {
		res, err := r.Run(ctx, records)
		if err != nil {
			log.Error().Err(err).Msg("analysis run failed")
		}
		done(res, err)
	}()
}

// score produces the report row for one (SKU, location) pair.
func (r *Runner) score(ctx context.Context, rec reconcile.SKURecord, loc domain.Location) (domain.SKUReport, *Diagnostic, error) {
	lm := rec.Locations[loc]

	m, err := domain.NewInventoryMetrics(lm.Stock, lm.Incoming, lm.UnitsSold, r.opts.ReportDays, r.opts.ReportStart, lm.LastSale)
	if err != nil {
		return domain.SKUReport{}, nil, err
	}

	velocity := Velocity(m)
	trend := ""
	var diag *Diagnostic

	if r.opts.History != nil {
		rolling, err := r.opts.History.RollingVelocity(ctx, rec.SKU, string(loc), r.opts.ReportStart.AddDate(0, 0, int(r.opts.ReportDays)), r.opts.WindowWeeks)
		if err != nil {
			return domain.SKUReport{}, nil, err
		}
		// The bank overrides the snapshot velocity only when it has both
		// signal and depth; a single thin snapshot stays advisory.
		if rolling.Velocity > 0 && rolling.Snapshots >= r.opts.MinSnapshots {
			velocity = rolling.Velocity
			trend = rolling.Trend
		} else if rolling.Snapshots > 0 && rolling.Snapshots < r.opts.MinSnapshots {
			diag = &Diagnostic{
				SKU:      rec.SKU,
				Location: loc,
				Message:  fmt.Sprintf("history too shallow (%d of %d snapshots), using report-window velocity", rolling.Snapshots, r.opts.MinSnapshots),
			}
		}
	}

	status := Classify(velocity, m, r.opts.Rules.For(rec.Class))

	soq := SuggestedOrderQty(velocity, m, r.opts.Rules.For(rec.Class), rec.CaseSize, rec.Class, r.opts.AccessoryHold)

	// The report column shows on-hand coverage only; incoming units count
	// toward classification, not the displayed WOS.
	wos, err := EffectiveWOS(lm.Stock, 0, velocity, SilenceThreshold)
	if err != nil {
		return domain.SKUReport{}, nil, err
	}

	return domain.SKUReport{
		SKU:          rec.SKU,
		ProductName:  rec.ProductName,
		Category:     rec.Category,
		Brand:        rec.Brand,
		Class:        rec.Class,
		Location:     loc,
		Status:       status,
		SOQ:          soq,
		Velocity:     velocity,
		WeeksOfStock: wos,
		Stock:        lm.Stock,
		Incoming:     lm.Incoming,
		UnitsSold:    lm.UnitsSold,
		CaseSize:     rec.CaseSize,
		Trend:        trend,
	}, diag, nil
}
