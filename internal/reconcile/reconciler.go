package reconcile

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greenridge/replen/internal/domain"
)

// InventoryRow is one row of the inventory extract after the file boundary
// has resolved which raw columns belong to which location. Cell values stay
// raw strings; currency cleaning happens here, in one place.
type InventoryRow struct {
	SKU         string // raw, normalized during reconciliation
	ProductName string
	Category    string
	Brand       string
	StockCells  map[domain.Location][]string
}

// SalesRow is one row of the sales extract.
type SalesRow struct {
	SKU      string // raw
	Location string // raw, normalized during reconciliation
	QtySold  string // raw cell, currency-style
	LastSale *time.Time
}

// Inputs carries everything one reconciliation pass consumes.
type Inputs struct {
	Inventory      []InventoryRow
	Sales          []SalesRow
	Transfers      []domain.TransferRecord
	PurchaseOrders []domain.PurchaseOrderRecord
	CaseSizes      map[string]int // normalized SKU -> units per case
	PODestination  domain.Location
}

// LocationMetrics is the reconciled triple for one SKU at one location.
type LocationMetrics struct {
	Stock     int
	Incoming  int
	UnitsSold float64
	LastSale  *time.Time
}

// SKURecord is one catalogue entry with its reconciled per-location metrics.
type SKURecord struct {
	SKU         string
	ProductName string
	Category    string
	Brand       string
	Class       domain.ProductClass
	CaseSize    int
	Locations   map[domain.Location]LocationMetrics
}

// Summary counts the data-quality issues absorbed during reconciliation.
// These surface as diagnostics; they never fail a run.
type Summary struct {
	InventoryRows     int
	SalesRows         int
	ExcludedSKUs      int // rows whose SKU normalized to "no value"
	UnmappedLocations int
	Warnings          []string
}

func (s *Summary) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.Warnings = append(s.Warnings, msg)
	log.Warn().Msg(msg)
}

// Reconciler merges the inventory, sales, transfer, and purchase-order
// extracts into per-SKU, per-location metrics. All joins are keyed on the
// normalized SKU.
type Reconciler struct{}

// NewReconciler creates a Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile produces the catalogue consumed by the analysis engine. The
// inventory extract defines the catalogue; sales, transfers, and POs join
// onto it. Rows with unnormalizable SKUs are excluded and counted.
func (r *Reconciler) Reconcile(in Inputs) ([]SKURecord, *Summary, error) {
	if len(in.Inventory) == 0 {
		return nil, nil, fmt.Errorf("reconcile: inventory extract is empty")
	}
	dest := in.PODestination
	if dest == "" || dest == domain.LocationUnmapped {
		dest = domain.LocationJasper
	}

	summary := &Summary{InventoryRows: len(in.Inventory), SalesRows: len(in.Sales)}

	type transferTotals struct {
		in  float64
		out float64
	}
	transfers := make(map[string]map[domain.Location]*transferTotals)
	totals := func(sku string, loc domain.Location) *transferTotals {
		byLoc, ok := transfers[sku]
		if !ok {
			byLoc = make(map[domain.Location]*transferTotals)
			transfers[sku] = byLoc
		}
		t, ok := byLoc[loc]
		if !ok {
			t = &transferTotals{}
			byLoc[loc] = t
		}
		return t
	}

	for _, tr := range in.Transfers {
		sku := domain.NormalizeSKU(tr.SKU)
		if sku == domain.NoValue {
			summary.ExcludedSKUs++
			continue
		}
		if tr.Quantity < 0 {
			return nil, nil, fmt.Errorf("reconcile: transfer quantity cannot be negative for %s: %v", sku, tr.Quantity)
		}
		if tr.Dest != domain.LocationUnmapped && tr.Dest != "" {
			totals(sku, tr.Dest).in += tr.Quantity
		} else {
			summary.UnmappedLocations++
			summary.warnf("transfer for %s has unmapped destination, quantity %v not routed", sku, tr.Quantity)
		}
		if tr.Source != domain.LocationUnmapped && tr.Source != "" {
			totals(sku, tr.Source).out += tr.Quantity
		} else {
			summary.UnmappedLocations++
			summary.warnf("transfer for %s has unmapped source", sku)
		}
	}

	poQty := make(map[string]float64)
	for _, po := range in.PurchaseOrders {
		sku := domain.NormalizeSKU(po.SKU)
		if sku == domain.NoValue {
			summary.ExcludedSKUs++
			continue
		}
		poQty[sku] += po.Quantity
	}

	type salesAgg struct {
		units    float64
		lastSale *time.Time
	}
	sales := make(map[string]map[domain.Location]*salesAgg)
	for _, row := range in.Sales {
		sku := domain.NormalizeSKU(row.SKU)
		if sku == domain.NoValue {
			summary.ExcludedSKUs++
			continue
		}
		loc := domain.NormalizeLocation(row.Location)
		if loc == domain.LocationUnmapped {
			summary.UnmappedLocations++
			summary.warnf("sales row for %s has unmapped location %q", sku, row.Location)
			continue
		}
		byLoc, ok := sales[sku]
		if !ok {
			byLoc = make(map[domain.Location]*salesAgg)
			sales[sku] = byLoc
		}
		agg, ok := byLoc[loc]
		if !ok {
			agg = &salesAgg{}
			byLoc[loc] = agg
		}
		agg.units += CleanCurrency(row.QtySold)
		if row.LastSale != nil && (agg.lastSale == nil || row.LastSale.After(*agg.lastSale)) {
			agg.lastSale = row.LastSale
		}
	}

	records := make([]SKURecord, 0, len(in.Inventory))
	seen := make(map[string]bool, len(in.Inventory))

	for _, row := range in.Inventory {
		sku := domain.NormalizeSKU(row.SKU)
		if sku == domain.NoValue {
			summary.ExcludedSKUs++
			continue
		}
		if seen[sku] {
			continue
		}
		seen[sku] = true

		caseSize := in.CaseSizes[sku]
		if caseSize < 1 {
			caseSize = 1
		}

		rec := SKURecord{
			SKU:         sku,
			ProductName: row.ProductName,
			Category:    row.Category,
			Brand:       row.Brand,
			Class:       domain.ClassifySKU(sku),
			CaseSize:    caseSize,
			Locations:   make(map[domain.Location]LocationMetrics, len(domain.Locations)),
		}

		for _, loc := range domain.Locations {
			var stock float64
			for _, cell := range row.StockCells[loc] {
				stock += CleanCurrency(cell)
			}

			incoming := 0.0
			if t, ok := transfers[sku][loc]; ok {
				incoming += t.in - t.out
			}
			if loc == dest {
				incoming += poQty[sku]
			}
			// Outgoing transfers never push a location's incoming below zero.
			incoming = math.Max(0, incoming)

			lm := LocationMetrics{
				Stock:    int(math.Round(math.Max(0, stock))),
				Incoming: int(math.Round(incoming)),
			}
			if agg, ok := sales[sku][loc]; ok {
				lm.UnitsSold = agg.units
				lm.LastSale = agg.lastSale
			}
			rec.Locations[loc] = lm
		}

		records = append(records, rec)
	}

	return records, summary, nil
}
