package engine

import (
	"fmt"

	"github.com/greenridge/replen/internal/domain"
)

// SilenceThreshold is the weeks-of-stock sentinel reported when velocity is
// zero. It reads as "infinite runway" downstream and keeps the WOS math free
// of division by zero.
const SilenceThreshold = 999.0

// Velocity computes the weekly sell-through rate for one SKU at one location.
//
// The active period is the full report window unless the item is out of stock
// and has a recorded last sale, in which case the period shortens to the days
// between the window start and that last sale: an item that sold out early
// should not have its rate diluted by the silence after stock-out. The
// shortened period is clamped to [1, ReportDays].
func Velocity(m domain.InventoryMetrics) float64 {
	periodDays := m.ReportDays

	if m.Stock == 0 && m.LastSaleDate != nil {
		daysToLastSale := m.LastSaleDate.Sub(m.ReportStartDate).Hours() / 24
		periodDays = max(1.0, float64(int(daysToLastSale)))
		periodDays = min(periodDays, m.ReportDays)
	}

	weeks := periodDays / 7.0
	if weeks <= 0 {
		return 0
	}
	return m.TotalUnitsSold / weeks
}

// EffectiveWOS computes weeks of stock for the given availability. A zero
// velocity yields the silence threshold. A negative velocity is a caller
// contract violation, not a data condition.
func EffectiveWOS(stock, incoming int, velocity, silenceThreshold float64) (float64, error) {
	if velocity < 0 {
		return 0, fmt.Errorf("effective wos: velocity cannot be negative: %v", velocity)
	}
	if velocity == 0 {
		return silenceThreshold, nil
	}

	totalAvailable := max(0, stock) + incoming
	return float64(totalAvailable) / velocity, nil
}
