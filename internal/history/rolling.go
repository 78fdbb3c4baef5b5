package history

import (
	"context"
	"time"
)

// Trend labels for the rolling-velocity comparison.
const (
	TrendGrowing   = "Growing"
	TrendDeclining = "Declining"
	TrendStable    = "Stable"
	TrendSpiking   = "New/Spiking"
	TrendNoData    = "No Data"
)

// trendThreshold is the relative change that separates Stable from
// Growing/Declining.
const trendThreshold = 0.25

// RollingVelocity is the result of a rolling-window velocity query.
type RollingVelocity struct {
	Velocity      float64 `json:"velocity"`       // units/week over the trailing window
	PriorVelocity float64 `json:"prior_velocity"` // units/week over the equal-length prior window
	Trend         string  `json:"trend"`
	Snapshots     int     `json:"snapshots"` // distinct snapshot dates inside the trailing window
}

// RollingVelocity sums the bank's quantities for sku/location over the
// trailing windowWeeks ending at asOf and divides by the window length to get
// units/week. The trend compares that figure against the equal-length window
// immediately before it: more than +25% is Growing, less than -25% is
// Declining, anything between is Stable. A positive current window over an
// empty prior window reads as New/Spiking.
func (s *Store) RollingVelocity(ctx context.Context, sku, location string, asOf time.Time, windowWeeks int) (RollingVelocity, error) {
	if windowWeeks < 1 {
		windowWeeks = 4
	}
	window := time.Duration(windowWeeks) * 7 * 24 * time.Hour
	windowStart := asOf.Add(-window)
	priorStart := windowStart.Add(-window)

	curQty, curPoints, err := s.windowSum(ctx, sku, location, windowStart, asOf)
	if err != nil {
		return RollingVelocity{}, err
	}
	priorQty, priorPoints, err := s.windowSum(ctx, sku, location, priorStart, windowStart)
	if err != nil {
		return RollingVelocity{}, err
	}

	rv := RollingVelocity{
		Velocity:      curQty / float64(windowWeeks),
		PriorVelocity: priorQty / float64(windowWeeks),
		Snapshots:     curPoints,
	}

	switch {
	case curPoints == 0 && priorPoints == 0:
		rv.Trend = TrendNoData
	case priorPoints == 0 && rv.Velocity > 0:
		rv.Trend = TrendSpiking
	case rv.PriorVelocity > 0:
		change := (rv.Velocity - rv.PriorVelocity) / rv.PriorVelocity
		switch {
		case change > trendThreshold:
			rv.Trend = TrendGrowing
		case change < -trendThreshold:
			rv.Trend = TrendDeclining
		default:
			rv.Trend = TrendStable
		}
	default:
		rv.Trend = TrendStable
	}

	return rv, nil
}
