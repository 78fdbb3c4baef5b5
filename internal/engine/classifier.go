package engine

import "github.com/greenridge/replen/internal/domain"

// Classify assigns the demand status for one SKU at one location. Pure
// function: no I/O, same inputs always yield the same tag, and every
// reachable input maps to exactly one of the seven tags.
//
// The tiers evaluate top-down and the first match wins:
//
//  1. zero velocity:       New (incoming), Cold (stocked), else Minimal
//  2. velocity >= hot:     Reorder/Good below the reorder point, else Hot
//  3. velocity >= hot*mult: Reorder/Good below the reorder point, else Good
//  4. dead stock:          WOS above DeadWOS with stock above DeadOnHand
//  5. default:             Minimal
//
// "Below the reorder point" is judged on current on-hand only (incoming
// excluded); whether the gap is already covered is judged on effective WOS
// including incoming. The comparison directions (>=, <, >) are deliberate
// boundary choices; changing one reshuffles real SKUs between tags.
func Classify(velocity float64, m domain.InventoryMetrics, rules domain.StatusRules) domain.StatusTag {
	onHand := max(0, m.Stock)
	incoming := m.Incoming

	// Both WOS figures share the same helper; velocity is non-negative here
	// so the error branch is unreachable.
	wos, _ := EffectiveWOS(onHand, 0, velocity, SilenceThreshold)
	effectiveWOS, _ := EffectiveWOS(onHand, incoming, velocity, SilenceThreshold)

	if velocity == 0 {
		switch {
		case incoming > 0:
			return domain.StatusNew
		case onHand > 0:
			return domain.StatusCold
		default:
			return domain.StatusMinimal
		}
	}

	if velocity >= rules.HotVelocity {
		if wos < rules.ReorderPoint {
			if effectiveWOS >= rules.ReorderPoint {
				return domain.StatusGood // incoming covers the gap
			}
			return domain.StatusReorder
		}
		return domain.StatusHot
	}

	goodThreshold := rules.HotVelocity * rules.GoodVelocityMultiplier
	if velocity >= goodThreshold {
		if wos < rules.ReorderPoint {
			if effectiveWOS >= rules.ReorderPoint {
				return domain.StatusGood
			}
			return domain.StatusReorder
		}
		return domain.StatusGood
	}

	if wos > rules.DeadWOS && onHand > rules.DeadOnHand {
		return domain.StatusDead
	}

	return domain.StatusMinimal
}
