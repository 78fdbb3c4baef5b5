package engine

import (
	"math"

	"github.com/greenridge/replen/internal/domain"
)

// SuggestedOrderQty computes the order quantity, in units, that brings a
// SKU's runway up to the rule set's target weeks of stock. The result is
// always a whole-case multiple, never negative.
//
// accessoryHold forces accessory-class SKUs to zero regardless of need;
// accessory ordering runs through a separate manual channel. It is a policy
// flag, not a formula change.
func SuggestedOrderQty(velocity float64, m domain.InventoryMetrics, rules domain.StatusRules, caseSize int, class domain.ProductClass, accessoryHold bool) int {
	if accessoryHold && class == domain.ClassAccessory {
		return 0
	}
	if caseSize < 1 {
		caseSize = 1
	}

	targetStock := velocity * rules.TargetWOS
	netNeed := targetStock - float64(m.Stock+m.Incoming)
	if netNeed <= 0 {
		return 0
	}

	casesNeeded := int(math.Ceil(netNeed / float64(caseSize)))
	return casesNeeded * caseSize
}
