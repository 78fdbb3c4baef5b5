package domain

import (
	"fmt"
	"time"
)

// InventoryMetrics is the reconciled per-SKU, per-location input to the
// velocity, status, and order-quantity calculations. Construct it through
// NewInventoryMetrics; the zero value is not valid.
type InventoryMetrics struct {
	Stock           int
	Incoming        int
	TotalUnitsSold  float64
	ReportDays      float64
	ReportStartDate time.Time
	LastSaleDate    *time.Time
}

// NewInventoryMetrics validates the reconciliation contract. Negative stock,
// incoming, or units sold and a non-positive report window are caller bugs,
// not data-quality conditions, so they fail fast.
func NewInventoryMetrics(stock, incoming int, unitsSold, reportDays float64, start time.Time, lastSale *time.Time) (InventoryMetrics, error) {
	if stock < 0 {
		return InventoryMetrics{}, fmt.Errorf("inventory metrics: stock cannot be negative: %d", stock)
	}
	if incoming < 0 {
		return InventoryMetrics{}, fmt.Errorf("inventory metrics: incoming cannot be negative: %d", incoming)
	}
	if unitsSold < 0 {
		return InventoryMetrics{}, fmt.Errorf("inventory metrics: units sold cannot be negative: %v", unitsSold)
	}
	if reportDays <= 0 {
		return InventoryMetrics{}, fmt.Errorf("inventory metrics: report days must be positive: %v", reportDays)
	}

	return InventoryMetrics{
		Stock:           stock,
		Incoming:        incoming,
		TotalUnitsSold:  unitsSold,
		ReportDays:      reportDays,
		ReportStartDate: start,
		LastSaleDate:    lastSale,
	}, nil
}

// StatusRules holds the classification thresholds for one product class.
type StatusRules struct {
	HotVelocity            float64 // units/week floor for "hot"
	ReorderPoint           float64 // weeks of stock floor before reorder
	TargetWOS              float64 // weeks of stock the planner buys up to
	DeadWOS                float64 // weeks of stock ceiling for "dead"
	DeadOnHand             int     // on-hand floor for "dead"
	GoodVelocityMultiplier float64 // fraction of HotVelocity marking steady demand
}

// Validate checks the rule thresholds. Rules come from configuration, so a
// bad set is reported once at load time rather than per SKU.
func (r StatusRules) Validate() error {
	if r.HotVelocity <= 0 {
		return fmt.Errorf("status rules: hot velocity must be positive: %v", r.HotVelocity)
	}
	if r.ReorderPoint <= 0 {
		return fmt.Errorf("status rules: reorder point must be positive: %v", r.ReorderPoint)
	}
	if r.TargetWOS <= 0 {
		return fmt.Errorf("status rules: target WOS must be positive: %v", r.TargetWOS)
	}
	if r.DeadWOS <= 0 {
		return fmt.Errorf("status rules: dead WOS must be positive: %v", r.DeadWOS)
	}
	if r.DeadOnHand < 0 {
		return fmt.Errorf("status rules: dead on-hand cannot be negative: %d", r.DeadOnHand)
	}
	if r.GoodVelocityMultiplier <= 0 || r.GoodVelocityMultiplier > 1 {
		return fmt.Errorf("status rules: good velocity multiplier must be in (0,1]: %v", r.GoodVelocityMultiplier)
	}
	return nil
}

// RuleSet pairs the two per-class threshold sets.
type RuleSet struct {
	Cannabis  StatusRules
	Accessory StatusRules
}

// For selects the rules for a product class.
func (rs RuleSet) For(class ProductClass) StatusRules {
	if class == ClassAccessory {
		return rs.Accessory
	}
	return rs.Cannabis
}

// Validate validates both class rule sets.
func (rs RuleSet) Validate() error {
	if err := rs.Cannabis.Validate(); err != nil {
		return fmt.Errorf("cannabis: %w", err)
	}
	if err := rs.Accessory.Validate(); err != nil {
		return fmt.Errorf("accessory: %w", err)
	}
	return nil
}

// TransferRecord is one inter-location stock movement.
type TransferRecord struct {
	SKU      string
	Source   Location
	Dest     Location
	Quantity float64
}

// PurchaseOrderRecord is one open purchase-order line. PO quantity is routed
// entirely to the configured destination location for the run.
type PurchaseOrderRecord struct {
	SKU      string
	Quantity float64
}

// SKUReport is the engine's per-SKU, per-location output row.
type SKUReport struct {
	SKU          string       `json:"sku"`
	ProductName  string       `json:"product_name,omitempty"`
	Category     string       `json:"category,omitempty"`
	Brand        string       `json:"brand,omitempty"`
	Class        ProductClass `json:"-"`
	Location     Location     `json:"location"`
	Status       StatusTag    `json:"status"`
	SOQ          int          `json:"suggested_order_quantity"`
	Velocity     float64      `json:"velocity"`
	WeeksOfStock float64      `json:"weeks_of_stock"`
	Stock        int          `json:"reconciled_stock"`
	Incoming     int          `json:"reconciled_incoming"`
	UnitsSold    float64      `json:"units_sold"`
	CaseSize     int          `json:"case_size"`
	Trend        string       `json:"trend,omitempty"`
}
