package engine

import (
	"context"
	"testing"
	"time"

	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/reconcile"
)

func testRuleSet() domain.RuleSet {
	return domain.RuleSet{
		Cannabis: cannabisRules,
		Accessory: domain.StatusRules{
			HotVelocity:            0.5,
			ReorderPoint:           4.0,
			TargetWOS:              8.0,
			DeadWOS:                52,
			DeadOnHand:             3,
			GoodVelocityMultiplier: 0.25,
		},
	}
}

func TestRunnerProducesOneRowPerLocation(t *testing.T) {
	runner, err := NewRunner(RunnerOptions{
		Rules:         testRuleSet(),
		AccessoryHold: true,
		ReportDays:    28,
		ReportStart:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Workers:       2,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	records := []reconcile.SKURecord{
		{
			SKU:      "CNB-1001",
			Class:    domain.ClassCannabis,
			CaseSize: 5,
			Locations: map[domain.Location]reconcile.LocationMetrics{
				domain.LocationHill:   {Stock: 3, UnitsSold: 56},
				domain.LocationValley: {Stock: 40, UnitsSold: 56},
				domain.LocationJasper: {Stock: 0, Incoming: 12},
			},
		},
		{
			SKU:      "GRINDER-7",
			Class:    domain.ClassAccessory,
			CaseSize: 3,
			Locations: map[domain.Location]reconcile.LocationMetrics{
				domain.LocationHill: {Stock: 0, UnitsSold: 14},
			},
		},
	}

	result, err := runner.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(result.Rows))
	}

	byKey := make(map[string]domain.SKUReport)
	for _, row := range result.Rows {
		byKey[row.SKU+"|"+string(row.Location)] = row
	}

	// 56 units over 4 weeks is 14/week; 3 on hand is well under the reorder
	// point with nothing inbound.
	hill := byKey["CNB-1001|Hill"]
	if hill.Status != domain.StatusReorder {
		t.Errorf("Hill status = %q, want reorder", hill.Status)
	}
	if hill.SOQ == 0 || hill.SOQ%5 != 0 {
		t.Errorf("Hill SOQ = %d, want a positive multiple of 5", hill.SOQ)
	}

	// Never sold at Jasper, but stock is inbound.
	jasper := byKey["CNB-1001|Jasper"]
	if jasper.Status != domain.StatusNew {
		t.Errorf("Jasper status = %q, want new", jasper.Status)
	}
	if jasper.WeeksOfStock != SilenceThreshold {
		t.Errorf("Jasper WOS = %v, want sentinel %v", jasper.WeeksOfStock, SilenceThreshold)
	}

	// Accessory hold suppresses the order even at reorder-level demand.
	grinder := byKey["GRINDER-7|Hill"]
	if grinder.SOQ != 0 {
		t.Errorf("accessory SOQ = %d, want 0 under hold", grinder.SOQ)
	}
}

func TestRunnerReportsOnHandWeeksOfStock(t *testing.T) {
	runner, err := NewRunner(RunnerOptions{
		Rules:       testRuleSet(),
		ReportDays:  28,
		ReportStart: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	// Sold out with a large order inbound. The WOS column shows on-hand
	// coverage, so it reads zero; the incoming units surface in the status
	// and the Inc column instead.
	records := []reconcile.SKURecord{{
		SKU:      "CNB-2002",
		Class:    domain.ClassCannabis,
		CaseSize: 5,
		Locations: map[domain.Location]reconcile.LocationMetrics{
			domain.LocationHill: {Stock: 0, Incoming: 200, UnitsSold: 28},
		},
	}}

	result, err := runner.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	row := result.Rows[0]
	if row.WeeksOfStock != 0 {
		t.Errorf("WOS = %v, want 0 with nothing on hand", row.WeeksOfStock)
	}
	if row.Incoming != 200 {
		t.Errorf("incoming = %d, want 200", row.Incoming)
	}
	// 28 units over 4 weeks is 7/week; 200 inbound covers the gap.
	if row.Status != domain.StatusGood {
		t.Errorf("status = %q, want good", row.Status)
	}
}

func TestRunnerEmptyInput(t *testing.T) {
	runner, err := NewRunner(RunnerOptions{
		Rules:       testRuleSet(),
		ReportDays:  28,
		ReportStart: time.Now(),
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	result, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(result.Rows))
	}
}

func TestNewRunnerRejectsBadOptions(t *testing.T) {
	if _, err := NewRunner(RunnerOptions{Rules: testRuleSet(), ReportDays: 0}); err == nil {
		t.Fatal("zero report window should be rejected")
	}
	bad := testRuleSet()
	bad.Cannabis.HotVelocity = -1
	if _, err := NewRunner(RunnerOptions{Rules: bad, ReportDays: 28}); err == nil {
		t.Fatal("invalid rules should be rejected")
	}
}
