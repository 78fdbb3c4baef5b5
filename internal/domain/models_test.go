package domain

import (
	"testing"
	"time"
)

func TestNewInventoryMetricsRejectsContractViolations(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		stock      int
		incoming   int
		unitsSold  float64
		reportDays float64
	}{
		{"negative stock", -1, 0, 0, 30},
		{"negative incoming", 0, -5, 0, 30},
		{"negative units sold", 0, 0, -2, 30},
		{"zero report window", 0, 0, 0, 0},
		{"negative report window", 0, 0, 0, -7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewInventoryMetrics(tc.stock, tc.incoming, tc.unitsSold, tc.reportDays, start, nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}

	m, err := NewInventoryMetrics(10, 5, 12.5, 30, start, nil)
	if err != nil {
		t.Fatalf("valid metrics rejected: %v", err)
	}
	if m.Stock != 10 || m.Incoming != 5 || m.TotalUnitsSold != 12.5 {
		t.Errorf("metrics not carried through: %+v", m)
	}
}

func TestRuleSetValidate(t *testing.T) {
	valid := RuleSet{
		Cannabis:  StatusRules{HotVelocity: 2.0, ReorderPoint: 2.5, TargetWOS: 4.0, DeadWOS: 26, DeadOnHand: 5, GoodVelocityMultiplier: 0.25},
		Accessory: StatusRules{HotVelocity: 0.5, ReorderPoint: 4.0, TargetWOS: 8.0, DeadWOS: 52, DeadOnHand: 3, GoodVelocityMultiplier: 0.25},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("default rule set rejected: %v", err)
	}

	broken := valid
	broken.Accessory.HotVelocity = 0
	if err := broken.Validate(); err == nil {
		t.Fatal("zero hot velocity should fail validation")
	}
}

func TestRuleSetFor(t *testing.T) {
	rs := RuleSet{
		Cannabis:  StatusRules{HotVelocity: 2.0},
		Accessory: StatusRules{HotVelocity: 0.5},
	}
	if got := rs.For(ClassCannabis).HotVelocity; got != 2.0 {
		t.Errorf("cannabis rules not selected, got hot velocity %v", got)
	}
	if got := rs.For(ClassAccessory).HotVelocity; got != 0.5 {
		t.Errorf("accessory rules not selected, got hot velocity %v", got)
	}
}
