package config

import (
	"testing"

	"github.com/greenridge/replen/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if err := cfg.Rules.Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
	if cfg.App.PODestination != domain.LocationJasper {
		t.Errorf("default PO destination = %q, want Jasper", cfg.App.PODestination)
	}
	if !cfg.App.AccessoryHold {
		t.Error("accessory hold should default on")
	}
	if cfg.App.ReportWindowDays != 30.0 {
		t.Errorf("report window = %v, want 30", cfg.App.ReportWindowDays)
	}
	if cfg.Rules.Cannabis.HotVelocity != 2.0 || cfg.Rules.Accessory.HotVelocity != 0.5 {
		t.Errorf("class thresholds not defaulted: %+v", cfg.Rules)
	}
	if cfg.History.FilePrefix != "product-sales" {
		t.Errorf("snapshot prefix = %q", cfg.History.FilePrefix)
	}
	if cfg.Columns.SKU == "" || cfg.Columns.QtySold == "" {
		t.Errorf("column map incomplete: %+v", cfg.Columns)
	}
}

func TestLoadIsSingleton(t *testing.T) {
	if Load() != Load() {
		t.Error("Load should return the same instance")
	}
}
