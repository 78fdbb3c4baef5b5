package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/engine"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			ReportWindowDays: 28,
			PODestination:    domain.LocationJasper,
			AccessoryHold:    true,
			Workers:          2,
		},
		Rules: domain.RuleSet{
			Cannabis:  domain.StatusRules{HotVelocity: 2.0, ReorderPoint: 2.5, TargetWOS: 4.0, DeadWOS: 26, DeadOnHand: 5, GoodVelocityMultiplier: 0.25},
			Accessory: domain.StatusRules{HotVelocity: 0.5, ReorderPoint: 4.0, TargetWOS: 8.0, DeadWOS: 52, DeadOnHand: 3, GoodVelocityMultiplier: 0.25},
		},
		Columns: config.ColumnMap{
			SKU:          "SKU",
			InventorySKU: "SKU",
			Description:  "Product Name",
			QtySold:      "Quantity",
			Location:     "Location",
			LastSale:     "Last Sale",
			Quantity:     "Quantity",
			Source:       "Source Location",
			Dest:         "Destination Location",
		},
		History: config.HistoryConfig{WindowWeeks: 4, MinSnapshots: 1},
	}
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestAnalysisServiceRun(t *testing.T) {
	dir := t.TempDir()
	inventory := writeInput(t, dir, "inventory.csv",
		"SKU,Product Name,Hill Sales Floor,Valley Sales Floor,Jasper Sales Floor\n"+
			"CNB-1,Blue Dream 3.5g,3,40,0\n"+
			"GRINDER-7,Metal Grinder,2,0,0\n")
	sales := writeInput(t, dir, "sales.csv",
		"SKU,Location,Quantity\n"+
			"CNB-1,Hill,56\n"+
			"CNB-1,Valley,8\n"+
			"GRINDER-7,Hill,4\n")
	po := writeInput(t, dir, "po.csv", "SKU,Qty Ordered\nCNB-1,24\n")
	transfers := writeInput(t, dir, "transfers to hill.csv", "SKU,Quantity\nCNB-1,6\n")
	out := filepath.Join(dir, "order-builder.xlsx")

	svc := NewAnalysisService(testConfig(), nil)
	result, err := svc.Run(context.Background(), AnalysisInputs{
		InventoryPath:      inventory,
		SalesPath:          sales,
		PurchaseOrderPaths: []string{po},
		TransferPaths:      []string{transfers},
		OutputPath:         out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Two SKUs across three locations each.
	if len(result.Rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(result.Rows))
	}

	byKey := make(map[string]domain.SKUReport)
	for _, row := range result.Rows {
		byKey[row.SKU+"|"+string(row.Location)] = row
	}

	// PO routes to Jasper, minus the 6 transferred out to Hill.
	if got := byKey["CNB-1|Jasper"].Incoming; got != 18 {
		t.Errorf("Jasper incoming = %d, want 18", got)
	}
	if got := byKey["CNB-1|Hill"].Incoming; got != 6 {
		t.Errorf("Hill incoming = %d, want 6", got)
	}
	// Accessory hold keeps the grinder out of the buy column.
	if got := byKey["GRINDER-7|Hill"].SOQ; got != 0 {
		t.Errorf("accessory SOQ = %d, want 0", got)
	}

	if _, err := os.Stat(out); err != nil {
		t.Errorf("workbook not written: %v", err)
	}

	latest, summary, ok := svc.Latest()
	if !ok || latest == nil || summary == nil {
		t.Fatal("latest result not retained")
	}
	if len(latest.Rows) != 6 {
		t.Errorf("latest rows = %d, want 6", len(latest.Rows))
	}
}

func TestAnalysisServiceRunAsync(t *testing.T) {
	dir := t.TempDir()
	inventory := writeInput(t, dir, "inventory.csv",
		"SKU,Product Name,Hill Sales Floor\n"+
			"CNB-1,Blue Dream 3.5g,3\n")
	sales := writeInput(t, dir, "sales.csv",
		"SKU,Location,Quantity\nCNB-1,Hill,56\n")

	svc := NewAnalysisService(testConfig(), nil)

	type outcome struct {
		result *engine.Result
		err    error
	}
	done := make(chan outcome, 1)
	err := svc.RunAsync(context.Background(), AnalysisInputs{
		InventoryPath: inventory,
		SalesPath:     sales,
	}, func(result *engine.Result, err error) {
		done <- outcome{result, err}
	})
	if err != nil {
		t.Fatalf("RunAsync: %v", err)
	}

	select {
	case got := <-done:
		if got.err != nil {
			t.Fatalf("async run failed: %v", got.err)
		}
		if len(got.result.Rows) != 1 {
			t.Errorf("expected 1 row, got %d", len(got.result.Rows))
		}
	case <-time.After(10 * time.Second):
		t.Fatal("async run never completed")
	}

	if svc.Running() {
		t.Error("run flag should clear after the async run completes")
	}
	latest, _, ok := svc.Latest()
	if !ok || len(latest.Rows) != 1 {
		t.Error("async run result not retained")
	}
}

func TestAnalysisServiceRunAsyncRejectsBadInputsSynchronously(t *testing.T) {
	svc := NewAnalysisService(testConfig(), nil)
	err := svc.RunAsync(context.Background(), AnalysisInputs{
		InventoryPath: "/nonexistent/inventory.csv",
		SalesPath:     "/nonexistent/sales.csv",
	}, func(*engine.Result, error) {
		t.Error("done must not fire when the inputs never parse")
	})
	if err == nil {
		t.Fatal("missing input files should fail before the background run starts")
	}
	if svc.Running() {
		t.Error("run flag should clear after a rejected async run")
	}
}

func TestAnalysisServiceRejectsMissingInputs(t *testing.T) {
	svc := NewAnalysisService(testConfig(), nil)
	if _, err := svc.Run(context.Background(), AnalysisInputs{
		InventoryPath: "/nonexistent/inventory.csv",
		SalesPath:     "/nonexistent/sales.csv",
	}); err == nil {
		t.Fatal("missing input files should fail the run")
	}
	if svc.Running() {
		t.Error("run flag should clear after a failed run")
	}
}

func TestInferTransferDest(t *testing.T) {
	cases := []struct {
		path     string
		expected domain.Location
	}{
		{"/data/transfers to hill.csv", domain.LocationHill},
		{"/data/Valley transfers 2026-08-01.csv", domain.LocationValley},
		{"/data/jasper-restock.xlsx", domain.LocationJasper},
		{"/data/transfers.csv", domain.LocationUnmapped},
	}
	for _, tc := range cases {
		if got := inferTransferDest(tc.path); got != tc.expected {
			t.Errorf("inferTransferDest(%q) = %q, want %q", tc.path, got, tc.expected)
		}
	}
}
