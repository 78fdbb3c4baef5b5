package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/history"
)

func TestHistoryServiceNormalizesLookups(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(filepath.Join(t.TempDir(), "bank.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	end := time.Now().AddDate(0, 0, -7)
	if _, err := store.ReplaceDate(ctx, end, []history.Row{
		{SKU: "CNB-1", Location: "Hill", Quantity: 8},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewHistoryService(store, config.HistoryConfig{WindowWeeks: 4}, config.ColumnMap{}, nil)

	// Raw client input: lowercase SKU, free-form store name.
	rv, err := svc.RollingVelocity(ctx, "cnb-1", "Hill Street Store", 4)
	if err != nil {
		t.Fatalf("RollingVelocity: %v", err)
	}
	if rv.Velocity != 2.0 {
		t.Errorf("velocity = %v, want 2.0 (8 units over 4 weeks)", rv.Velocity)
	}
}

func TestHistoryServiceWithoutStore(t *testing.T) {
	svc := NewHistoryService(nil, config.HistoryConfig{}, config.ColumnMap{}, nil)

	if _, err := svc.Ingest(context.Background()); err != ErrNoHistory {
		t.Errorf("Ingest error = %v, want ErrNoHistory", err)
	}
	if _, err := svc.RollingVelocity(context.Background(), "CNB-1", "Hill", 4); err != ErrNoHistory {
		t.Errorf("RollingVelocity error = %v, want ErrNoHistory", err)
	}
	if _, err := svc.SnapshotDates(context.Background()); err != ErrNoHistory {
		t.Errorf("SnapshotDates error = %v, want ErrNoHistory", err)
	}
}
