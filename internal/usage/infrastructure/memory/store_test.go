package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	usage "energy-optimizer/internal/usage/domain"
)

func storedAt(t *testing.T, tenantID, id string, at time.Time) usage.StoredDataset {
	t.Helper()
	ds, err := usage.NewDataset([]usage.Record{{Month: "Jan", UnitsKWh: 100, AvgDailyKWh: 3.2, PeakUsageHours: 4, Cost: 650}})
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	return usage.StoredDataset{ID: id, TenantID: tenantID, Source: "jan.csv", UploadedAt: at, Dataset: ds}
}

func TestDatasetStore_SaveGetLatest(t *testing.T) {
	ctx := context.Background()
	store := NewDatasetStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, storedAt(t, "tenant-a", "ds-1", base)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, storedAt(t, "tenant-a", "ds-2", base.Add(time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, storedAt(t, "tenant-b", "ds-3", base.Add(2*time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "tenant-a", "ds-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Dataset.TotalUnits() != 100 {
		t.Fatalf("expected 100 units, got %v", got.Dataset.TotalUnits())
	}

	latest, err := store.Latest(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != "ds-2" {
		t.Fatalf("expected ds-2, got %s", latest.ID)
	}

	if _, err := store.Get(ctx, "tenant-b", "ds-1"); !errors.Is(err, usage.ErrDatasetNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
	count, _ := store.Count(ctx)
	if count != 3 {
		t.Fatalf("expected 3 datasets, got %d", count)
	}
}

func TestDatasetStore_EmptyTenant(t *testing.T) {
	ctx := context.Background()
	store := NewDatasetStore()
	if _, err := store.Latest(ctx, "tenant-a"); !errors.Is(err, usage.ErrDatasetNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Save(ctx, usage.StoredDataset{ID: "ds-1"}); !errors.Is(err, usage.ErrEmptyTenantID) {
		t.Fatalf("expected empty tenant error, got %v", err)
	}
}

func TestDatasetStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewDatasetStore()
	base := time.Now().UTC()

	snapshots := make([]usage.StoredDataset, 20)
	for i := range snapshots {
		snapshots[i] = storedAt(t, "tenant-a", usage.NewDatasetID(), base.Add(time.Duration(i)*time.Second))
	}

	var wg sync.WaitGroup
	for _, snapshot := range snapshots {
		wg.Add(1)
		go func(snapshot usage.StoredDataset) {
			defer wg.Done()
			_ = store.Save(ctx, snapshot)
			_, _ = store.Latest(ctx, "tenant-a")
		}(snapshot)
	}
	wg.Wait()

	list, err := store.List(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 20 {
		t.Fatalf("expected 20 datasets, got %d", len(list))
	}
}
