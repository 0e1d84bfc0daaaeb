package memory

import (
	"context"
	"sort"
	"sync"

	usage "energy-optimizer/internal/usage/domain"
)

// DatasetStore keeps dataset snapshots in memory.
type DatasetStore struct {
	mu    sync.RWMutex
	items map[string]map[string]usage.StoredDataset
}

// NewDatasetStore constructs an in-memory store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{items: make(map[string]map[string]usage.StoredDataset)}
}

// Save stores or replaces a snapshot.
func (s *DatasetStore) Save(ctx context.Context, stored usage.StoredDataset) error {
	if stored.TenantID == "" {
		return usage.ErrEmptyTenantID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.items[stored.TenantID]
	if !ok {
		tenant = make(map[string]usage.StoredDataset)
		s.items[stored.TenantID] = tenant
	}
	tenant[stored.ID] = stored
	return nil
}

// Get returns a snapshot by id.
func (s *DatasetStore) Get(ctx context.Context, tenantID, id string) (*usage.StoredDataset, error) {
	if tenantID == "" {
		return nil, usage.ErrEmptyTenantID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.items[tenantID][id]
	if !ok {
		return nil, usage.ErrDatasetNotFound
	}
	return &stored, nil
}

// Latest returns the most recently uploaded snapshot.
func (s *DatasetStore) Latest(ctx context.Context, tenantID string) (*usage.StoredDataset, error) {
	list, err := s.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, usage.ErrDatasetNotFound
	}
	return &list[0], nil
}

// List returns snapshots newest first.
func (s *DatasetStore) List(ctx context.Context, tenantID string) ([]usage.StoredDataset, error) {
	if tenantID == "" {
		return nil, usage.ErrEmptyTenantID
	}
	s.mu.RLock()
	result := make([]usage.StoredDataset, 0, len(s.items[tenantID]))
	for _, stored := range s.items[tenantID] {
		result = append(result, stored)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].UploadedAt.Equal(result[j].UploadedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})
	return result, nil
}

// Count returns the number of stored snapshots across tenants.
func (s *DatasetStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, tenant := range s.items {
		total += len(tenant)
	}
	return total, nil
}
