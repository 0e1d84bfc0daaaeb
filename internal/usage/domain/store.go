package usage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// StoredDataset is a persisted dataset snapshot owned by a tenant.
type StoredDataset struct {
	ID         string
	TenantID   string
	Source     string
	UploadedAt time.Time
	Dataset    Dataset
}

// Store persists dataset snapshots and resolves handles.
type Store interface {
	Save(ctx context.Context, stored StoredDataset) error
	Get(ctx context.Context, tenantID, id string) (*StoredDataset, error)
	Latest(ctx context.Context, tenantID string) (*StoredDataset, error)
	List(ctx context.Context, tenantID string) ([]StoredDataset, error)
	Count(ctx context.Context) (int, error)
}

// NewDatasetID generates a random dataset handle.
func NewDatasetID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "ds-" + hex.EncodeToString(buf)
}
