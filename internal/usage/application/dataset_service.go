package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"energy-optimizer/internal/observability/metrics"
	usage "energy-optimizer/internal/usage/domain"
	"energy-optimizer/internal/usage/infrastructure/tabular"
)

// UploadStats summarizes an ingested table.
type UploadStats struct {
	TotalRecords int     `json:"total_records"`
	AvgUnits     float64 `json:"avg_units"`
	TotalUnits   float64 `json:"total_units"`
	AvgCost      float64 `json:"avg_cost"`
}

// ComputeUploadStats summarizes a dataset. Means are 0 for an empty dataset.
func ComputeUploadStats(ds usage.Dataset) UploadStats {
	stats := UploadStats{TotalRecords: ds.Len(), TotalUnits: ds.TotalUnits()}
	if ds.Len() > 0 {
		stats.AvgUnits = stats.TotalUnits / float64(ds.Len())
		stats.AvgCost = ds.TotalCost() / float64(ds.Len())
	}
	return stats
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DatasetService ingests uploads and resolves dataset handles.
type DatasetService struct {
	store  usage.Store
	clock  Clock
	logger *log.Logger
}

// ServiceOption configures the dataset service.
type ServiceOption func(*DatasetService)

// WithClock overrides the upload timestamp source.
func WithClock(clock Clock) ServiceOption {
	return func(s *DatasetService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewDatasetService constructs the service.
func NewDatasetService(store usage.Store, logger *log.Logger, opts ...ServiceOption) (*DatasetService, error) {
	if store == nil {
		return nil, errors.New("dataset service: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &DatasetService{store: store, clock: SystemClock{}, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ingest parses an uploaded table and stores it as a new snapshot.
func (s *DatasetService) Ingest(ctx context.Context, tenantID, filename string, r io.Reader) (*usage.StoredDataset, UploadStats, error) {
	start := time.Now()
	stored, stats, err := s.ingest(ctx, tenantID, filename, r)
	metrics.ObserveUpload(metrics.Result(err), time.Since(start))
	if err != nil {
		metrics.IncIngestError(ingestReason(err))
		return nil, UploadStats{}, err
	}
	s.logger.Printf("dataset ingested: tenant=%s id=%s source=%s records=%d", tenantID, stored.ID, stored.Source, stats.TotalRecords)
	return stored, stats, nil
}

func (s *DatasetService) ingest(ctx context.Context, tenantID, filename string, r io.Reader) (*usage.StoredDataset, UploadStats, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, UploadStats{}, usage.ErrEmptyTenantID
	}
	if r == nil {
		return nil, UploadStats{}, fmt.Errorf("%w: no file provided", usage.ErrInvalidParameter)
	}
	format, err := tabular.FormatFromFilename(filename)
	if err != nil {
		return nil, UploadStats{}, err
	}
	ds, err := tabular.Parse(r, format)
	if err != nil {
		return nil, UploadStats{}, err
	}

	stored := usage.StoredDataset{
		ID:         usage.NewDatasetID(),
		TenantID:   tenantID,
		Source:     filename,
		UploadedAt: s.clock.Now().UTC(),
		Dataset:    ds,
	}
	if err := s.store.Save(ctx, stored); err != nil {
		return nil, UploadStats{}, fmt.Errorf("save dataset: %w", err)
	}
	return &stored, ComputeUploadStats(ds), nil
}

// Resolve returns the dataset with the given id, or the tenant's latest when id is empty.
func (s *DatasetService) Resolve(ctx context.Context, tenantID, id string) (*usage.StoredDataset, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, usage.ErrEmptyTenantID
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return s.store.Latest(ctx, tenantID)
	}
	return s.store.Get(ctx, tenantID, id)
}

// List returns a tenant's datasets newest first.
func (s *DatasetService) List(ctx context.Context, tenantID string) ([]usage.StoredDataset, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, usage.ErrEmptyTenantID
	}
	return s.store.List(ctx, tenantID)
}

func ingestReason(err error) string {
	switch {
	case errors.Is(err, usage.ErrSchema):
		return "schema"
	case errors.Is(err, usage.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, usage.ErrInvalidParameter):
		return "invalid_value"
	case errors.Is(err, usage.ErrEmptyTenantID):
		return "tenant"
	default:
		return "store"
	}
}
