package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	usage "energy-optimizer/internal/usage/domain"
)

const defaultDatasetsTable = "usage_datasets"

// DatasetStore persists dataset snapshots in Postgres.
type DatasetStore struct {
	db    *sql.DB
	table string
}

// Option configures the dataset store.
type Option func(*DatasetStore)

// WithTable overrides the table name.
func WithTable(table string) Option {
	return func(store *DatasetStore) {
		if table != "" {
			store.table = table
		}
	}
}

// NewDatasetStore constructs a store.
func NewDatasetStore(db *sql.DB, opts ...Option) *DatasetStore {
	store := &DatasetStore{db: db, table: defaultDatasetsTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Save inserts a snapshot, replacing one with the same id.
func (s *DatasetStore) Save(ctx context.Context, stored usage.StoredDataset) error {
	if s == nil || s.db == nil {
		return errors.New("dataset store: nil db")
	}
	if stored.TenantID == "" {
		return usage.ErrEmptyTenantID
	}
	payload, err := json.Marshal(stored.Dataset)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, tenant_id, source, uploaded_at, record_count, records
) VALUES (
	$1, $2, $3, $4, $5, $6
)
ON CONFLICT (id)
DO UPDATE SET
	source = EXCLUDED.source,
	uploaded_at = EXCLUDED.uploaded_at,
	record_count = EXCLUDED.record_count,
	records = EXCLUDED.records`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		stored.ID, stored.TenantID, stored.Source, stored.UploadedAt.UTC(), stored.Dataset.Len(), payload)
	return err
}

// Get fetches a snapshot by id.
func (s *DatasetStore) Get(ctx context.Context, tenantID, id string) (*usage.StoredDataset, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("dataset store: nil db")
	}
	if tenantID == "" {
		return nil, usage.ErrEmptyTenantID
	}
	query := fmt.Sprintf(`
SELECT id, tenant_id, source, uploaded_at, records
FROM %s
WHERE tenant_id = $1 AND id = $2
LIMIT 1`, s.table)
	return scanDataset(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// Latest fetches the most recent snapshot for a tenant.
func (s *DatasetStore) Latest(ctx context.Context, tenantID string) (*usage.StoredDataset, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("dataset store: nil db")
	}
	if tenantID == "" {
		return nil, usage.ErrEmptyTenantID
	}
	query := fmt.Sprintf(`
SELECT id, tenant_id, source, uploaded_at, records
FROM %s
WHERE tenant_id = $1
ORDER BY uploaded_at DESC, id DESC
LIMIT 1`, s.table)
	return scanDataset(s.db.QueryRowContext(ctx, query, tenantID))
}

// List returns snapshots newest first.
func (s *DatasetStore) List(ctx context.Context, tenantID string) ([]usage.StoredDataset, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("dataset store: nil db")
	}
	if tenantID == "" {
		return nil, usage.ErrEmptyTenantID
	}
	query := fmt.Sprintf(`
SELECT id, tenant_id, source, uploaded_at, records
FROM %s
WHERE tenant_id = $1
ORDER BY uploaded_at DESC, id DESC`, s.table)
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []usage.StoredDataset
	for rows.Next() {
		stored, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *stored)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Count returns the number of stored snapshots.
func (s *DatasetStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("dataset store: nil db")
	}
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(1) FROM %s`, s.table)).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(row scanner) (*usage.StoredDataset, error) {
	var (
		stored  usage.StoredDataset
		payload []byte
	)
	if err := row.Scan(&stored.ID, &stored.TenantID, &stored.Source, &stored.UploadedAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usage.ErrDatasetNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &stored.Dataset); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", stored.ID, err)
	}
	stored.UploadedAt = stored.UploadedAt.UTC()
	return &stored, nil
}
