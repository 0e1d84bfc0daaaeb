package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	usage "energy-optimizer/internal/usage/domain"
)

// fixed-width so uploaded_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DatasetStore keeps dataset snapshots in a local SQLite file.
type DatasetStore struct {
	conn *sql.DB
}

// Open opens (or creates) the database file and initializes the schema.
func Open(path string) (*DatasetStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	conn.SetMaxOpenConns(1)

	store := &DatasetStore{conn: conn}
	if err := store.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *DatasetStore) Close() error {
	return s.conn.Close()
}

func (s *DatasetStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		source TEXT NOT NULL,
		uploaded_at TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		records TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_datasets_tenant_uploaded ON datasets(tenant_id, uploaded_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save inserts or replaces a snapshot.
func (s *DatasetStore) Save(ctx context.Context, stored usage.StoredDataset) error {
	if stored.TenantID == "" {
		return usage.ErrEmptyTenantID
	}
	payload, err := json.Marshal(stored.Dataset)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
	INSERT OR REPLACE INTO datasets (id, tenant_id, source, uploaded_at, record_count, records)
	VALUES (?, ?, ?, ?, ?, ?)
	`, stored.ID, stored.TenantID, stored.Source, stored.UploadedAt.UTC().Format(timeLayout), stored.Dataset.Len(), string(payload))
	if err != nil {
		return fmt.Errorf("inserting dataset: %w", err)
	}
	return nil
}

// Get fetches a snapshot by id.
func (s *DatasetStore) Get(ctx context.Context, tenantID, id string) (*usage.StoredDataset, error) {
	if tenantID == "" {
		return nil, usage.ErrEmptyTenantID
	}
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, tenant_id, source, uploaded_at, records
	FROM datasets
	WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	return scanDataset(row)
}

// Latest fetches the most recent snapshot for a tenant.
func (s *DatasetStore) Latest(ctx context.Context, tenantID string) (*usage.StoredDataset, error) {
	if tenantID == "" {
		return nil, usage.ErrEmptyTenantID
	}
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, tenant_id, source, uploaded_at, records
	FROM datasets
	WHERE tenant_id = ?
	ORDER BY uploaded_at DESC, id DESC
	LIMIT 1
	`, tenantID)
	return scanDataset(row)
}

// List returns snapshots newest first.
func (s *DatasetStore) List(ctx context.Context, tenantID string) ([]usage.StoredDataset, error) {
	if tenantID == "" {
		return nil, usage.ErrEmptyTenantID
	}
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, tenant_id, source, uploaded_at, records
	FROM datasets
	WHERE tenant_id = ?
	ORDER BY uploaded_at DESC, id DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying datasets: %w", err)
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
	return result, rows.Err()
}

// Count returns the number of stored snapshots.
func (s *DatasetStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM datasets`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(row scanner) (*usage.StoredDataset, error) {
	var (
		stored     usage.StoredDataset
		uploadedAt string
		payload    string
	)
	err := row.Scan(&stored.ID, &stored.TenantID, &stored.Source, &uploadedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usage.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying dataset: %w", err)
	}
	stored.UploadedAt, err = time.Parse(timeLayout, uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &stored.Dataset); err != nil {
		return nil, fmt.Errorf("decoding dataset %s: %w", stored.ID, err)
	}
	return &stored, nil
}
