package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usage "energy-optimizer/internal/usage/domain"
	"energy-optimizer/internal/usage/infrastructure/memory"
	"energy-optimizer/internal/usage/infrastructure/sqlite"
)

const usageCSV = `Month,Units_kWh,Avg_Daily_kWh,Peak_Usage_Hours,Cost
Jan,300,10,6,1950
Feb,400,14.3,12,2600
Mar,200,6.5,6,1300
`

func resetFlags(t *testing.T) {
	t.Helper()
	dbPath, tenantID, policyPath, inputFile, datasetFlag, verbose = "", "local", "", "", "", false
	t.Cleanup(func() {
		dbPath, tenantID, policyPath, inputFile, datasetFlag, verbose = "", "local", "", "", "", false
	})
}

func writeUsageFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usage.csv")
	require.NoError(t, os.WriteFile(path, []byte(usageCSV), 0o644))
	return path
}

func TestImportStoresDataset(t *testing.T) {
	resetFlags(t)
	db := filepath.Join(t.TempDir(), "energy.db")
	file := writeUsageFile(t)

	rootCmd.SetArgs([]string{"import", "--db", db, "--tenant", "home", file})
	require.NoError(t, rootCmd.Execute())

	store, err := sqlite.Open(db)
	require.NoError(t, err)
	defer store.Close()
	latest, err := store.Latest(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, "usage.csv", latest.Source)
	assert.Equal(t, 3, latest.Dataset.Len())
}

func TestSessionFromFile(t *testing.T) {
	resetFlags(t)
	inputFile = writeUsageFile(t)

	s, err := openSession(context.Background())
	require.NoError(t, err)
	defer s.Close()
	require.NotEmpty(t, s.datasetID)

	report, err := s.optimizer.Plan(context.Background(), tenantID, s.datasetID, 0.15, 30)
	require.NoError(t, err)
	assert.InDelta(t, 135, report.Result.RequiredReductionKWh, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, printPlan(&buf, report))
	assert.Contains(t, buf.String(), "Baseline:        900.00 kWh")
	assert.Contains(t, buf.String(), "1. [peak_load]")
}

func TestSessionRejectsMissingColumns(t *testing.T) {
	resetFlags(t)
	inputFile = filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(inputFile, []byte("Month,Cost\nJan,1\n"), 0o644))

	_, err := openSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns [Units_kWh Avg_Daily_kWh Peak_Usage_Hours]")
	assert.ErrorIs(t, err, usage.ErrSchema)

	var schemaErr *usage.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"Month", "Cost"}, schemaErr.Present)
}

type countingStore struct {
	*memory.DatasetStore
	closed int
}

func (s *countingStore) Close() error {
	s.closed++
	return nil
}

func useStore(t *testing.T, store *countingStore) {
	t.Helper()
	prev := openSessionStore
	openSessionStore = func() (sessionStore, error) { return store, nil }
	t.Cleanup(func() { openSessionStore = prev })
}

func TestSessionClosesDatabaseOnPolicyError(t *testing.T) {
	resetFlags(t)
	store := &countingStore{DatasetStore: memory.NewDatasetStore()}
	useStore(t, store)
	policyPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := openSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading policy")
	assert.Equal(t, 1, store.closed)
}

func TestSessionClosesDatabaseOnBadPolicy(t *testing.T) {
	resetFlags(t)
	store := &countingStore{DatasetStore: memory.NewDatasetStore()}
	useStore(t, store)
	policyPath = filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte("levers:\n  peak_load:\n    elasticity: .nan\n"), 0o644))

	_, err := openSession(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, store.closed)
}

func TestSessionKeepsDatabaseOpenUntilClose(t *testing.T) {
	resetFlags(t)
	store := &countingStore{DatasetStore: memory.NewDatasetStore()}
	useStore(t, store)

	s, err := openSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, store.closed)
	require.NoError(t, s.Close())
	assert.Equal(t, 1, store.closed)
}
