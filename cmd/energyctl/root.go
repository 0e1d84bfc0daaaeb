package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	optapp "energy-optimizer/internal/optimization/application"
	optimization "energy-optimizer/internal/optimization/domain"
	usageapp "energy-optimizer/internal/usage/application"
	usage "energy-optimizer/internal/usage/domain"
	"energy-optimizer/internal/usage/infrastructure/memory"
	"energy-optimizer/internal/usage/infrastructure/sqlite"
)

var (
	dbPath      string
	tenantID    string
	policyPath  string
	inputFile   string
	datasetFlag string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "energyctl",
	Short: "Analyze household electricity usage and plan reductions",
	Long: `energyctl imports monthly usage tables (CSV or XLSX), summarizes consumption
and produces ranked recommendations for meeting a reduction target.
Imported datasets are kept in a local SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./energy.db)")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "local", "tenant that owns the datasets")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "optimizer policy file (YAML)")
	rootCmd.PersistentFlags().StringVar(&inputFile, "file", "", "read usage from this file instead of the database")
	rootCmd.PersistentFlags().StringVar(&datasetFlag, "dataset", "", "dataset id (default is the latest import)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log service activity to stderr")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "energy.db"
}

func newLogger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func openStore() (*sqlite.DatasetStore, error) {
	store, err := sqlite.Open(getDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

// session wires the services for one command run.
type session struct {
	datasets  *usageapp.DatasetService
	optimizer *optapp.Service
	datasetID string
	closeFn   func() error
}

func (s *session) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// sessionStore is the database side of a session.
type sessionStore interface {
	usage.Store
	io.Closer
}

// openSessionStore is replaced in tests.
var openSessionStore = func() (sessionStore, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openSession reads from --file when given, otherwise from the database.
// The database is closed again when any later step fails.
func openSession(ctx context.Context, opts ...optapp.ServiceOption) (_ *session, err error) {
	logger := newLogger()

	var (
		store   usage.Store
		closeFn func() error
	)
	if inputFile == "" {
		db, openErr := openSessionStore()
		if openErr != nil {
			return nil, openErr
		}
		store, closeFn = db, db.Close
		defer func() {
			if err != nil {
				_ = closeFn()
			}
		}()
	} else {
		store = memory.NewDatasetStore()
	}

	datasets, err := usageapp.NewDatasetService(store, logger)
	if err != nil {
		return nil, err
	}
	policy, err := optapp.LoadPolicy(policyPath)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	engine, err := optimization.NewEngine(policy)
	if err != nil {
		return nil, err
	}
	optimizer, err := optapp.NewService(datasets, engine, logger, opts...)
	if err != nil {
		return nil, err
	}

	s := &session{datasets: datasets, optimizer: optimizer, datasetID: datasetFlag, closeFn: closeFn}
	if inputFile != "" {
		stored, err := ingestFile(ctx, datasets, inputFile)
		if err != nil {
			return nil, err
		}
		s.datasetID = stored.ID
	}
	return s, nil
}

func ingestFile(ctx context.Context, datasets *usageapp.DatasetService, path string) (*usage.StoredDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	stored, _, err := datasets.Ingest(ctx, tenantID, filepath.Base(path), f)
	if err != nil {
		return nil, describeError(err)
	}
	return stored, nil
}

// describeError expands schema errors into the column lists.
func describeError(err error) error {
	var schemaErr *usage.SchemaError
	if errors.As(err, &schemaErr) {
		return &columnsError{schema: schemaErr, err: err}
	}
	return err
}

// columnsError prints the column lists and still unwraps to the ingest error.
type columnsError struct {
	schema *usage.SchemaError
	err    error
}

func (e *columnsError) Error() string {
	return fmt.Sprintf("missing columns %v (available: %v)", e.schema.Missing, e.schema.Present)
}

func (e *columnsError) Unwrap() error { return e.err }
