package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	usageapp "energy-optimizer/internal/usage/application"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import usage tables into the database",
	Long:  `Parses CSV or XLSX usage tables and stores each one as a new dataset.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	datasets, err := usageapp.NewDatasetService(store, newLogger())
	if err != nil {
		return err
	}

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		stored, stats, err := datasets.Ingest(cmd.Context(), tenantID, filepath.Base(path), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, describeError(err))
		}
		fmt.Printf("Imported %s as %s\n", path, stored.ID)
		fmt.Printf("  records: %d  total: %.2f kWh  avg: %.2f kWh  avg cost: %.2f\n",
			stats.TotalRecords, stats.TotalUnits, stats.AvgUnits, stats.AvgCost)
	}
	return nil
}
