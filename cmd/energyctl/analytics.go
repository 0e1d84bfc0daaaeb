package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var analyticsJSON bool

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarize consumption for a dataset",
	Long:  `Prints totals, monthly averages, the peak-hours breakdown and the consumption trend.`,
	RunE:  runAnalytics,
}

func init() {
	analyticsCmd.Flags().BoolVar(&analyticsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(analyticsCmd)
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.optimizer.Analytics(cmd.Context(), tenantID, s.datasetID)
	if err != nil {
		return describeError(err)
	}
	if analyticsJSON {
		return printJSON(os.Stdout, report)
	}

	stats := report.Stats
	fmt.Printf("Dataset %s (%s)\n", report.DatasetID, report.Source)
	fmt.Println("----------------------------------------")
	fmt.Printf("Records:       %d\n", stats.TotalRecords)
	fmt.Printf("Total units:   %.2f kWh\n", stats.TotalUnits)
	fmt.Printf("Average units: %.2f kWh\n", stats.AvgUnits)
	fmt.Printf("Total cost:    %.2f\n", stats.TotalCost)
	fmt.Printf("Cost per kWh:  %.2f\n", stats.CostPerKWh)
	fmt.Printf("Trend:         %s (r=%.2f)\n", stats.Trend, stats.Correlation)

	fmt.Println("\nMonth    Avg kWh  Records")
	for _, b := range stats.Monthly {
		fmt.Printf("%-5s  %9.2f  %7d\n", b.Month, b.AvgUnits, b.Records)
	}
	fmt.Println("\nPeak h   Avg kWh  Records")
	for _, b := range stats.PeakHours {
		fmt.Printf("%6.1f  %9.2f  %7d\n", b.PeakHours, b.AvgUnits, b.Records)
	}
	return nil
}
