package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var recommendJSON bool

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print advice derived from usage patterns",
	RunE:  runRecommend,
}

func init() {
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "print JSON instead of text")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.optimizer.Recommendations(cmd.Context(), tenantID, s.datasetID)
	if err != nil {
		return describeError(err)
	}
	if recommendJSON {
		return printJSON(os.Stdout, report)
	}
	fmt.Printf("Recommendations for %s (%s)\n\n", report.DatasetID, report.Source)
	printRecommendations(os.Stdout, report.Recommendations)
	return nil
}
