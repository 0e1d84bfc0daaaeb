package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	prediction "energy-optimizer/internal/prediction/domain"
	"energy-optimizer/internal/prediction/infrastructure/artifact"
)

var (
	predictModel     string
	predictMonth     string
	predictAvgDaily  float64
	predictPeakHours float64
	predictCost      float64
	predictJSON      bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate monthly consumption and cost from a fitted model",
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictModel, "model", os.Getenv("MODEL_PATH"), "model artifact (JSON or YAML)")
	predictCmd.Flags().StringVar(&predictMonth, "month", "", "month name, e.g. Jan")
	predictCmd.Flags().Float64Var(&predictAvgDaily, "avg-daily", 0, "average daily consumption in kWh")
	predictCmd.Flags().Float64Var(&predictPeakHours, "peak-hours", 0, "peak usage hours per day")
	predictCmd.Flags().Float64Var(&predictCost, "cost", prediction.DefaultCostPerKWh, "cost per kWh")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print JSON")
	_ = predictCmd.MarkFlagRequired("month")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	predictor, err := artifact.LoadPredictor(predictModel)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	estimate, err := prediction.EstimateCost(cmd.Context(), predictor, predictMonth, predictAvgDaily, predictPeakHours, predictCost)
	if err != nil {
		return err
	}
	if predictJSON {
		return printJSON(os.Stdout, estimate)
	}
	fmt.Printf("%s: %.2f kWh, estimated cost %.2f at %.2f/kWh\n",
		estimate.Month, estimate.PredictedKWh, estimate.EstimatedCost, estimate.CostPerKWh)
	return nil
}
