package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	optapp "energy-optimizer/internal/optimization/application"
	optimization "energy-optimizer/internal/optimization/domain"
	optinterfaces "energy-optimizer/internal/optimization/interfaces"
)

var (
	optimizeTarget     float64
	optimizeHorizon    int
	optimizeFormat     string
	optimizeOut        string
	optimizeMQTTBroker string
	optimizeMQTTPrefix string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Plan a consumption reduction",
	Long: `Allocates the requested reduction across the optimizer levers and prints the
ranked plan. Use --format to export csv, pdf or xlsx reports.`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().Float64Var(&optimizeTarget, "target", optapp.DefaultTargetReduction, "reduction target as a fraction of baseline (0-1)")
	optimizeCmd.Flags().IntVar(&optimizeHorizon, "horizon", optapp.DefaultTimeHorizonDays, "time horizon in days")
	optimizeCmd.Flags().StringVar(&optimizeFormat, "format", "table", "output format: table, json, csv, pdf or xlsx")
	optimizeCmd.Flags().StringVarP(&optimizeOut, "out", "o", "", "write output to this file (required for pdf and xlsx)")
	optimizeCmd.Flags().StringVar(&optimizeMQTTBroker, "mqtt-broker", "", "publish the result summary to this MQTT broker")
	optimizeCmd.Flags().StringVar(&optimizeMQTTPrefix, "mqtt-topic-prefix", "energy_optimizer", "MQTT topic prefix")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(optimizeFormat)
	if (format == "pdf" || format == "xlsx") && optimizeOut == "" {
		return fmt.Errorf("--out is required for %s output", format)
	}

	var opts []optapp.ServiceOption
	if optimizeMQTTBroker != "" {
		publisher, err := optinterfaces.NewMQTTPublisher(optinterfaces.MQTTConfig{
			Broker:      optimizeMQTTBroker,
			ClientID:    "energyctl",
			TopicPrefix: optimizeMQTTPrefix,
		})
		if err != nil {
			return fmt.Errorf("connecting to mqtt: %w", err)
		}
		defer publisher.Close()
		opts = append(opts, optapp.WithPublisher(publisher))
	}

	s, err := openSession(cmd.Context(), opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	run := s.optimizer.Plan
	if optimizeMQTTBroker != "" {
		run = s.optimizer.Optimize
	}
	report, err := run(cmd.Context(), tenantID, s.datasetID, optimizeTarget, optimizeHorizon)
	if err != nil {
		return describeError(err)
	}

	var data []byte
	switch format {
	case "table":
		return writeOutput(func(w io.Writer) error { return printPlan(w, report) })
	case "json":
		return writeOutput(func(w io.Writer) error { return printJSON(w, report) })
	case "csv":
		data, err = optinterfaces.BuildOptimizationCSV(report)
	case "pdf":
		data, err = optinterfaces.BuildOptimizationPDF(report)
	case "xlsx":
		data, err = optinterfaces.BuildOptimizationXLSX(report)
	default:
		return fmt.Errorf("unknown format %q", optimizeFormat)
	}
	if err != nil {
		return fmt.Errorf("building %s report: %w", format, err)
	}
	return writeOutput(func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeOutput(write func(io.Writer) error) error {
	if optimizeOut == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(optimizeOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", optimizeOut, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", optimizeOut)
	return nil
}

func printPlan(w io.Writer, report *optapp.OptimizationReport) error {
	set := report.Result
	fmt.Fprintf(w, "Dataset %s: target %.0f%% over %d days\n", report.DatasetID, set.TargetFraction*100, set.TimeHorizonDays)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Baseline:    %10.2f kWh\n", set.BaselineKWh)
	fmt.Fprintf(w, "Required:    %10.2f kWh\n", set.RequiredReductionKWh)
	fmt.Fprintf(w, "Planned:     %10.2f kWh\n", set.PlannedReductionKWh)
	fmt.Fprintf(w, "Achievable:  %10.2f kWh\n", set.AchievableReductionKWh)
	fmt.Fprintf(w, "Savings:     %10.2f\n", set.EstimatedSavingsCost)
	if !set.TargetAchievable {
		fmt.Fprintf(w, "Shortfall:   %10.2f kWh (target cannot be met with current levers)\n", set.ShortfallKWh)
	}
	fmt.Fprintln(w)
	printRecommendations(w, set.Recommendations)
	return nil
}

func printRecommendations(w io.Writer, recs []optimization.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations")
		return
	}
	for _, rec := range recs {
		fmt.Fprintf(w, "%d. [%s] %.2f kWh, %.2f saved, confidence %.0f%%, %s\n",
			rec.Priority, rec.Lever, rec.EstimatedSavingsKWh, rec.EstimatedSavingsCost, rec.Confidence*100, rec.ApplicablePeriod)
		fmt.Fprintf(w, "   %s\n", rec.Action)
		if rec.Pacing != nil {
			fmt.Fprintf(w, "   schedule: %s\n", rec.Pacing.Schedule)
		}
	}
}
