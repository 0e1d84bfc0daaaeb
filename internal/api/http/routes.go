package apihttp

import (
	"errors"
	"log"
	"net/http"

	"energy-optimizer/internal/audit"
	optapp "energy-optimizer/internal/optimization/application"
	prediction "energy-optimizer/internal/prediction/domain"
	usageapp "energy-optimizer/internal/usage/application"
)

// Dependencies are the services behind the /api/v1 routes.
type Dependencies struct {
	Datasets   *usageapp.DatasetService
	Optimizer  *optapp.Service
	Predictor  prediction.Predictor
	Journal    audit.Recorder
	TenantID   string
	CostPerKWh float64
	Logger     *log.Logger
}

// Register mounts the API handlers on mux.
func Register(mux *http.ServeMux, deps Dependencies) error {
	if mux == nil {
		return errors.New("apihttp: nil mux")
	}
	if deps.Optimizer == nil {
		return errors.New("apihttp: nil optimizer")
	}
	datasetHandler, err := NewDatasetHandler(deps.Datasets, deps.Journal, deps.TenantID, deps.Logger)
	if err != nil {
		return err
	}
	reportHandler := NewReportHandler(deps.Optimizer, deps.TenantID)

	mux.Handle("/api/v1/health", NewHealthHandler(deps.Predictor))
	mux.Handle("/api/v1/datasets", datasetHandler)
	mux.Handle("/api/v1/analytics", NewAnalyticsHandler(deps.Optimizer, deps.TenantID))
	mux.Handle("/api/v1/predict", NewPredictHandler(deps.Predictor, deps.CostPerKWh))
	mux.Handle("/api/v1/optimize", NewOptimizeHandler(deps.Optimizer, deps.Journal, deps.TenantID))
	mux.Handle("/api/v1/recommendations", NewRecommendationsHandler(deps.Optimizer, deps.TenantID))
	mux.Handle("/api/v1/reports/", reportHandler)
	return nil
}
