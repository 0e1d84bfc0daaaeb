package application

import (
	"context"
	"errors"
	"log"
	"time"

	"energy-optimizer/internal/analytics/domain/baseline"
	"energy-optimizer/internal/observability/metrics"
	optimization "energy-optimizer/internal/optimization/domain"
	usage "energy-optimizer/internal/usage/domain"
)

// Request defaults applied when a caller omits them.
const (
	DefaultTargetReduction = 0.15
	DefaultTimeHorizonDays = 30
)

// DatasetResolver resolves a dataset handle; an empty id means the latest upload.
type DatasetResolver interface {
	Resolve(ctx context.Context, tenantID, id string) (*usage.StoredDataset, error)
}

// OptimizationSummary is the compact result published after an optimization run.
type OptimizationSummary struct {
	TenantID             string    `json:"tenant_id"`
	DatasetID            string    `json:"dataset_id"`
	GeneratedAt          time.Time `json:"generated_at"`
	BaselineKWh          float64   `json:"baseline_kwh"`
	TargetFraction       float64   `json:"target_fraction"`
	TimeHorizonDays      int       `json:"time_horizon_days"`
	PlannedReductionKWh  float64   `json:"planned_reduction_kwh"`
	ShortfallKWh         float64   `json:"shortfall_kwh"`
	TargetAchievable     bool      `json:"target_achievable"`
	EstimatedSavingsCost float64   `json:"estimated_savings_cost"`
	RecommendationCount  int       `json:"recommendation_count"`
	TopLever             string    `json:"top_lever,omitempty"`
}

// ResultPublisher announces optimization results to downstream consumers.
type ResultPublisher interface {
	PublishOptimization(ctx context.Context, summary OptimizationSummary) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// AnalyticsReport is the baseline of one dataset.
type AnalyticsReport struct {
	DatasetID string
	Source    string
	Stats     baseline.Stats
}

// OptimizationReport is the outcome of one optimization run.
type OptimizationReport struct {
	TenantID    string
	DatasetID   string
	Source      string
	GeneratedAt time.Time
	Result      optimization.RecommendationSet
}

// RecommendationReport holds target-free advice for one dataset.
type RecommendationReport struct {
	DatasetID       string
	Source          string
	GeneratedAt     time.Time
	Recommendations []optimization.Recommendation
}

// Service runs analytics and optimization over stored datasets.
type Service struct {
	datasets  DatasetResolver
	engine    *optimization.Engine
	publisher ResultPublisher
	clock     Clock
	logger    *log.Logger
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithPublisher sets the result publisher.
func WithPublisher(publisher ResultPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithClock overrides the report timestamp source.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the optimization service.
func NewService(datasets DatasetResolver, engine *optimization.Engine, logger *log.Logger, opts ...ServiceOption) (*Service, error) {
	if datasets == nil {
		return nil, errors.New("optimization service: nil dataset resolver")
	}
	if engine == nil {
		return nil, errors.New("optimization service: nil engine")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{datasets: datasets, engine: engine, clock: SystemClock{}, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Analytics summarizes a dataset.
func (s *Service) Analytics(ctx context.Context, tenantID, datasetID string) (*AnalyticsReport, error) {
	start := time.Now()
	report, err := s.analytics(ctx, tenantID, datasetID)
	metrics.ObserveAnalytics(metrics.Result(err), time.Since(start))
	return report, err
}

func (s *Service) analytics(ctx context.Context, tenantID, datasetID string) (*AnalyticsReport, error) {
	stored, err := s.datasets.Resolve(ctx, tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	stats, err := baseline.Summarize(stored.Dataset)
	if err != nil {
		return nil, err
	}
	return &AnalyticsReport{DatasetID: stored.ID, Source: stored.Source, Stats: stats}, nil
}

// Optimize plans a reduction of targetFraction over horizonDays and publishes a summary.
func (s *Service) Optimize(ctx context.Context, tenantID, datasetID string, targetFraction float64, horizonDays int) (*OptimizationReport, error) {
	start := time.Now()
	report, err := s.optimize(ctx, tenantID, datasetID, targetFraction, horizonDays)
	metrics.ObserveOptimize(metrics.Result(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	result := report.Result
	if !result.TargetAchievable {
		metrics.IncOptimizeShortfall()
	}
	for _, rec := range result.Recommendations {
		metrics.AddPlannedSavings(string(rec.Lever), rec.EstimatedSavingsKWh)
	}
	s.logger.Printf("optimization: tenant=%s dataset=%s target=%.3f horizon=%d planned_kwh=%.2f shortfall_kwh=%.2f",
		tenantID, report.DatasetID, targetFraction, horizonDays, result.PlannedReductionKWh, result.ShortfallKWh)
	s.publish(ctx, report)
	return report, nil
}

func (s *Service) optimize(ctx context.Context, tenantID, datasetID string, targetFraction float64, horizonDays int) (*OptimizationReport, error) {
	stored, err := s.datasets.Resolve(ctx, tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Optimize(stored.Dataset, targetFraction, horizonDays)
	if err != nil {
		return nil, err
	}
	return &OptimizationReport{
		TenantID:    tenantID,
		DatasetID:   stored.ID,
		Source:      stored.Source,
		GeneratedAt: s.clock.Now().UTC(),
		Result:      result,
	}, nil
}

// Plan runs the optimization without announcing the result; reports use it.
func (s *Service) Plan(ctx context.Context, tenantID, datasetID string, targetFraction float64, horizonDays int) (*OptimizationReport, error) {
	start := time.Now()
	report, err := s.optimize(ctx, tenantID, datasetID, targetFraction, horizonDays)
	metrics.ObserveOptimize(metrics.Result(err), time.Since(start))
	return report, err
}

// Recommendations generates target-free advice for a dataset.
func (s *Service) Recommendations(ctx context.Context, tenantID, datasetID string) (*RecommendationReport, error) {
	start := time.Now()
	report, err := s.recommendations(ctx, tenantID, datasetID)
	metrics.ObserveRecommendations(metrics.Result(err), time.Since(start))
	return report, err
}

func (s *Service) recommendations(ctx context.Context, tenantID, datasetID string) (*RecommendationReport, error) {
	stored, err := s.datasets.Resolve(ctx, tenantID, datasetID)
	if err != nil {
		return nil, err
	}
	recs, err := s.engine.GenerateRecommendations(stored.Dataset)
	if err != nil {
		return nil, err
	}
	return &RecommendationReport{
		DatasetID:       stored.ID,
		Source:          stored.Source,
		GeneratedAt:     s.clock.Now().UTC(),
		Recommendations: recs,
	}, nil
}

// Policy returns the elasticity table in use.
func (s *Service) Policy() optimization.Policy {
	return s.engine.Policy()
}

func (s *Service) publish(ctx context.Context, report *OptimizationReport) {
	if s.publisher == nil {
		metrics.IncPublish(metrics.ResultSkipped)
		return
	}
	err := s.publisher.PublishOptimization(ctx, Summarize(report))
	metrics.IncPublish(metrics.Result(err))
	if err != nil {
		s.logger.Printf("optimization publish failed: tenant=%s dataset=%s err=%v", report.TenantID, report.DatasetID, err)
	}
}

// Summarize condenses a report for publication.
func Summarize(report *OptimizationReport) OptimizationSummary {
	result := report.Result
	summary := OptimizationSummary{
		TenantID:             report.TenantID,
		DatasetID:            report.DatasetID,
		GeneratedAt:          report.GeneratedAt,
		BaselineKWh:          result.BaselineKWh,
		TargetFraction:       result.TargetFraction,
		TimeHorizonDays:      result.TimeHorizonDays,
		PlannedReductionKWh:  result.PlannedReductionKWh,
		ShortfallKWh:         result.ShortfallKWh,
		TargetAchievable:     result.TargetAchievable,
		EstimatedSavingsCost: result.EstimatedSavingsCost,
		RecommendationCount:  len(result.Recommendations),
	}
	if len(result.Recommendations) > 0 {
		summary.TopLever = string(result.Recommendations[0].Lever)
	}
	return summary
}
