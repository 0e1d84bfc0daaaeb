package apihttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"energy-optimizer/internal/audit"
	"energy-optimizer/internal/auth"
	"energy-optimizer/internal/observability/metrics"
	optapp "energy-optimizer/internal/optimization/application"
	optimization "energy-optimizer/internal/optimization/domain"
	optinterfaces "energy-optimizer/internal/optimization/interfaces"
	prediction "energy-optimizer/internal/prediction/domain"
	usageapp "energy-optimizer/internal/usage/application"
)

const (
	defaultMaxUploadBytes = 10 << 20
	multipartMemory       = 4 << 20
)

// HealthHandler serves GET /api/v1/health.
type HealthHandler struct {
	predictor prediction.Predictor
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(predictor prediction.Predictor) *HealthHandler {
	return &HealthHandler{predictor: predictor}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"model_loaded": prediction.Loaded(h.predictor),
	})
}

// DatasetHandler serves uploads and listings on /api/v1/datasets.
type DatasetHandler struct {
	datasets       *usageapp.DatasetService
	journal        audit.Recorder
	tenantID       string
	maxUploadBytes int64
	logger         *log.Logger
}

// NewDatasetHandler constructs a DatasetHandler.
func NewDatasetHandler(datasets *usageapp.DatasetService, journal audit.Recorder, tenantID string, logger *log.Logger) (*DatasetHandler, error) {
	if datasets == nil {
		return nil, errors.New("dataset handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DatasetHandler{
		datasets:       datasets,
		journal:        journal,
		tenantID:       tenantID,
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         logger,
	}, nil
}

type uploadResponse struct {
	Message    string               `json:"message"`
	DatasetID  string               `json:"dataset_id"`
	Source     string               `json:"source"`
	UploadedAt time.Time            `json:"uploaded_at"`
	Statistics usageapp.UploadStats `json:"statistics"`
}

type datasetSummary struct {
	DatasetID    string    `json:"dataset_id"`
	Source       string    `json:"source"`
	UploadedAt   time.Time `json:"uploaded_at"`
	TotalRecords int       `json:"total_records"`
}

func (h *DatasetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.upload(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *DatasetHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, "expected multipart form upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, "No file provided")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, "No file selected")
		return
	}

	tenantID := tenantFrom(r, h.tenantID)
	stored, stats, err := h.datasets.Ingest(r.Context(), tenantID, header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	recordEvent(h.journal, r, func(caller audit.Caller) (audit.Event, error) {
		return audit.UploadEvent(tenantID, stored.ID, caller, audit.UploadDetail{
			Source:        stored.Source,
			Records:       stats.TotalRecords,
			TotalUnitsKWh: stats.TotalUnits,
		})
	})
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:    "File uploaded successfully",
		DatasetID:  stored.ID,
		Source:     stored.Source,
		UploadedAt: stored.UploadedAt,
		Statistics: stats,
	})
}

func (h *DatasetHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.datasets.List(r.Context(), tenantFrom(r, h.tenantID))
	if err != nil {
		writeError(w, err)
		return
	}
	result := make([]datasetSummary, 0, len(list))
	for _, stored := range list {
		result = append(result, datasetSummary{
			DatasetID:    stored.ID,
			Source:       stored.Source,
			UploadedAt:   stored.UploadedAt,
			TotalRecords: stored.Dataset.Len(),
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// AnalyticsHandler serves GET /api/v1/analytics.
type AnalyticsHandler struct {
	service  *optapp.Service
	tenantID string
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(service *optapp.Service, tenantID string) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, tenantID: tenantID}
}

type analyticsResponse struct {
	DatasetID       string             `json:"dataset_id"`
	Source          string             `json:"source"`
	TotalRecords    int                `json:"total_records"`
	MonthlyAvgUnits map[string]float64 `json:"monthly_avg_units"`
	PeakUsageImpact map[string]float64 `json:"peak_usage_impact"`
	TotalUnits      float64            `json:"total_units"`
	TotalCost       float64            `json:"total_cost"`
	AvgUnits        float64            `json:"avg_units"`
	AvgCost         float64            `json:"avg_cost"`
	CostPerKWh      float64            `json:"cost_per_kwh"`
	Trend           string             `json:"trend"`
	Correlation     float64            `json:"correlation"`
}

func (h *AnalyticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if h == nil || h.service == nil {
		writeCode(w, http.StatusServiceUnavailable, CodeInternal, "server not ready")
		return
	}
	report, err := h.service.Analytics(r.Context(), tenantFrom(r, h.tenantID), r.URL.Query().Get("dataset_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	stats := report.Stats
	impact := make(map[string]float64, len(stats.PeakHours))
	for hours, avg := range stats.PeakUsageImpact() {
		impact[strconv.FormatFloat(hours, 'f', -1, 64)] = avg
	}
	writeJSON(w, http.StatusOK, analyticsResponse{
		DatasetID:       report.DatasetID,
		Source:          report.Source,
		TotalRecords:    stats.TotalRecords,
		MonthlyAvgUnits: stats.MonthlyAvgUnits(),
		PeakUsageImpact: impact,
		TotalUnits:      stats.TotalUnits,
		TotalCost:       stats.TotalCost,
		AvgUnits:        stats.AvgUnits,
		AvgCost:         stats.AvgCost,
		CostPerKWh:      stats.CostPerKWh,
		Trend:           string(stats.Trend),
		Correlation:     stats.Correlation,
	})
}

// PredictHandler serves POST /api/v1/predict.
type PredictHandler struct {
	predictor  prediction.Predictor
	costPerKWh float64
}

// NewPredictHandler constructs a PredictHandler.
func NewPredictHandler(predictor prediction.Predictor, costPerKWh float64) *PredictHandler {
	if predictor == nil {
		predictor = prediction.Unavailable{}
	}
	return &PredictHandler{predictor: predictor, costPerKWh: costPerKWh}
}

// Field names match the model's training columns; decoding is case-insensitive.
type predictRequest struct {
	Month          *string  `json:"month"`
	AvgDailyKWh    *float64 `json:"avg_daily_kwh"`
	PeakUsageHours *float64 `json:"peak_usage_hours"`
	CostPerKWh     float64  `json:"cost_per_kwh"`
}

type predictResponse struct {
	prediction.Estimate
	Timestamp string `json:"timestamp"`
}

func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, "invalid json: "+err.Error())
		return
	}
	if req.Month == nil || req.AvgDailyKWh == nil || req.PeakUsageHours == nil {
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, "Month, Avg_Daily_KWh and Peak_Usage_Hours are required")
		return
	}
	cost := req.CostPerKWh
	if cost <= 0 {
		cost = h.costPerKWh
	}

	estimate, err := prediction.EstimateCost(r.Context(), h.predictor, *req.Month, *req.AvgDailyKWh, *req.PeakUsageHours, cost)
	metrics.IncPredict(metrics.Result(err))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Estimate: estimate, Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

// OptimizeHandler serves POST /api/v1/optimize.
type OptimizeHandler struct {
	service     *optapp.Service
	journal audit.Recorder
	tenantID    string
}

// NewOptimizeHandler constructs an OptimizeHandler.
func NewOptimizeHandler(service *optapp.Service, journal audit.Recorder, tenantID string) *OptimizeHandler {
	return &OptimizeHandler{service: service, journal: journal, tenantID: tenantID}
}

type optimizeRequest struct {
	DatasetID       string   `json:"dataset_id"`
	TargetReduction *float64 `json:"target_reduction"`
	TimeHorizon     *int     `json:"time_horizon"`
}

type optimizeResponse struct {
	DatasetID   string    `json:"dataset_id"`
	GeneratedAt time.Time `json:"generated_at"`
	optimization.RecommendationSet
}

func (h *OptimizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if h == nil || h.service == nil {
		writeCode(w, http.StatusServiceUnavailable, CodeInternal, "server not ready")
		return
	}
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, "invalid json: "+err.Error())
		return
	}
	target := optapp.DefaultTargetReduction
	if req.TargetReduction != nil {
		target = *req.TargetReduction
	}
	horizon := optapp.DefaultTimeHorizonDays
	if req.TimeHorizon != nil {
		horizon = *req.TimeHorizon
	}

	tenantID := tenantFrom(r, h.tenantID)
	report, err := h.service.Optimize(r.Context(), tenantID, req.DatasetID, target, horizon)
	if err != nil {
		writeError(w, err)
		return
	}
	recordEvent(h.journal, r, func(caller audit.Caller) (audit.Event, error) {
		return audit.PlanEvent(tenantID, report.DatasetID, caller, audit.PlanDetail{
			TargetReduction:     target,
			TimeHorizonDays:     horizon,
			RequiredKWh:         report.Result.RequiredReductionKWh,
			PlannedKWh:          report.Result.PlannedReductionKWh,
			TargetAchievable:    report.Result.TargetAchievable,
			RecommendationCount: len(report.Result.Recommendations),
		})
	})
	writeJSON(w, http.StatusOK, optimizeResponse{
		DatasetID:         report.DatasetID,
		GeneratedAt:       report.GeneratedAt,
		RecommendationSet: report.Result,
	})
}

// RecommendationsHandler serves GET /api/v1/recommendations.
type RecommendationsHandler struct {
	service  *optapp.Service
	tenantID string
}

// NewRecommendationsHandler constructs a RecommendationsHandler.
func NewRecommendationsHandler(service *optapp.Service, tenantID string) *RecommendationsHandler {
	return &RecommendationsHandler{service: service, tenantID: tenantID}
}

type recommendationsResponse struct {
	DatasetID       string                        `json:"dataset_id"`
	GeneratedAt     time.Time                     `json:"generated_at"`
	Recommendations []optimization.Recommendation `json:"recommendations"`
}

func (h *RecommendationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if h == nil || h.service == nil {
		writeCode(w, http.StatusServiceUnavailable, CodeInternal, "server not ready")
		return
	}
	report, err := h.service.Recommendations(r.Context(), tenantFrom(r, h.tenantID), r.URL.Query().Get("dataset_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{
		DatasetID:       report.DatasetID,
		GeneratedAt:     report.GeneratedAt,
		Recommendations: report.Recommendations,
	})
}

// ReportHandler serves GET /api/v1/reports/optimization.{csv,pdf,xlsx}.
type ReportHandler struct {
	service  *optapp.Service
	tenantID string
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(service *optapp.Service, tenantID string) *ReportHandler {
	return &ReportHandler{service: service, tenantID: tenantID}
}

type reportFormat struct {
	contentType string
	build       func(*optapp.OptimizationReport) ([]byte, error)
}

var reportFormats = map[string]reportFormat{
	"csv":  {contentType: "text/csv; charset=utf-8", build: optinterfaces.BuildOptimizationCSV},
	"pdf":  {contentType: "application/pdf", build: optinterfaces.BuildOptimizationPDF},
	"xlsx": {contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", build: optinterfaces.BuildOptimizationXLSX},
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if h == nil || h.service == nil {
		writeCode(w, http.StatusServiceUnavailable, CodeInternal, "server not ready")
		return
	}
	ext := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/optimization.")
	format, ok := reportFormats[ext]
	if !ok || ext == r.URL.Path {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	target, err := parseFloatQuery(query.Get("target_reduction"), optapp.DefaultTargetReduction)
	if err != nil {
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, "target_reduction: "+err.Error())
		return
	}
	horizon, err := parseIntQuery(query.Get("time_horizon"), optapp.DefaultTimeHorizonDays)
	if err != nil {
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, "time_horizon: "+err.Error())
		return
	}

	start := time.Now()
	report, err := h.service.Plan(r.Context(), tenantFrom(r, h.tenantID), query.Get("dataset_id"), target, horizon)
	if err != nil {
		metrics.ObserveReportExport(ext, metrics.ResultError, time.Since(start))
		writeError(w, err)
		return
	}
	data, err := format.build(report)
	metrics.ObserveReportExport(ext, metrics.Result(err), time.Since(start))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=optimization-%s.%s", report.DatasetID, ext))
	_, _ = w.Write(data)
}

func tenantFrom(r *http.Request, fallback string) string {
	if tenantID := auth.TenantIDFromContext(r.Context()); tenantID != "" {
		return tenantID
	}
	return fallback
}

// recordEvent journals a dataset event. Journal failures never fail the request.
func recordEvent(journal audit.Recorder, r *http.Request, build func(audit.Caller) (audit.Event, error)) {
	if journal == nil {
		return
	}
	caller := audit.CallerFrom(r, auth.SubjectFromContext(r.Context()), string(auth.RoleFromContext(r.Context())))
	event, err := build(caller)
	if err != nil {
		return
	}
	_ = journal.Record(r.Context(), event)
}

func parseFloatQuery(value string, fallback float64) (float64, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseIntQuery(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

