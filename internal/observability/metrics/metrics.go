package metrics

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "energyopt_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	uploadTotal   *prometheus.CounterVec
	uploadLatency *prometheus.HistogramVec
	ingestErrors  *prometheus.CounterVec

	analyticsTotal   *prometheus.CounterVec
	analyticsLatency *prometheus.HistogramVec

	optimizeTotal     *prometheus.CounterVec
	optimizeLatency   *prometheus.HistogramVec
	optimizeShortfall prometheus.Counter
	leverSavings      *prometheus.CounterVec

	recommendTotal   *prometheus.CounterVec
	recommendLatency *prometheus.HistogramVec

	predictTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	publishTotal *prometheus.CounterVec
)

// Init registers metrics and the stored-datasets gauge.
func Init(counter DatasetCounter, logger *log.Logger) {
	registerOnce.Do(func() {
		uploadTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dataset_uploads_total",
				Help: "Total dataset uploads by result",
			},
			[]string{"result"},
		)
		uploadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dataset_upload_latency_seconds",
				Help:    "Dataset upload latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total rejected uploads by reason",
			},
			[]string{"reason"},
		)

		analyticsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analytics_total",
				Help: "Total baseline summaries by result",
			},
			[]string{"result"},
		)
		analyticsLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "analytics_latency_seconds",
				Help:    "Baseline summary latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		optimizeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "optimize_total",
				Help: "Total optimization runs by result",
			},
			[]string{"result"},
		)
		optimizeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "optimize_latency_seconds",
				Help:    "Optimization latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		optimizeShortfall = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "optimize_shortfall_total",
				Help: "Optimization runs that could not reach the requested target",
			},
		)
		leverSavings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "planned_savings_kwh_total",
				Help: "Planned savings in kWh by lever",
			},
			[]string{"lever"},
		)

		recommendTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "recommendations_total",
				Help: "Total recommendation generations by result",
			},
			[]string{"result"},
		)
		recommendLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "recommendations_latency_seconds",
				Help:    "Recommendation generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		predictTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "predict_total",
				Help: "Total predictions by result",
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		publishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "result_publish_total",
				Help: "Total optimization result publications by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			uploadTotal,
			uploadLatency,
			ingestErrors,
			analyticsTotal,
			analyticsLatency,
			optimizeTotal,
			optimizeLatency,
			optimizeShortfall,
			leverSavings,
			recommendTotal,
			recommendLatency,
			predictTotal,
			exportTotal,
			exportLatency,
			publishTotal,
		)

		if counter != nil {
			registerStoreMetrics(counter, logger)
		}
	})
}

// ObserveUpload records upload duration and result.
func ObserveUpload(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if uploadTotal != nil {
		uploadTotal.WithLabelValues(result).Inc()
	}
	if uploadLatency != nil {
		uploadLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments the rejected upload counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveAnalytics records baseline summary latency and result.
func ObserveAnalytics(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if analyticsTotal != nil {
		analyticsTotal.WithLabelValues(result).Inc()
	}
	if analyticsLatency != nil {
		analyticsLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveOptimize records optimization latency and result.
func ObserveOptimize(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if optimizeTotal != nil {
		optimizeTotal.WithLabelValues(result).Inc()
	}
	if optimizeLatency != nil {
		optimizeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncOptimizeShortfall counts runs that fell short of their target.
func IncOptimizeShortfall() {
	if optimizeShortfall != nil {
		optimizeShortfall.Inc()
	}
}

// AddPlannedSavings accumulates planned kWh savings for a lever.
func AddPlannedSavings(lever string, kwh float64) {
	if kwh <= 0 {
		return
	}
	if lever == "" {
		lever = "unknown"
	}
	if leverSavings != nil {
		leverSavings.WithLabelValues(lever).Add(kwh)
	}
}

// ObserveRecommendations records recommendation generation latency and result.
func ObserveRecommendations(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if recommendTotal != nil {
		recommendTotal.WithLabelValues(result).Inc()
	}
	if recommendLatency != nil {
		recommendLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncPredict increments the prediction counter.
func IncPredict(result string) {
	if result == "" {
		result = resultSuccess
	}
	if predictTotal != nil {
		predictTotal.WithLabelValues(result).Inc()
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncPublish increments the result publication counter.
func IncPublish(result string) {
	if result == "" {
		result = resultSuccess
	}
	if publishTotal != nil {
		publishTotal.WithLabelValues(result).Inc()
	}
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultSkipped = "skipped"
)
