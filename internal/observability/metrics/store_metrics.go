package metrics

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const countTimeout = 2 * time.Second

// DatasetCounter reports how many dataset snapshots are stored.
type DatasetCounter interface {
	Count(ctx context.Context) (int, error)
}

func registerStoreMetrics(counter DatasetCounter, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "stored_datasets",
			Help: "Dataset snapshots currently stored",
		},
		func() float64 {
			return queryCount(counter, logger)
		},
	))
}

func queryCount(counter DatasetCounter, logger *log.Logger) float64 {
	ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
	defer cancel()
	count, err := counter.Count(ctx)
	if err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
