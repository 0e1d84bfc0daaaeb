package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"

	usage "energy-optimizer/internal/usage/domain"
)

// DefaultCostPerKWh prices predictions when no tariff is known.
const DefaultCostPerKWh = 6.5

// ErrModelUnavailable is returned when no prediction model is loaded.
var ErrModelUnavailable = errors.New("prediction: model unavailable")

// Predictor estimates monthly consumption from usage features.
type Predictor interface {
	Predict(ctx context.Context, month string, avgDailyKWh, peakHours float64) (float64, error)
}

// Unavailable is the predictor used when no model is configured.
type Unavailable struct{}

// Predict always fails with ErrModelUnavailable.
func (Unavailable) Predict(ctx context.Context, month string, avgDailyKWh, peakHours float64) (float64, error) {
	return 0, ErrModelUnavailable
}

// Loaded reports whether p can serve predictions.
func Loaded(p Predictor) bool {
	switch m := p.(type) {
	case nil, Unavailable:
		return false
	case *LinearModel:
		return m != nil
	default:
		return true
	}
}

// Estimate is a priced prediction.
type Estimate struct {
	Month          string  `json:"month"`
	PredictedKWh   float64 `json:"predicted_units_kwh"`
	EstimatedCost  float64 `json:"estimated_cost"`
	CostPerKWh     float64 `json:"cost_per_kwh"`
	AvgDailyKWh    float64 `json:"avg_daily_kwh"`
	PeakUsageHours float64 `json:"peak_usage_hours"`
}

// EstimateCost validates the inputs, runs the predictor and prices the result.
// A non-positive costPerKWh falls back to DefaultCostPerKWh.
func EstimateCost(ctx context.Context, p Predictor, month string, avgDailyKWh, peakHours, costPerKWh float64) (Estimate, error) {
	if p == nil {
		return Estimate{}, ErrModelUnavailable
	}
	normalized, err := ValidateInput(month, avgDailyKWh, peakHours)
	if err != nil {
		return Estimate{}, err
	}
	if math.IsNaN(costPerKWh) || math.IsInf(costPerKWh, 0) || costPerKWh <= 0 {
		costPerKWh = DefaultCostPerKWh
	}

	kwh, err := p.Predict(ctx, normalized, avgDailyKWh, peakHours)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{
		Month:          normalized,
		PredictedKWh:   round2(kwh),
		EstimatedCost:  round2(kwh * costPerKWh),
		CostPerKWh:     costPerKWh,
		AvgDailyKWh:    avgDailyKWh,
		PeakUsageHours: peakHours,
	}, nil
}

// ValidateInput checks prediction features and returns the canonical month.
func ValidateInput(month string, avgDailyKWh, peakHours float64) (string, error) {
	normalized, ok := usage.NormalizeMonth(month)
	if !ok {
		return "", fmt.Errorf("%w: unknown month %q", usage.ErrInvalidParameter, month)
	}
	if math.IsNaN(avgDailyKWh) || math.IsInf(avgDailyKWh, 0) || avgDailyKWh < 0 {
		return "", fmt.Errorf("%w: avg_daily_kwh must be a non-negative number", usage.ErrInvalidParameter)
	}
	if math.IsNaN(peakHours) || peakHours < 0 || peakHours > usage.MaxPeakHours {
		return "", fmt.Errorf("%w: peak_usage_hours must be within [0, %d]", usage.ErrInvalidParameter, usage.MaxPeakHours)
	}
	return normalized, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
