package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"

	usage "energy-optimizer/internal/usage/domain"
)

// LinearModel is a fitted regression artifact:
// kWh = intercept + avg_daily*AvgDaily + peak_hours*PeakHours + MonthOffsets[month].
type LinearModel struct {
	Name         string             `json:"name,omitempty" yaml:"name,omitempty"`
	Intercept    float64            `json:"intercept" yaml:"intercept"`
	AvgDaily     float64            `json:"avg_daily_coefficient" yaml:"avg_daily_coefficient"`
	PeakHours    float64            `json:"peak_hours_coefficient" yaml:"peak_hours_coefficient"`
	MonthOffsets map[string]float64 `json:"month_offsets,omitempty" yaml:"month_offsets,omitempty"`
}

// Validate checks coefficients and normalizes month keys.
func (m *LinearModel) Validate() error {
	if m == nil {
		return errors.New("prediction: nil model")
	}
	for name, v := range map[string]float64{
		"intercept":              m.Intercept,
		"avg_daily_coefficient":  m.AvgDaily,
		"peak_hours_coefficient": m.PeakHours,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("prediction: %s is not finite", name)
		}
	}
	offsets := make(map[string]float64, len(m.MonthOffsets))
	for key, v := range m.MonthOffsets {
		month, ok := usage.NormalizeMonth(key)
		if !ok {
			return fmt.Errorf("prediction: unknown month offset %q", key)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("prediction: month offset %s is not finite", key)
		}
		offsets[month] = v
	}
	m.MonthOffsets = offsets
	return nil
}

// Predict evaluates the model; predictions never go below zero.
func (m *LinearModel) Predict(ctx context.Context, month string, avgDailyKWh, peakHours float64) (float64, error) {
	if m == nil {
		return 0, ErrModelUnavailable
	}
	normalized, err := ValidateInput(month, avgDailyKWh, peakHours)
	if err != nil {
		return 0, err
	}
	kwh := m.Intercept + m.AvgDaily*avgDailyKWh + m.PeakHours*peakHours + m.MonthOffsets[normalized]
	return math.Max(0, kwh), nil
}
