package prediction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usage "energy-optimizer/internal/usage/domain"
)

type stubPredictor struct {
	kwh   float64
	month string
}

func (s *stubPredictor) Predict(ctx context.Context, month string, avgDailyKWh, peakHours float64) (float64, error) {
	s.month = month
	return s.kwh, nil
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Predict(context.Background(), "Jan", 7, 6)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.False(t, Loaded(Unavailable{}))
	assert.False(t, Loaded(nil))
	assert.True(t, Loaded(&LinearModel{}))

	var missing *LinearModel
	assert.False(t, Loaded(missing))
}

func TestEstimateCost(t *testing.T) {
	stub := &stubPredictor{kwh: 348.456}
	est, err := EstimateCost(context.Background(), stub, "july", 11.6, 11, 0)
	require.NoError(t, err)

	assert.Equal(t, "Jul", stub.month)
	assert.Equal(t, 348.46, est.PredictedKWh)
	assert.Equal(t, DefaultCostPerKWh, est.CostPerKWh)
	assert.InDelta(t, 2264.96, est.EstimatedCost, 1e-9)
}

func TestEstimateCost_PassesThroughUnavailable(t *testing.T) {
	_, err := EstimateCost(context.Background(), Unavailable{}, "Jan", 7, 6, 8)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

func TestEstimateCost_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		month string
		avg   float64
		peak  float64
	}{
		{"unknown month", "Smarch", 7, 6},
		{"negative avg", "Jan", -1, 6},
		{"peak above day", "Jan", 7, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EstimateCost(context.Background(), &stubPredictor{kwh: 1}, tc.month, tc.avg, tc.peak, 6.5)
			assert.ErrorIs(t, err, usage.ErrInvalidParameter)
		})
	}
}

func TestLinearModel_Predict(t *testing.T) {
	model := &LinearModel{
		Intercept:    10,
		AvgDaily:     30,
		PeakHours:    2,
		MonthOffsets: map[string]float64{"july": 15},
	}
	require.NoError(t, model.Validate())

	kwh, err := model.Predict(context.Background(), "Jul", 11.6, 11)
	require.NoError(t, err)
	assert.InDelta(t, 10+30*11.6+2*11+15, kwh, 1e-9)

	kwh, err = model.Predict(context.Background(), "Jan", 7, 6)
	require.NoError(t, err)
	assert.InDelta(t, 10+30*7+2*6, kwh, 1e-9)
}

func TestLinearModel_ClampsAtZero(t *testing.T) {
	model := &LinearModel{Intercept: -500, AvgDaily: 1}
	kwh, err := model.Predict(context.Background(), "Jan", 7, 6)
	require.NoError(t, err)
	assert.Equal(t, 0.0, kwh)
}

func TestLinearModel_ValidateRejectsUnknownMonth(t *testing.T) {
	model := &LinearModel{MonthOffsets: map[string]float64{"Thirteenember": 1}}
	assert.Error(t, model.Validate())
}
