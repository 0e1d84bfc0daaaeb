package baseline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usage "energy-optimizer/internal/usage/domain"
)

func mustDataset(t *testing.T, records ...usage.Record) usage.Dataset {
	t.Helper()
	ds, err := usage.NewDataset(records)
	require.NoError(t, err)
	return ds
}

func TestSummarize_EmptyDataset(t *testing.T) {
	_, err := Summarize(mustDataset(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, usage.ErrInsufficientData))
}

func TestSummarize_GroupedMeans(t *testing.T) {
	ds := mustDataset(t,
		usage.Record{Month: "Jan", UnitsKWh: 10, PeakUsageHours: 6, Cost: 65},
		usage.Record{Month: "Feb", UnitsKWh: 30, PeakUsageHours: 8, Cost: 195},
		usage.Record{Month: "Jan", UnitsKWh: 20, PeakUsageHours: 6, Cost: 130},
	)

	stats, err := Summarize(ds)
	require.NoError(t, err)

	monthly := stats.MonthlyAvgUnits()
	assert.Equal(t, 15.0, monthly["Jan"])
	assert.Equal(t, 30.0, monthly["Feb"])
	require.Len(t, stats.Monthly, 2)
	assert.Equal(t, "Jan", stats.Monthly[0].Month)
	assert.Equal(t, 2, stats.Monthly[0].Records)

	impact := stats.PeakUsageImpact()
	assert.Equal(t, 15.0, impact[6])
	assert.Equal(t, 30.0, impact[8])
	assert.Equal(t, 30.0, stats.PeakHours[0].Contribution())

	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 60.0, stats.TotalUnits)
	assert.Equal(t, 20.0, stats.AvgUnits)
	assert.Equal(t, 390.0, stats.TotalCost)
	assert.Equal(t, 130.0, stats.AvgCost)
	assert.InDelta(t, 6.5, stats.CostPerKWh, 1e-12)
}

func TestSummarize_MonthsInCalendarOrder(t *testing.T) {
	ds := mustDataset(t,
		usage.Record{Month: "Dec", UnitsKWh: 1},
		usage.Record{Month: "Mar", UnitsKWh: 1},
		usage.Record{Month: "Jul", UnitsKWh: 1},
	)
	stats, err := Summarize(ds)
	require.NoError(t, err)
	var months []string
	for _, b := range stats.Monthly {
		months = append(months, b.Month)
	}
	assert.Equal(t, []string{"Mar", "Jul", "Dec"}, months)
}

func TestSummarize_TrendClassification(t *testing.T) {
	cases := []struct {
		name  string
		units []float64
		want  Trend
	}{
		{"single record", []float64{100}, TrendInsufficientData},
		{"constant", []float64{100, 100, 100, 100, 100}, TrendStable},
		{"increasing", []float64{320, 340, 360, 380, 400, 420}, TrendIncreasing},
		{"decreasing", []float64{420, 400, 380, 360}, TrendDecreasing},
		{"flat noise", []float64{100, 101, 99, 99, 101, 100}, TrendStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records := make([]usage.Record, len(tc.units))
			for i, u := range tc.units {
				records[i] = usage.Record{Month: usage.Months[i%12], UnitsKWh: u}
			}
			stats, err := Summarize(mustDataset(t, records...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, stats.Trend)
		})
	}
}

func TestCorrelation(t *testing.T) {
	corr, ok := Correlation([]float64{0, 1, 2, 3}, []float64{2, 4, 6, 8})
	require.True(t, ok)
	assert.InDelta(t, 1.0, corr, 1e-12)

	corr, ok = Correlation([]float64{0, 1, 2, 3}, []float64{8, 6, 4, 2})
	require.True(t, ok)
	assert.InDelta(t, -1.0, corr, 1e-12)

	_, ok = Correlation([]float64{0, 1, 2}, []float64{0.1, 0.1, 0.1})
	assert.False(t, ok)

	_, ok = Correlation([]float64{0, 1}, []float64{1})
	assert.False(t, ok)
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	ds := mustDataset(t,
		usage.Record{Month: "Jan", UnitsKWh: 10},
		usage.Record{Month: "Feb", UnitsKWh: 20},
	)
	before := ds.Records()
	_, err := Summarize(ds)
	require.NoError(t, err)
	assert.Equal(t, before, ds.Records())
}
