package optimization

import (
	"errors"
	"math"
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

func mustEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultPolicy())
	require.NoError(t, err)
	return engine
}

// Pools: peak 325, seasonal 41.67, base 533.33; capacities 97.5 + 8.33 + 53.33.
func sampleDataset(t *testing.T) usage.Dataset {
	return mustDataset(t,
		usage.Record{Month: "Jan", UnitsKWh: 300, AvgDailyKWh: 9.7, PeakUsageHours: 6, Cost: 1950},
		usage.Record{Month: "Feb", UnitsKWh: 400, AvgDailyKWh: 14.3, PeakUsageHours: 12, Cost: 2600},
		usage.Record{Month: "Mar", UnitsKWh: 200, AvgDailyKWh: 6.5, PeakUsageHours: 6, Cost: 1300},
	)
}

func TestLeverPools_SumToBaseline(t *testing.T) {
	ds := sampleDataset(t)
	pools := leverPools(ds)
	assert.InDelta(t, 325.0, pools[LeverPeakLoad], 1e-9)
	assert.InDelta(t, 125.0/3.0, pools[LeverSeasonalExcess], 1e-9)
	assert.InDelta(t, 1600.0/3.0, pools[LeverBaseLoad], 1e-9)

	var sum float64
	for _, v := range pools {
		sum += v
	}
	assert.InDelta(t, ds.TotalUnits(), sum, 1e-9)
}

func TestOptimize_SingleLeverCoversTarget(t *testing.T) {
	set, err := mustEngine(t).Optimize(sampleDataset(t), 0.10, 30)
	require.NoError(t, err)

	require.Len(t, set.Recommendations, 1)
	rec := set.Recommendations[0]
	assert.Equal(t, LeverPeakLoad, rec.Lever)
	assert.Equal(t, PeriodPeakHours, rec.ApplicablePeriod)
	assert.Equal(t, 1, rec.Priority)
	assert.InDelta(t, 90.0, rec.EstimatedSavingsKWh, 1e-9)
	assert.InDelta(t, 585.0, rec.EstimatedSavingsCost, 1e-9)
	require.NotNil(t, rec.Pacing)
	assert.Equal(t, ScheduleFrontLoaded, rec.Pacing.Schedule)

	assert.True(t, set.TargetAchievable)
	assert.Equal(t, 0.0, set.ShortfallKWh)
	assert.InDelta(t, 900.0, set.BaselineKWh, 1e-9)
	assert.InDelta(t, 6.5, set.CostPerKWh, 1e-12)
}

func TestOptimize_GreedyAcrossLevers(t *testing.T) {
	set, err := mustEngine(t).Optimize(sampleDataset(t), 0.15, 60)
	require.NoError(t, err)

	require.Len(t, set.Recommendations, 3)
	assert.Equal(t, LeverPeakLoad, set.Recommendations[0].Lever)
	assert.Equal(t, LeverSeasonalExcess, set.Recommendations[1].Lever)
	assert.Equal(t, LeverBaseLoad, set.Recommendations[2].Lever)

	assert.InDelta(t, 97.5, set.Recommendations[0].EstimatedSavingsKWh, 1e-9)
	assert.InDelta(t, 25.0/3.0, set.Recommendations[1].EstimatedSavingsKWh, 1e-9)
	assert.InDelta(t, 135.0-97.5-25.0/3.0, set.Recommendations[2].EstimatedSavingsKWh, 1e-9)

	assert.InDelta(t, 135.0, set.PlannedReductionKWh, 1e-9)
	assert.True(t, set.TargetAchievable)
	assert.InDelta(t, 135.0*6.5, set.EstimatedSavingsCost, 1e-6)
	for i, rec := range set.Recommendations {
		assert.Equal(t, i+1, rec.Priority)
	}
}

func TestOptimize_ReportsShortfall(t *testing.T) {
	set, err := mustEngine(t).Optimize(sampleDataset(t), 0.5, 30)
	require.NoError(t, err)

	capacity := 97.5 + 25.0/3.0 + 160.0/3.0
	assert.Len(t, set.Recommendations, 3)
	assert.InDelta(t, capacity, set.AchievableReductionKWh, 1e-9)
	assert.InDelta(t, capacity, set.PlannedReductionKWh, 1e-9)
	assert.InDelta(t, 450.0-capacity, set.ShortfallKWh, 1e-9)
	assert.False(t, set.TargetAchievable)
}

func TestOptimize_SavingsNeverExceedRequired(t *testing.T) {
	engine := mustEngine(t)
	ds := sampleDataset(t)
	for _, target := range []float64{0.01, 0.05, 0.1, 0.108, 0.15, 0.17, 0.2, 0.35, 0.75, 1} {
		set, err := engine.Optimize(ds, target, 45)
		require.NoError(t, err)

		required := ds.TotalUnits() * target
		var sum float64
		for _, rec := range set.Recommendations {
			assert.GreaterOrEqual(t, rec.EstimatedSavingsKWh, 0.0)
			sum += rec.EstimatedSavingsKWh
		}
		assert.LessOrEqual(t, sum, required+1e-9, "target %v", target)
		if set.AchievableReductionKWh >= required {
			assert.InDelta(t, required, sum, 1e-9, "target %v", target)
		}
	}
}

func TestOptimize_ZeroTargetOrZeroBaselineIsNoop(t *testing.T) {
	engine := mustEngine(t)

	set, err := engine.Optimize(sampleDataset(t), 0, 30)
	require.NoError(t, err)
	assert.Empty(t, set.Recommendations)
	assert.NotNil(t, set.Recommendations)
	assert.True(t, set.TargetAchievable)

	zero := mustDataset(t,
		usage.Record{Month: "Jan", UnitsKWh: 0, PeakUsageHours: 4},
		usage.Record{Month: "Feb", UnitsKWh: 0, PeakUsageHours: 4},
	)
	set, err = engine.Optimize(zero, 0.2, 30)
	require.NoError(t, err)
	assert.Empty(t, set.Recommendations)
	assert.Equal(t, 0.0, set.CostPerKWh)
}

func TestOptimize_InvalidParameters(t *testing.T) {
	engine := mustEngine(t)
	datasets := map[string]usage.Dataset{
		"sample": sampleDataset(t),
		"empty":  mustDataset(t),
	}
	for name, ds := range datasets {
		for _, target := range []float64{1.0001, 2, -0.1, math.NaN()} {
			_, err := engine.Optimize(ds, target, 30)
			require.Error(t, err, "%s target %v", name, target)
			assert.True(t, errors.Is(err, usage.ErrInvalidParameter), "%s target %v", name, target)
		}
		for _, horizon := range []int{0, -30} {
			_, err := engine.Optimize(ds, 0.1, horizon)
			assert.True(t, errors.Is(err, usage.ErrInvalidParameter), "%s horizon %d", name, horizon)
		}
	}
}

func TestOptimize_EmptyDataset(t *testing.T) {
	_, err := mustEngine(t).Optimize(mustDataset(t), 0.1, 30)
	assert.True(t, errors.Is(err, usage.ErrInsufficientData))
}

func TestOptimize_Idempotent(t *testing.T) {
	engine := mustEngine(t)
	ds := sampleDataset(t)
	first, err := engine.Optimize(ds, 0.15, 90)
	require.NoError(t, err)
	second, err := engine.Optimize(ds, 0.15, 90)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOptimize_HorizonOnlyChangesPacing(t *testing.T) {
	engine := mustEngine(t)
	ds := sampleDataset(t)
	short, err := engine.Optimize(ds, 0.15, 30)
	require.NoError(t, err)
	long, err := engine.Optimize(ds, 0.15, 365)
	require.NoError(t, err)

	assert.Equal(t, short.PlannedReductionKWh, long.PlannedReductionKWh)
	require.Len(t, long.Recommendations, len(short.Recommendations))
	for i := range short.Recommendations {
		assert.Equal(t, short.Recommendations[i].EstimatedSavingsKWh, long.Recommendations[i].EstimatedSavingsKWh)
		assert.Equal(t, ScheduleFrontLoaded, short.Recommendations[i].Pacing.Schedule)
		assert.Equal(t, SchedulePhased, long.Recommendations[i].Pacing.Schedule)
	}
}

func TestPacingFor(t *testing.T) {
	cases := []struct {
		horizon  int
		schedule Schedule
		ramp     int
	}{
		{1, ScheduleFrontLoaded, 1},
		{30, ScheduleFrontLoaded, 8},
		{31, ScheduleGradual, 16},
		{90, ScheduleGradual, 45},
		{365, SchedulePhased, 274},
	}
	for _, tc := range cases {
		p := PacingFor(tc.horizon)
		assert.Equal(t, tc.schedule, p.Schedule, "horizon %d", tc.horizon)
		assert.Equal(t, tc.ramp, p.RampDays, "horizon %d", tc.horizon)
		assert.InDelta(t, 1/float64(tc.ramp), p.DailyRampRate, 1e-12)
	}
}

func TestOptimize_CustomPolicyRanking(t *testing.T) {
	policy := Policy{Levers: []LeverPolicy{
		{Lever: LeverPeakLoad, Elasticity: 0.3, Disruption: 3, Confidence: 0.8},
		{Lever: LeverBaseLoad, Elasticity: 0.2, Disruption: 1, Confidence: 0.5},
	}}
	engine, err := NewEngine(policy)
	require.NoError(t, err)

	set, err := engine.Optimize(sampleDataset(t), 0.05, 30)
	require.NoError(t, err)
	require.Len(t, set.Recommendations, 1)
	assert.Equal(t, LeverBaseLoad, set.Recommendations[0].Lever)
	assert.InDelta(t, 45.0, set.Recommendations[0].EstimatedSavingsKWh, 1e-9)
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	cases := map[string]Policy{
		"empty":         {},
		"unknown":       {Levers: []LeverPolicy{{Lever: "solar", Elasticity: 0.1, Disruption: 1}}},
		"elastic":       {Levers: []LeverPolicy{{Lever: LeverPeakLoad, Elasticity: 1.5, Disruption: 1}}},
		"disrupt":       {Levers: []LeverPolicy{{Lever: LeverPeakLoad, Elasticity: 0.1}}},
		"duplicate":     {Levers: []LeverPolicy{{Lever: LeverPeakLoad, Elasticity: 0.1, Disruption: 1}, {Lever: LeverPeakLoad, Elasticity: 0.2, Disruption: 1}}},
		"nan elastic":   {Levers: []LeverPolicy{{Lever: LeverPeakLoad, Elasticity: math.NaN(), Disruption: 1}}},
		"nan disrupt":   {Levers: []LeverPolicy{{Lever: LeverPeakLoad, Elasticity: 0.1, Disruption: math.NaN()}}},
		"inf disrupt":   {Levers: []LeverPolicy{{Lever: LeverPeakLoad, Elasticity: 0.1, Disruption: math.Inf(1)}}},
		"nan confident": {Levers: []LeverPolicy{{Lever: LeverPeakLoad, Elasticity: 0.1, Disruption: 1, Confidence: math.NaN()}}},
	}
	for name, policy := range cases {
		_, err := NewEngine(policy)
		assert.Error(t, err, name)
	}
}

func TestPolicy_NonFiniteRejectedWithInvalidPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.Levers[0].Elasticity = math.NaN()
	err := policy.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPolicy))
}
