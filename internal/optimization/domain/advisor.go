package optimization

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"energy-optimizer/internal/analytics/domain/baseline"
	usage "energy-optimizer/internal/usage/domain"
)

const (
	monthTieTolerance      = 1e-9
	tariffReviewConfidence = 0.5
)

// GenerateRecommendations returns data-informed advice without a numeric target.
func (e *Engine) GenerateRecommendations(dataset usage.Dataset) ([]Recommendation, error) {
	stats, err := baseline.Summarize(dataset)
	if err != nil {
		return nil, err
	}
	return e.Advise(dataset, stats), nil
}

// Advise builds advice from a dataset and its precomputed baseline.
func (e *Engine) Advise(dataset usage.Dataset, stats baseline.Stats) []Recommendation {
	var recs []Recommendation

	if rec, ok := e.peakBucketAdvice(stats); ok {
		recs = append(recs, rec)
	}
	if rec, ok := e.highMonthAdvice(stats); ok {
		recs = append(recs, rec)
	}
	if rec, ok := costAnomalyAdvice(dataset); ok {
		recs = append(recs, rec)
	}
	if stats.Trend == baseline.TrendIncreasing {
		if rec, ok := e.trendAdvice(dataset, stats); ok {
			recs = append(recs, rec)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].EstimatedSavingsCost > recs[j].EstimatedSavingsCost
	})
	for i := range recs {
		recs[i].Priority = i + 1
	}
	if recs == nil {
		recs = []Recommendation{}
	}
	return recs
}

func (e *Engine) peakBucketAdvice(stats baseline.Stats) (Recommendation, bool) {
	lp, ok := e.policy.Lookup(LeverPeakLoad)
	if !ok || len(stats.PeakHours) == 0 {
		return Recommendation{}, false
	}
	top := stats.PeakHours[0]
	for _, b := range stats.PeakHours[1:] {
		// Ties go to the longer peak window.
		if b.Contribution() >= top.Contribution() {
			top = b
		}
	}
	share := math.Min(top.PeakHours, usage.MaxPeakHours) / usage.MaxPeakHours
	savings := top.Contribution() * share * lp.Elasticity
	pct := 0.0
	if stats.TotalUnits > 0 {
		pct = top.Contribution() / stats.TotalUnits * 100
	}
	action := fmt.Sprintf("Periods with %s peak hours/day account for %.1f kWh (%.0f%% of consumption). %s",
		formatHours(top.PeakHours), top.Contribution(), pct, lp.Action)
	return Recommendation{
		Lever:                LeverPeakLoad,
		Action:               action,
		EstimatedSavingsKWh:  savings,
		EstimatedSavingsCost: savings * stats.CostPerKWh,
		Confidence:           lp.Confidence,
		ApplicablePeriod:     PeriodPeakHours,
	}, true
}

func (e *Engine) highMonthAdvice(stats baseline.Stats) (Recommendation, bool) {
	if len(stats.Monthly) == 0 {
		return Recommendation{}, false
	}
	peak := stats.Monthly[0].AvgUnits
	for _, b := range stats.Monthly[1:] {
		peak = math.Max(peak, b.AvgUnits)
	}
	var months []string
	var excess float64
	for _, b := range stats.Monthly {
		if peak-b.AvgUnits <= monthTieTolerance*math.Max(1, peak) {
			months = append(months, b.Month)
			excess += math.Max(0, b.AvgUnits-stats.AvgUnits)
		}
	}

	lp, ok := e.policy.Lookup(LeverSeasonalExcess)
	elasticity, confidence, action := 0.0, 0.5, "Plan heating and cooling use ahead of these months"
	if ok {
		elasticity, confidence, action = lp.Elasticity, lp.Confidence, lp.Action
	}
	savings := excess * elasticity
	action = fmt.Sprintf("Highest consumption in %s (avg %.1f kWh vs %.1f kWh overall). %s",
		strings.Join(months, ", "), peak, stats.AvgUnits, action)
	return Recommendation{
		Lever:                LeverSeasonalExcess,
		Action:               action,
		EstimatedSavingsKWh:  savings,
		EstimatedSavingsCost: savings * stats.CostPerKWh,
		Confidence:           confidence,
		ApplicablePeriod:     PeriodHighUsageMonths,
	}, true
}

func costAnomalyAdvice(dataset usage.Dataset) (Recommendation, bool) {
	type point struct {
		month string
		units float64
		cpu   float64
	}
	var points []point
	for i := 0; i < dataset.Len(); i++ {
		rec := dataset.At(i)
		if rec.UnitsKWh <= 0 {
			continue
		}
		points = append(points, point{month: rec.Month, units: rec.UnitsKWh, cpu: rec.Cost / rec.UnitsKWh})
	}
	if len(points) < 2 {
		return Recommendation{}, false
	}

	var mean float64
	for _, p := range points {
		mean += p.cpu
	}
	mean /= float64(len(points))
	var variance float64
	for _, p := range points {
		variance += (p.cpu - mean) * (p.cpu - mean)
	}
	std := math.Sqrt(variance / float64(len(points)))
	if std <= 0 {
		return Recommendation{}, false
	}

	var periods []string
	var excessCost float64
	for _, p := range points {
		if math.Abs(p.cpu-mean) <= std {
			continue
		}
		periods = append(periods, fmt.Sprintf("%s (%.2f/kWh)", p.month, p.cpu))
		if p.cpu > mean {
			excessCost += (p.cpu - mean) * p.units
		}
	}
	if len(periods) == 0 {
		return Recommendation{}, false
	}
	action := fmt.Sprintf("Cost per kWh deviates from the %.2f average in %s. Review the tariff, billing errors or time-of-use charges for these periods",
		mean, strings.Join(periods, ", "))
	return Recommendation{
		Lever:                LeverTariffReview,
		Action:               action,
		EstimatedSavingsCost: excessCost,
		Confidence:           tariffReviewConfidence,
		ApplicablePeriod:     PeriodBilling,
	}, true
}

func (e *Engine) trendAdvice(dataset usage.Dataset, stats baseline.Stats) (Recommendation, bool) {
	lp, ok := e.policy.Lookup(LeverBaseLoad)
	if !ok {
		return Recommendation{}, false
	}
	savings := leverPools(dataset)[LeverBaseLoad] * lp.Elasticity
	action := fmt.Sprintf("Consumption is trending upward (correlation %.2f). %s",
		stats.Correlation, lp.Action)
	return Recommendation{
		Lever:                LeverBaseLoad,
		Action:               action,
		EstimatedSavingsKWh:  savings,
		EstimatedSavingsCost: savings * stats.CostPerKWh,
		Confidence:           lp.Confidence,
		ApplicablePeriod:     PeriodAllHours,
	}, true
}

func formatHours(hours float64) string {
	if hours == math.Trunc(hours) {
		return fmt.Sprintf("%.0f", hours)
	}
	return fmt.Sprintf("%.1f", hours)
}
