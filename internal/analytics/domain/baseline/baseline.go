package baseline

import (
	"sort"

	usage "energy-optimizer/internal/usage/domain"
)

// MonthBucket is the mean consumption of all records sharing a month label.
type MonthBucket struct {
	Month    string  `json:"month"`
	AvgUnits float64 `json:"avg_units"`
	Records  int     `json:"records"`
}

// PeakBucket is the mean consumption of all records sharing a peak-hours value.
type PeakBucket struct {
	PeakHours float64 `json:"peak_hours"`
	AvgUnits  float64 `json:"avg_units"`
	Records   int     `json:"records"`
}

// Contribution is the bucket's share of total consumption.
func (b PeakBucket) Contribution() float64 {
	return b.AvgUnits * float64(b.Records)
}

// Stats is the baseline derived from a dataset. It is recomputed on every call.
type Stats struct {
	TotalRecords int           `json:"total_records"`
	AvgUnits     float64       `json:"avg_units"`
	TotalUnits   float64       `json:"total_units"`
	AvgCost      float64       `json:"avg_cost"`
	TotalCost    float64       `json:"total_cost"`
	CostPerKWh   float64       `json:"cost_per_kwh"`
	Monthly      []MonthBucket `json:"monthly"`
	PeakHours    []PeakBucket  `json:"peak_hours"`
	Trend        Trend         `json:"trend"`
	Correlation  float64       `json:"correlation"`
}

// Summarize computes descriptive statistics and the consumption trend.
func Summarize(dataset usage.Dataset) (Stats, error) {
	n := dataset.Len()
	if n == 0 {
		return Stats{}, usage.ErrInsufficientData
	}

	type acc struct {
		sum   float64
		count int
	}
	byMonth := make(map[string]*acc)
	byPeak := make(map[float64]*acc)
	units := make([]float64, n)

	var stats Stats
	for i := 0; i < n; i++ {
		rec := dataset.At(i)
		units[i] = rec.UnitsKWh
		stats.TotalUnits += rec.UnitsKWh
		stats.TotalCost += rec.Cost

		m := byMonth[rec.Month]
		if m == nil {
			m = &acc{}
			byMonth[rec.Month] = m
		}
		m.sum += rec.UnitsKWh
		m.count++

		p := byPeak[rec.PeakUsageHours]
		if p == nil {
			p = &acc{}
			byPeak[rec.PeakUsageHours] = p
		}
		p.sum += rec.UnitsKWh
		p.count++
	}

	stats.TotalRecords = n
	stats.AvgUnits = stats.TotalUnits / float64(n)
	stats.AvgCost = stats.TotalCost / float64(n)
	stats.CostPerKWh = dataset.CostPerKWh()

	for month, a := range byMonth {
		stats.Monthly = append(stats.Monthly, MonthBucket{Month: month, AvgUnits: a.sum / float64(a.count), Records: a.count})
	}
	sort.Slice(stats.Monthly, func(i, j int) bool {
		return usage.MonthIndex(stats.Monthly[i].Month) < usage.MonthIndex(stats.Monthly[j].Month)
	})

	for hours, a := range byPeak {
		stats.PeakHours = append(stats.PeakHours, PeakBucket{PeakHours: hours, AvgUnits: a.sum / float64(a.count), Records: a.count})
	}
	sort.Slice(stats.PeakHours, func(i, j int) bool {
		return stats.PeakHours[i].PeakHours < stats.PeakHours[j].PeakHours
	})

	stats.Trend, stats.Correlation = ClassifyTrend(units)
	return stats, nil
}

// MonthlyAvgUnits returns month -> mean units.
func (s Stats) MonthlyAvgUnits() map[string]float64 {
	out := make(map[string]float64, len(s.Monthly))
	for _, b := range s.Monthly {
		out[b.Month] = b.AvgUnits
	}
	return out
}

// PeakUsageImpact returns peak hours -> mean units.
func (s Stats) PeakUsageImpact() map[float64]float64 {
	out := make(map[float64]float64, len(s.PeakHours))
	for _, b := range s.PeakHours {
		out[b.PeakHours] = b.AvgUnits
	}
	return out
}

// Month looks up the bucket for a month label.
func (s Stats) Month(month string) (MonthBucket, bool) {
	for _, b := range s.Monthly {
		if b.Month == month {
			return b, true
		}
	}
	return MonthBucket{}, false
}
