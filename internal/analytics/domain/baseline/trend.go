package baseline

import "math"

// Trend is a coarse direction of consumption over the record sequence.
type Trend string

const (
	TrendIncreasing       Trend = "increasing"
	TrendDecreasing       Trend = "decreasing"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

const trendThreshold = 0.1

// ClassifyTrend correlates row position with consumption.
// The correlation is 0 when the trend is insufficient_data or undefined.
func ClassifyTrend(units []float64) (Trend, float64) {
	if len(units) < 2 {
		return TrendInsufficientData, 0
	}
	index := make([]float64, len(units))
	for i := range index {
		index[i] = float64(i)
	}
	corr, ok := Correlation(index, units)
	if !ok {
		return TrendStable, 0
	}
	switch {
	case corr > trendThreshold:
		return TrendIncreasing, corr
	case corr < -trendThreshold:
		return TrendDecreasing, corr
	default:
		return TrendStable, corr
	}
}

// Correlation returns the Pearson coefficient of xs and ys.
// ok is false when the series differ in length, are shorter than two, or either has zero variance.
func Correlation(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0, false
	}
	var meanX, meanY float64
	for i := 0; i < n; i++ {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	// Rounding in the mean leaves a residue on constant series.
	if varX == 0 || varY <= 1e-20*float64(n)*(1+meanY*meanY) {
		return 0, false
	}
	corr := cov / math.Sqrt(varX*varY)
	if math.IsNaN(corr) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, corr)), true
}
