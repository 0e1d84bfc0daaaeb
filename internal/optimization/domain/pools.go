package optimization

import usage "energy-optimizer/internal/usage/domain"

// leverPools splits total consumption into disjoint per-lever pools that sum to the baseline.
// Peak load is the peak-hour share of each record; seasonal excess is off-peak use above
// the dataset's mean off-peak use; base load is the rest.
func leverPools(dataset usage.Dataset) map[Lever]float64 {
	n := dataset.Len()
	pools := map[Lever]float64{}
	if n == 0 {
		return pools
	}

	offPeak := make([]float64, n)
	var peak, offPeakTotal float64
	for i := 0; i < n; i++ {
		rec := dataset.At(i)
		p := rec.UnitsKWh * rec.PeakShare()
		peak += p
		offPeak[i] = rec.UnitsKWh - p
		offPeakTotal += offPeak[i]
	}

	mean := offPeakTotal / float64(n)
	var seasonal float64
	for _, v := range offPeak {
		if v > mean {
			seasonal += v - mean
		}
	}
	base := offPeakTotal - seasonal
	if base < 0 {
		base = 0
	}

	pools[LeverPeakLoad] = peak
	pools[LeverSeasonalExcess] = seasonal
	pools[LeverBaseLoad] = base
	return pools
}
