package optimization

import (
	"fmt"
	"math"

	usage "energy-optimizer/internal/usage/domain"
)

// shortfallTolerance absorbs floating-point residue when comparing planned and required reduction.
const shortfallTolerance = 1e-9

// Engine turns a dataset and a reduction target into a ranked recommendation set.
// It holds only its immutable policy and is safe for concurrent use.
type Engine struct {
	policy Policy
	ranked []LeverPolicy
}

// NewEngine constructs an engine with a validated policy.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	levers := make([]LeverPolicy, len(policy.Levers))
	copy(levers, policy.Levers)
	policy.Levers = levers
	return &Engine{policy: policy, ranked: policy.Ranked()}, nil
}

// Policy returns a copy of the engine's elasticity table.
func (e *Engine) Policy() Policy {
	levers := make([]LeverPolicy, len(e.policy.Levers))
	copy(levers, e.policy.Levers)
	return Policy{Levers: levers}
}

// Optimize allocates targetFraction of the dataset's baseline consumption across levers.
// A target that cannot be met is reported through ShortfallKWh, not as an error.
func (e *Engine) Optimize(dataset usage.Dataset, targetFraction float64, horizonDays int) (RecommendationSet, error) {
	if math.IsNaN(targetFraction) || targetFraction < 0 || targetFraction > 1 {
		return RecommendationSet{}, fmt.Errorf("%w: target_fraction %v outside [0,1]", usage.ErrInvalidParameter, targetFraction)
	}
	if horizonDays <= 0 {
		return RecommendationSet{}, fmt.Errorf("%w: time_horizon_days must be positive, got %d", usage.ErrInvalidParameter, horizonDays)
	}
	if dataset.IsEmpty() {
		return RecommendationSet{}, usage.ErrInsufficientData
	}

	baselineKWh := dataset.TotalUnits()
	costPerKWh := dataset.CostPerKWh()
	required := baselineKWh * targetFraction
	pools := leverPools(dataset)

	set := RecommendationSet{
		Recommendations:      []Recommendation{},
		BaselineKWh:          baselineKWh,
		TargetFraction:       targetFraction,
		TimeHorizonDays:      horizonDays,
		RequiredReductionKWh: required,
		CostPerKWh:           costPerKWh,
	}
	for _, lp := range e.ranked {
		set.AchievableReductionKWh += pools[lp.Lever] * lp.Elasticity
	}
	if required <= 0 {
		set.TargetAchievable = true
		return set, nil
	}

	pacing := PacingFor(horizonDays)
	remaining := required
	for _, lp := range e.ranked {
		if remaining <= 0 {
			break
		}
		capacity := pools[lp.Lever] * lp.Elasticity
		if capacity <= 0 {
			continue
		}
		alloc := math.Min(remaining, capacity)
		remaining -= alloc

		p := pacing
		set.Recommendations = append(set.Recommendations, Recommendation{
			Lever:                lp.Lever,
			Action:               lp.Action,
			EstimatedSavingsKWh:  alloc,
			EstimatedSavingsCost: alloc * costPerKWh,
			Priority:             len(set.Recommendations) + 1,
			Confidence:           lp.Confidence,
			ApplicablePeriod:     lp.Period(),
			Pacing:               &p,
		})
		set.PlannedReductionKWh += alloc
		set.EstimatedSavingsCost += alloc * costPerKWh
	}

	shortfall := required - set.PlannedReductionKWh
	if shortfall <= shortfallTolerance*math.Max(1, required) {
		shortfall = 0
	}
	set.ShortfallKWh = shortfall
	set.TargetAchievable = shortfall == 0
	return set, nil
}
