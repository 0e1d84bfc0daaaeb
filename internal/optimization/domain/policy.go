package optimization

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Lever is a usage dimension that can be targeted for reduction independently.
type Lever string

const (
	LeverPeakLoad       Lever = "peak_load"
	LeverSeasonalExcess Lever = "seasonal_excess"
	LeverBaseLoad       Lever = "base_load"

	// LeverTariffReview carries billing advice only; it has no consumption pool.
	LeverTariffReview Lever = "tariff_review"
)

// Period names the time window a recommendation applies to.
type Period string

const (
	PeriodPeakHours       Period = "peak_hours"
	PeriodHighUsageMonths Period = "high_usage_months"
	PeriodAllHours        Period = "all_hours"
	PeriodBilling         Period = "billing"
)

var (
	// ErrUnknownLever is returned when a policy names a lever without a consumption pool.
	ErrUnknownLever = errors.New("optimization: unknown lever")
	// ErrInvalidPolicy is returned when policy bounds are out of range.
	ErrInvalidPolicy = errors.New("optimization: invalid policy")
)

// LeverPolicy is one row of the elasticity table.
type LeverPolicy struct {
	Lever Lever `yaml:"lever" json:"lever"`

	// Elasticity is the maximum fraction of the lever's consumption assumed reducible.
	Elasticity float64 `yaml:"elasticity" json:"elasticity"`
	// Disruption is the relative behavioural cost of pulling the lever.
	Disruption float64 `yaml:"disruption" json:"disruption"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
	Action     string  `yaml:"action" json:"action"`
}

// Effectiveness is savings per unit of disruption, used for ranking.
func (p LeverPolicy) Effectiveness() float64 {
	return p.Elasticity / p.Disruption
}

// Period returns the time window the lever targets.
func (p LeverPolicy) Period() Period {
	return leverPeriod(p.Lever)
}

// Policy is the elasticity table.
type Policy struct {
	Levers []LeverPolicy `yaml:"levers" json:"levers"`
}

// DefaultPolicy returns the built-in elasticity table.
func DefaultPolicy() Policy {
	return Policy{Levers: []LeverPolicy{
		{
			Lever:      LeverPeakLoad,
			Elasticity: 0.30,
			Disruption: 1.0,
			Confidence: 0.8,
			Action:     "Shift discretionary appliance use (laundry, dishwashing, water heating, EV charging) out of peak-rate hours",
		},
		{
			Lever:      LeverSeasonalExcess,
			Elasticity: 0.20,
			Disruption: 1.5,
			Confidence: 0.65,
			Action:     "Trim heating and cooling loads in high-usage months with thermostat setbacks and sealing",
		},
		{
			Lever:      LeverBaseLoad,
			Elasticity: 0.10,
			Disruption: 2.0,
			Confidence: 0.5,
			Action:     "Cut always-on base load: standby electronics, old refrigeration, lighting left on",
		},
	}}
}

// Validate checks the table bounds.
func (p Policy) Validate() error {
	if len(p.Levers) == 0 {
		return fmt.Errorf("%w: no levers", ErrInvalidPolicy)
	}
	seen := make(map[Lever]struct{}, len(p.Levers))
	for _, lp := range p.Levers {
		switch lp.Lever {
		case LeverPeakLoad, LeverSeasonalExcess, LeverBaseLoad:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownLever, lp.Lever)
		}
		if _, dup := seen[lp.Lever]; dup {
			return fmt.Errorf("%w: duplicate lever %q", ErrInvalidPolicy, lp.Lever)
		}
		seen[lp.Lever] = struct{}{}
		for name, v := range map[string]float64{
			"elasticity": lp.Elasticity,
			"disruption": lp.Disruption,
			"confidence": lp.Confidence,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s %s is not finite", ErrInvalidPolicy, lp.Lever, name)
			}
		}
		if lp.Elasticity < 0 || lp.Elasticity > 1 {
			return fmt.Errorf("%w: %s elasticity %v outside [0,1]", ErrInvalidPolicy, lp.Lever, lp.Elasticity)
		}
		if lp.Disruption <= 0 {
			return fmt.Errorf("%w: %s disruption must be positive", ErrInvalidPolicy, lp.Lever)
		}
		if lp.Confidence < 0 || lp.Confidence > 1 {
			return fmt.Errorf("%w: %s confidence %v outside [0,1]", ErrInvalidPolicy, lp.Lever, lp.Confidence)
		}
	}
	return nil
}

// Ranked returns levers by descending effectiveness; ties keep declaration order.
func (p Policy) Ranked() []LeverPolicy {
	ranked := make([]LeverPolicy, len(p.Levers))
	copy(ranked, p.Levers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Effectiveness() > ranked[j].Effectiveness()
	})
	return ranked
}

// Lookup returns the policy row for a lever.
func (p Policy) Lookup(lever Lever) (LeverPolicy, bool) {
	for _, lp := range p.Levers {
		if lp.Lever == lever {
			return lp, true
		}
	}
	return LeverPolicy{}, false
}

func leverPeriod(lever Lever) Period {
	switch lever {
	case LeverPeakLoad:
		return PeriodPeakHours
	case LeverSeasonalExcess:
		return PeriodHighUsageMonths
	case LeverTariffReview:
		return PeriodBilling
	default:
		return PeriodAllHours
	}
}
