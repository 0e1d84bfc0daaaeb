package optimization

import "math"

// Schedule labels how quickly a recommendation should be adopted.
type Schedule string

const (
	ScheduleFrontLoaded Schedule = "front_loaded"
	ScheduleGradual     Schedule = "gradual"
	SchedulePhased      Schedule = "phased"
)

// Pacing is the suggested ramp for adopting a recommendation within the horizon.
type Pacing struct {
	Schedule Schedule `json:"schedule"`

	// RampDays is the number of days until full adoption.
	RampDays int `json:"ramp_days"`

	// DailyRampRate is the fraction of full adoption added per ramp day.
	DailyRampRate float64 `json:"daily_ramp_rate"`
}

// PacingFor derives the ramp from a horizon. It never affects savings totals.
func PacingFor(horizonDays int) Pacing {
	schedule, share := ScheduleFrontLoaded, 0.25
	switch {
	case horizonDays > 90:
		schedule, share = SchedulePhased, 0.75
	case horizonDays > 30:
		schedule, share = ScheduleGradual, 0.5
	}
	ramp := int(math.Ceil(float64(horizonDays) * share))
	if ramp > horizonDays {
		ramp = horizonDays
	}
	if ramp < 1 {
		ramp = 1
	}
	return Pacing{Schedule: schedule, RampDays: ramp, DailyRampRate: 1 / float64(ramp)}
}

// Recommendation is one actionable item. Values are never mutated after creation.
type Recommendation struct {
	Lever                Lever   `json:"lever"`
	Action               string  `json:"action"`
	EstimatedSavingsKWh  float64 `json:"estimated_savings_kwh"`
	EstimatedSavingsCost float64 `json:"estimated_savings_cost"`
	Priority             int     `json:"priority"`
	Confidence           float64 `json:"confidence"`
	ApplicablePeriod     Period  `json:"applicable_period"`
	Pacing               *Pacing `json:"pacing,omitempty"`
}

// RecommendationSet is the result of an optimization run, including any shortfall.
type RecommendationSet struct {
	Recommendations        []Recommendation `json:"recommendations"`
	BaselineKWh            float64          `json:"baseline_kwh"`
	TargetFraction         float64          `json:"target_fraction"`
	TimeHorizonDays        int              `json:"time_horizon_days"`
	RequiredReductionKWh   float64          `json:"required_reduction_kwh"`
	AchievableReductionKWh float64          `json:"achievable_reduction_kwh"`
	PlannedReductionKWh    float64          `json:"planned_reduction_kwh"`
	ShortfallKWh           float64          `json:"shortfall_kwh"`
	TargetAchievable       bool             `json:"target_achievable"`
	CostPerKWh             float64          `json:"cost_per_kwh"`
	EstimatedSavingsCost   float64          `json:"estimated_savings_cost"`
}

// PlannedFraction is the planned reduction as a fraction of the baseline.
func (s RecommendationSet) PlannedFraction() float64 {
	if s.BaselineKWh <= 0 {
		return 0
	}
	return s.PlannedReductionKWh / s.BaselineKWh
}
