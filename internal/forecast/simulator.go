// Package forecast turns planned-purchase tables into per-scenario purchase
// and ownership trajectories.
//
// The simulator is pure: it never logs and never touches the filesystem, so
// every rule can be exercised with small synthetic tables.
package forecast

import (
	"fmt"
	"math"

	"github.com/Veraticus/adoption-forecast/internal/model"
)

// Coefficients are the neutral-buyer shares used by the simulator.
type Coefficients = model.Coefficients

// DefaultCoefficients returns half of undecided buyers absent an event, all
// of them after a positive event and none after a negative one.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Baseline:      0.5,
		AfterPositive: 1.0,
		AfterNegative: 0.0,
	}
}

// Simulator resolves cohorts into calendar-year purchases for any scenario.
type Simulator struct {
	inputs  *model.Inputs
	cohorts []model.Cohort
	coef    Coefficients
}

// NewSimulator validates the inputs and prepares the cohorts.
func NewSimulator(inputs *model.Inputs, coef Coefficients) (*Simulator, error) {
	if inputs == nil {
		return nil, fmt.Errorf("inputs cannot be nil")
	}
	if err := inputs.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		inputs:  inputs,
		cohorts: inputs.Cohorts(),
		coef:    coef,
	}, nil
}

// Inputs returns the tables the simulator was built from.
func (s *Simulator) Inputs() *model.Inputs {
	return s.inputs
}

// Contributions returns the unrounded purchases per calendar year for a scenario.
func (s *Simulator) Contributions(key model.ScenarioKey) ([]float64, error) {
	if !key.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %d", int(key.Type))
	}
	if err := s.inputs.CheckEventYear(key.Year); err != nil {
		return nil, err
	}

	years := make([]float64, s.inputs.Horizon)
	for _, c := range s.cohorts {
		s.resolve(c, key, years)
	}
	return years, nil
}

// NewPurchases returns the realised purchases per calendar year for a scenario.
// Each year is rounded once, after every cohort's contribution is summed.
func (s *Simulator) NewPurchases(key model.ScenarioKey) ([]int, error) {
	years, err := s.Contributions(key)
	if err != nil {
		return nil, err
	}
	return RoundYears(years), nil
}

// resolve adds cohort c's purchases under the given scenario into years.
func (s *Simulator) resolve(c model.Cohort, key model.ScenarioKey, years []float64) {
	planIdx := c.PlanYear - 1

	if key.Type == model.EventNeutral || c.PlanYear < key.Year {
		years[planIdx] += s.realised(float64(c.Total), c.Ratios, s.coef.Baseline)
		return
	}

	switch key.Type {
	case model.EventPositive:
		s.resolvePositive(c, key.Year, years)
	case model.EventNegative:
		s.resolveNegative(c, key.Year, years)
	}
}

func (s *Simulator) resolvePositive(c model.Cohort, eventYear int, years []float64) {
	eventIdx := eventYear - 1

	if c.PlanYear == eventYear {
		years[eventIdx] += float64(c.Total)
		return
	}

	remaining := c.Total
	for b := model.BucketShift1; b <= model.BucketUnconditional; b++ {
		n := c.Advance[b]
		if b == model.BucketUnconditional || eventYear >= c.PlanYear-b.Shift() {
			years[eventIdx] += float64(n)
			remaining -= n
		}
	}

	years[c.PlanYear-1] += s.realised(float64(remaining), c.Ratios, s.coef.AfterPositive)
}

func (s *Simulator) resolveNegative(c model.Cohort, eventYear int, years []float64) {
	if c.PlanYear > eventYear {
		years[c.PlanYear-1] += s.realised(float64(c.Total), c.Ratios, s.coef.AfterNegative)
		return
	}

	// Delayed buckets land k years later and vanish past the horizon.
	// Unconditional delays cancel.
	for b := model.BucketNone; b <= model.BucketShift3; b++ {
		target := eventYear + b.Shift()
		if target > s.inputs.Horizon {
			continue
		}
		years[target-1] += s.realised(float64(c.Delay[b]), c.Ratios, s.coef.AfterNegative)
	}
}

func (s *Simulator) realised(n float64, r model.PropensityRatios, neutralCoef float64) float64 {
	return n * (r.Preference + neutralCoef*r.Neutral)
}

// RoundYears rounds each year to the nearest integer, halves away from zero.
func RoundYears(years []float64) []int {
	out := make([]int, len(years))
	for i, v := range years {
		out[i] = int(math.Round(v))
	}
	return out
}
