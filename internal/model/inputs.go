package model

import (
	"fmt"
	"math"

	"github.com/Veraticus/adoption-forecast/internal/common"
	"gonum.org/v1/gonum/mat"
)

// RatioTolerance bounds |preference + neutral - 1| for a ratio pair to be accepted.
const RatioTolerance = 1e-6

// PlanRow is one planning year's split of planned purchasers across buckets.
type PlanRow [NumBuckets]int

// PlanTable holds one PlanRow per planning year, year 1 first.
type PlanTable []PlanRow

// Totals returns the row sums of the table.
func (t PlanTable) Totals() []int {
	if len(t) == 0 {
		return nil
	}

	counts := mat.NewDense(len(t), NumBuckets, nil)
	for i, row := range t {
		for j, n := range row {
			counts.Set(i, j, float64(n))
		}
	}

	ones := make([]float64, NumBuckets)
	for i := range ones {
		ones[i] = 1
	}

	var sums mat.VecDense
	sums.MulVec(counts, mat.NewVecDense(NumBuckets, ones))

	totals := make([]int, len(t))
	for i := range totals {
		totals[i] = int(math.Round(sums.AtVec(i)))
	}
	return totals
}

// PropensityRatios splits a cohort into committed and undecided buyers.
type PropensityRatios struct {
	Preference float64 `json:"preference" yaml:"preference"`
	Neutral    float64 `json:"neutral" yaml:"neutral"`
}

// Inputs is the complete, injectable input of a forecast.
type Inputs struct {
	Advance          PlanTable          `json:"advance" yaml:"advance"`
	Delay            PlanTable          `json:"delay" yaml:"delay"`
	Ratios           []PropensityRatios `json:"ratios" yaml:"ratios"`
	InitialOwnership int                `json:"initial_ownership" yaml:"initial_ownership"`
	Horizon          int                `json:"horizon" yaml:"horizon"`
}

// Cohort is everyone who planned to buy in a given planning year.
type Cohort struct {
	Advance  PlanRow
	Delay    PlanRow
	Ratios   PropensityRatios
	PlanYear int
	Total    int
}

// Validate checks the tables for shape and internal consistency.
func (in *Inputs) Validate() error {
	if in.Horizon < 1 {
		return &common.RangeError{Field: "horizon", Value: in.Horizon, Min: 1}
	}
	if in.InitialOwnership < 0 {
		return &common.RangeError{Field: "initial_ownership", Value: in.InitialOwnership, Min: 0}
	}
	if len(in.Advance) != in.Horizon {
		return common.NewValidationError("advance", "has %d rows, horizon is %d", len(in.Advance), in.Horizon)
	}
	if len(in.Delay) != in.Horizon {
		return common.NewValidationError("delay", "has %d rows, horizon is %d", len(in.Delay), in.Horizon)
	}
	if len(in.Ratios) != in.Horizon {
		return common.NewValidationError("ratios", "has %d entries, horizon is %d", len(in.Ratios), in.Horizon)
	}

	if err := validateCounts("advance", in.Advance); err != nil {
		return err
	}
	if err := validateCounts("delay", in.Delay); err != nil {
		return err
	}

	totals := in.Advance.Totals()
	for i, sum := range in.Delay.Totals() {
		if sum != totals[i] {
			return common.NewValidationError(fmt.Sprintf("delay[%d]", i+1),
				"buckets sum to %d, cohort total is %d", sum, totals[i])
		}
	}

	for i, r := range in.Ratios {
		field := fmt.Sprintf("ratios[%d]", i+1)
		if r.Preference < 0 || r.Neutral < 0 {
			return common.NewValidationError(field, "ratios must not be negative")
		}
		if math.Abs(r.Preference+r.Neutral-1) > RatioTolerance {
			return common.NewValidationError(field,
				"preference %.9f + neutral %.9f must equal 1", r.Preference, r.Neutral)
		}
	}

	return nil
}

// CheckEventYear returns a RangeError unless year lies within the horizon.
func (in *Inputs) CheckEventYear(year int) error {
	if year < 1 || year > in.Horizon {
		return &common.RangeError{Field: "event_year", Value: year, Min: 1, Max: in.Horizon}
	}
	return nil
}

// Cohorts returns one cohort per planning year. Totals come from the advance table.
func (in *Inputs) Cohorts() []Cohort {
	totals := in.Advance.Totals()
	cohorts := make([]Cohort, in.Horizon)
	for i := range cohorts {
		cohorts[i] = Cohort{
			PlanYear: i + 1,
			Total:    totals[i],
			Ratios:   in.Ratios[i],
			Advance:  in.Advance[i],
			Delay:    in.Delay[i],
		}
	}
	return cohorts
}

// PlannedTotal is the number of planned purchasers over the whole horizon.
func (in *Inputs) PlannedTotal() int {
	var total int
	for _, n := range in.Advance.Totals() {
		total += n
	}
	return total
}

func validateCounts(name string, table PlanTable) error {
	for i, row := range table {
		for j, n := range row {
			if n < 0 {
				return common.NewValidationError(fmt.Sprintf("%s[%d]", name, i+1),
					"%s bucket is negative (%d)", Bucket(j), n)
			}
		}
	}
	return nil
}

// DefaultInputs returns the production survey tables.
func DefaultInputs() *Inputs {
	return &Inputs{
		Horizon:          5,
		InitialOwnership: 60,
		Advance: PlanTable{
			{10, 7, 5, 3, 3},
			{15, 2, 6, 1, 1},
			{14, 5, 2, 4, 2},
			{9, 3, 3, 1, 4},
			{17, 6, 2, 8, 5},
		},
		Delay: PlanTable{
			{12, 5, 5, 3, 3},
			{11, 5, 4, 1, 4},
			{12, 8, 5, 1, 1},
			{9, 3, 3, 1, 4},
			{11, 8, 2, 5, 12},
		},
		Ratios: []PropensityRatios{
			{Preference: 1.0, Neutral: 0.0},
			{Preference: 0.777777778, Neutral: 0.222222222},
			{Preference: 0.7, Neutral: 0.3},
			{Preference: 0.4, Neutral: 0.6},
			{Preference: 0.352941176, Neutral: 0.647058824},
		},
	}
}
