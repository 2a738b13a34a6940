package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallInputs is a three-year table with an even preference/neutral split.
func smallInputs() *model.Inputs {
	half := model.PropensityRatios{Preference: 0.5, Neutral: 0.5}
	return &model.Inputs{
		Horizon:          3,
		InitialOwnership: 10,
		Advance: model.PlanTable{
			{4, 0, 0, 0, 0},
			{2, 1, 1, 0, 1},
			{2, 1, 1, 1, 1},
		},
		Delay: model.PlanTable{
			{4, 0, 0, 0, 0},
			{5, 0, 0, 0, 0},
			{6, 0, 0, 0, 0},
		},
		Ratios: []model.PropensityRatios{half, half, half},
	}
}

// committedInputs has no undecided buyers, so delay buckets are easy to trace.
func committedInputs(firstDelay model.PlanRow) *model.Inputs {
	all := model.PropensityRatios{Preference: 1, Neutral: 0}
	return &model.Inputs{
		Horizon:          3,
		InitialOwnership: 0,
		Advance: model.PlanTable{
			{10, 0, 0, 0, 0},
			{4, 0, 0, 0, 0},
			{5, 0, 0, 0, 0},
		},
		Delay: model.PlanTable{
			firstDelay,
			{4, 0, 0, 0, 0},
			{5, 0, 0, 0, 0},
		},
		Ratios: []model.PropensityRatios{all, all, all},
	}
}

func newTestSimulator(t *testing.T, inputs *model.Inputs) *Simulator {
	t.Helper()
	sim, err := NewSimulator(inputs, DefaultCoefficients())
	require.NoError(t, err)
	return sim
}

func TestSimulator_NewPurchases(t *testing.T) {
	tests := []struct {
		inputs *model.Inputs
		name   string
		want   []int
		key    model.ScenarioKey
	}{
		{
			name:   "neutral rounds half away from zero",
			inputs: smallInputs(),
			key:    model.ScenarioKey{Type: model.EventNeutral, Year: 1},
			want:   []int{3, 4, 5},
		},
		{
			name:   "positive in first year pulls eligible buckets forward",
			inputs: smallInputs(),
			key:    model.ScenarioKey{Type: model.EventPositive, Year: 1},
			want:   []int{10, 2, 3},
		},
		{
			name:   "positive in second year leaves earlier cohorts alone",
			inputs: smallInputs(),
			key:    model.ScenarioKey{Type: model.EventPositive, Year: 2},
			want:   []int{3, 9, 2},
		},
		{
			name:   "negative suppresses undecided buyers after the event",
			inputs: smallInputs(),
			key:    model.ScenarioKey{Type: model.EventNegative, Year: 1},
			want:   []int{2, 3, 3},
		},
		{
			name:   "negative delays land k years later and past-horizon delays vanish",
			inputs: committedInputs(model.PlanRow{2, 3, 1, 1, 3}),
			key:    model.ScenarioKey{Type: model.EventNegative, Year: 1},
			want:   []int{2, 7, 6},
		},
		{
			name:   "negative in the last year keeps only the no-delay bucket",
			inputs: committedInputs(model.PlanRow{2, 3, 1, 1, 3}),
			key:    model.ScenarioKey{Type: model.EventNegative, Year: 3},
			want:   []int{10, 4, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSimulator(t, tt.inputs)
			got, err := sim.NewPurchases(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimulator_RoundsOncePerYear(t *testing.T) {
	half := model.PropensityRatios{Preference: 0.5, Neutral: 0.5}
	inputs := &model.Inputs{
		Horizon: 2,
		Advance: model.PlanTable{
			{2, 0, 0, 0, 0},
			{1, 0, 0, 0, 0},
		},
		Delay: model.PlanTable{
			{1, 1, 0, 0, 0},
			{1, 0, 0, 0, 0},
		},
		Ratios: []model.PropensityRatios{half, half},
	}
	sim := newTestSimulator(t, inputs)

	raw, err := sim.Contributions(model.ScenarioKey{Type: model.EventNegative, Year: 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 1.0}, raw, 1e-9)

	// Two 0.5 contributions meet in year 2; rounding each would give 2.
	got, err := sim.NewPurchases(model.ScenarioKey{Type: model.EventNegative, Year: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, got)
}

func TestSimulator_NegativeCancelsUnconditionalDelays(t *testing.T) {
	inputs := committedInputs(model.PlanRow{2, 3, 2, 0, 3})
	sim := newTestSimulator(t, inputs)

	sc, err := sim.Scenario(model.ScenarioKey{Type: model.EventNegative, Year: 1})
	require.NoError(t, err)

	cancelled := inputs.Delay[0][model.BucketUnconditional]
	assert.Equal(t, inputs.PlannedTotal()-cancelled, sc.TotalPurchases())
}

func TestSimulator_ProductionBaseline(t *testing.T) {
	sim := newTestSimulator(t, model.DefaultInputs())

	sc, err := sim.Scenario(model.ScenarioKey{Type: model.EventNeutral, Year: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{28, 22, 23, 14, 26}, sc.NewPurchases)
	assert.Equal(t, []int{88, 110, 133, 147, 173}, sc.Cumulative)
}

func TestSimulator_ProductionScenarios(t *testing.T) {
	want := map[string][]int{
		"Negative_Year1": {72, 96, 120, 131, 144},
		"Negative_Year2": {88, 97, 120, 131, 145},
		"Negative_Year3": {88, 110, 118, 132, 149},
		"Negative_Year4": {88, 110, 133, 137, 152},
		"Negative_Year5": {88, 110, 133, 147, 151},
		"Neutral_Year1":  {88, 110, 133, 147, 173},
		"Neutral_Year2":  {88, 110, 133, 147, 173},
		"Neutral_Year3":  {88, 110, 133, 147, 173},
		"Neutral_Year4":  {88, 110, 133, 147, 173},
		"Neutral_Year5":  {88, 110, 133, 147, 173},
		"Positive_Year1": {116, 131, 150, 165, 198},
		"Positive_Year2": {88, 147, 161, 173, 198},
		"Positive_Year3": {88, 110, 163, 172, 195},
		"Positive_Year4": {88, 110, 133, 174, 191},
		"Positive_Year5": {88, 110, 133, 147, 185},
	}

	sim := newTestSimulator(t, model.DefaultInputs())
	scenarios, err := sim.RunAll(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, scenarios, len(want))

	for _, sc := range scenarios {
		assert.Equal(t, want[sc.Name()], sc.Cumulative, sc.Name())
	}
}

func TestSimulator_Properties(t *testing.T) {
	inputs := model.DefaultInputs()
	sim := newTestSimulator(t, inputs)

	scenarios, err := sim.RunAll(context.Background(), RunOptions{})
	require.NoError(t, err)

	for _, sc := range scenarios {
		t.Run(sc.Name(), func(t *testing.T) {
			require.Len(t, sc.Cumulative, inputs.Horizon)
			assert.GreaterOrEqual(t, sc.Cumulative[0], inputs.InitialOwnership)
			for i := 1; i < len(sc.Cumulative); i++ {
				assert.GreaterOrEqual(t, sc.Cumulative[i], sc.Cumulative[i-1])
			}
			assert.LessOrEqual(t, sc.TotalPurchases(), inputs.PlannedTotal()+inputs.Horizon)
		})
	}
}

func TestSimulator_NeutralIgnoresEventYear(t *testing.T) {
	sim := newTestSimulator(t, model.DefaultInputs())

	first, err := sim.NewPurchases(model.ScenarioKey{Type: model.EventNeutral, Year: 1})
	require.NoError(t, err)

	for year := 2; year <= 5; year++ {
		got, err := sim.NewPurchases(model.ScenarioKey{Type: model.EventNeutral, Year: year})
		require.NoError(t, err)
		assert.Equal(t, first, got, "event year %d", year)
	}
}

func TestSimulator_PositiveFirstYearCrossCheck(t *testing.T) {
	for _, inputs := range []*model.Inputs{model.DefaultInputs(), smallInputs()} {
		sim := newTestSimulator(t, inputs)
		got, err := sim.NewPurchases(model.ScenarioKey{Type: model.EventPositive, Year: 1})
		require.NoError(t, err)
		assert.Equal(t, ExpectedPositiveFirstYear(inputs), got[0])
	}

	assert.Equal(t, 56, ExpectedPositiveFirstYear(model.DefaultInputs()))
}

func TestSimulator_InvalidScenario(t *testing.T) {
	sim := newTestSimulator(t, smallInputs())

	tests := []struct {
		name string
		key  model.ScenarioKey
	}{
		{name: "event year zero", key: model.ScenarioKey{Type: model.EventPositive, Year: 0}},
		{name: "event year past horizon", key: model.ScenarioKey{Type: model.EventNegative, Year: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.NewPurchases(tt.key)
			var rangeErr *common.RangeError
			require.True(t, errors.As(err, &rangeErr))
			assert.Equal(t, "event_year", rangeErr.Field)
		})
	}

	_, err := sim.NewPurchases(model.ScenarioKey{Type: model.EventType(9), Year: 1})
	assert.Error(t, err)
}

func TestNewSimulator_RejectsInvalidInputs(t *testing.T) {
	inputs := smallInputs()
	inputs.Delay[1] = model.PlanRow{1, 0, 0, 0, 0}

	_, err := NewSimulator(inputs, DefaultCoefficients())
	var validationErr *common.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = NewSimulator(nil, DefaultCoefficients())
	assert.Error(t, err)
}

func TestSimulator_CustomCoefficients(t *testing.T) {
	coef := Coefficients{Baseline: 1, AfterPositive: 1, AfterNegative: 1}
	sim, err := NewSimulator(smallInputs(), coef)
	require.NoError(t, err)

	got, err := sim.NewPurchases(model.ScenarioKey{Type: model.EventNeutral, Year: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6}, got)
}

func TestSimulator_AfterNegativeAppliesToEventYearBuckets(t *testing.T) {
	coef := DefaultCoefficients()
	coef.AfterNegative = 1
	sim, err := NewSimulator(smallInputs(), coef)
	require.NoError(t, err)

	// The event-year cohort and later cohorts use the same coefficient.
	got, err := sim.NewPurchases(model.ScenarioKey{Type: model.EventNegative, Year: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6}, got)

	inputs := committedInputs(model.PlanRow{2, 3, 1, 1, 3})
	inputs.Ratios[0] = model.PropensityRatios{Preference: 0.5, Neutral: 0.5}
	coef.AfterNegative = 0.5
	sim, err = NewSimulator(inputs, coef)
	require.NoError(t, err)

	raw, err := sim.Contributions(model.ScenarioKey{Type: model.EventNegative, Year: 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.5, 2.25 + 4, 0.75 + 5}, raw, 1e-9)
}
