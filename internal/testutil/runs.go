package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/adoption-forecast/internal/forecast"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/Veraticus/adoption-forecast/internal/report"
)

// Fixture names a predefined set of input tables.
type Fixture string

const (
	// FixtureProduction is the five-year production planning table.
	FixtureProduction Fixture = "production"
	// FixtureSmall is a two-year table whose scenarios are easy to trace by hand.
	FixtureSmall Fixture = "small"
)

// Inputs returns a fresh copy of the fixture's input tables.
func (f Fixture) Inputs() *model.Inputs {
	if f == FixtureSmall {
		return &model.Inputs{
			Horizon:          2,
			InitialOwnership: 5,
			Advance:          model.PlanTable{{1, 1, 0, 0, 0}, {2, 0, 0, 0, 1}},
			Delay:            model.PlanTable{{1, 1, 0, 0, 0}, {2, 0, 0, 0, 1}},
			Ratios: []model.PropensityRatios{
				{Preference: 1, Neutral: 0},
				{Preference: 0.5, Neutral: 0.5},
			},
		}
	}
	return model.DefaultInputs()
}

// RunBuilder assembles a complete, internally consistent forecast run by
// simulating every scenario of its inputs.
type RunBuilder struct {
	t         *testing.T
	inputs    *model.Inputs
	createdAt time.Time
	label     string
	coef      model.Coefficients
}

// NewRunBuilder starts a builder over the production tables.
func NewRunBuilder(t *testing.T) *RunBuilder {
	t.Helper()
	return &RunBuilder{
		t:         t,
		inputs:    FixtureProduction.Inputs(),
		createdAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		coef:      forecast.DefaultCoefficients(),
	}
}

// WithFixture replaces the input tables with a predefined fixture.
func (b *RunBuilder) WithFixture(f Fixture) *RunBuilder {
	b.inputs = f.Inputs()
	return b
}

// WithInputs replaces the input tables.
func (b *RunBuilder) WithInputs(in *model.Inputs) *RunBuilder {
	b.inputs = in
	return b
}

// WithLabel sets the run label.
func (b *RunBuilder) WithLabel(label string) *RunBuilder {
	b.label = label
	return b
}

// WithCoefficients overrides the neutral purchase coefficients.
func (b *RunBuilder) WithCoefficients(c model.Coefficients) *RunBuilder {
	b.coef = c
	return b
}

// CreatedAt sets the run timestamp.
func (b *RunBuilder) CreatedAt(at time.Time) *RunBuilder {
	b.createdAt = at
	return b
}

// Build simulates the run or fails the test.
func (b *RunBuilder) Build() *model.Run {
	b.t.Helper()

	sim, err := forecast.NewSimulator(b.inputs, b.coef)
	if err != nil {
		b.t.Fatalf("invalid fixture inputs: %v", err)
	}
	scenarios, err := sim.RunAll(context.Background(), forecast.RunOptions{})
	if err != nil {
		b.t.Fatalf("failed to simulate fixture: %v", err)
	}
	results, err := report.NewResults(b.inputs.Horizon, scenarios)
	if err != nil {
		b.t.Fatalf("failed to tabulate fixture: %v", err)
	}

	return &model.Run{
		Label:        b.label,
		CreatedAt:    b.createdAt,
		Inputs:       b.inputs,
		Coefficients: b.coef,
		Scenarios:    results.Scenarios,
		Statistics:   report.Statistics(results),
	}
}
