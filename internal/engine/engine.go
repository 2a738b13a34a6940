// Package engine runs a complete forecast: simulation, reporting, output
// files, run history and optional export.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/forecast"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/Veraticus/adoption-forecast/internal/report"
	"github.com/Veraticus/adoption-forecast/internal/service"
	"github.com/google/uuid"
)

// ForecastEngine orchestrates a forecast run.
type ForecastEngine struct {
	storage  service.Storage
	exporter service.ReportWriter
	logger   *slog.Logger
	now      func() time.Time
	config   Config
}

// Config holds configuration options for the engine.
type Config struct {
	Coefficients model.Coefficients
	Workers      int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Coefficients: forecast.DefaultCoefficients(),
		Workers:      1,
	}
}

// New creates an engine. storage and exporter may be nil to skip saving or exporting.
func New(storage service.Storage, exporter service.ReportWriter, config Config, logger *slog.Logger) *ForecastEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastEngine{
		storage:  storage,
		exporter: exporter,
		logger:   logger,
		now:      time.Now,
		config:   config,
	}
}

// Options controls one run.
type Options struct {
	// OnScenario is called once per simulated scenario, possibly concurrently.
	OnScenario   func(model.Scenario)
	Paths        report.Paths
	WorkbookPath string
	Label        string
}

// Result is everything a run produced.
type Result struct {
	Run      *model.Run
	Results  *report.Results
	Warnings []string
}

// Run validates inputs, simulates every scenario, writes the reports and
// saves the run. Nothing is written unless the whole computation succeeds.
// ctx is checked before each write stage, so a cancellation stops at the
// next stage boundary and keeps what was already written.
// An export failure is returned wrapped in common.ErrExportFailed together
// with the completed result.
func (e *ForecastEngine) Run(ctx context.Context, inputs *model.Inputs, opts Options) (*Result, error) {
	sim, err := forecast.NewSimulator(inputs, e.config.Coefficients)
	if err != nil {
		return nil, err
	}

	e.logBaseline(inputs)

	scenarios, err := sim.RunAll(ctx, forecast.RunOptions{
		Workers: e.config.Workers,
		OnScenario: func(sc model.Scenario) {
			e.logger.Debug("simulated scenario",
				"scenario", sc.Name(),
				"new_purchases", sc.NewPurchases,
				"cumulative", sc.Cumulative)
			if opts.OnScenario != nil {
				opts.OnScenario(sc)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}

	results, err := report.NewResults(inputs.Horizon, scenarios)
	if err != nil {
		return nil, err
	}
	stats := report.Statistics(results)

	result := &Result{
		Results:  results,
		Warnings: e.crossCheck(inputs, results),
		Run: &model.Run{
			ID:           uuid.New().String(),
			CreatedAt:    e.now(),
			Label:        opts.Label,
			Inputs:       inputs,
			Coefficients: e.config.Coefficients,
			Scenarios:    results.Scenarios,
			Statistics:   stats,
		},
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := report.WriteFiles(opts.Paths, results, stats); err != nil {
		return nil, err
	}
	e.logger.Info("wrote reports",
		"results", opts.Paths.Results,
		"statistics", opts.Paths.Statistics)

	if opts.WorkbookPath != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := report.WriteWorkbook(opts.WorkbookPath, results, stats); err != nil {
			return nil, err
		}
		e.logger.Info("wrote workbook", "path", opts.WorkbookPath)
	}

	if e.storage != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.storage.SaveRun(ctx, result.Run); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		e.logger.Info("saved run", "run_id", result.Run.ID)
	}

	if e.exporter != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.exporter.Write(ctx, result.Run); err != nil {
			return result, fmt.Errorf("%w: %w", common.ErrExportFailed, err)
		}
	}

	return result, nil
}

func (e *ForecastEngine) logBaseline(inputs *model.Inputs) {
	e.logger.Info("starting forecast",
		"horizon", inputs.Horizon,
		"initial_ownership", inputs.InitialOwnership,
		"planned_purchases", inputs.PlannedTotal(),
		"workers", e.config.Workers)

	for _, c := range inputs.Cohorts() {
		e.logger.Debug("cohort",
			"plan_year", c.PlanYear,
			"total", c.Total,
			"preference", c.Ratios.Preference,
			"neutral", c.Ratios.Neutral)
	}
}

// crossCheck recomputes Positive_Year1's first-year purchases directly from
// the tables and reports a mismatch.
func (e *ForecastEngine) crossCheck(inputs *model.Inputs, results *report.Results) []string {
	key := model.ScenarioKey{Type: model.EventPositive, Year: 1}
	expected := forecast.ExpectedPositiveFirstYear(inputs)

	for _, sc := range results.Scenarios {
		if sc.Key != key {
			continue
		}
		if sc.NewPurchases[0] == expected {
			e.logger.Debug("positive first-year cross-check passed", "purchases", expected)
			return nil
		}
		msg := fmt.Sprintf("%s year 1 has %d new purchases, tables imply %d",
			key.Name(), sc.NewPurchases[0], expected)
		e.logger.Warn("cross-check mismatch", "scenario", key.Name(),
			"simulated", sc.NewPurchases[0], "expected", expected)
		return []string{msg}
	}
	return nil
}
