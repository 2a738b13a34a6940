// Package config provides configuration loading for the forecaster.
package config

import (
	"fmt"
	"strings"

	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/forecast"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Output     OutputConfig     `mapstructure:"output"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Inputs     InputsConfig     `mapstructure:"inputs"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// InputsConfig holds the survey tables driving the forecast.
type InputsConfig struct {
	Advance          [][]int   `mapstructure:"advance" yaml:"advance,flow"`
	Delay            [][]int   `mapstructure:"delay" yaml:"delay,flow"`
	Preference       []float64 `mapstructure:"preference" yaml:"preference,flow"`
	Neutral          []float64 `mapstructure:"neutral" yaml:"neutral,flow"`
	Horizon          int       `mapstructure:"horizon" yaml:"horizon"`
	InitialOwnership int       `mapstructure:"initial_ownership" yaml:"initial_ownership"`
}

// SimulationConfig tunes how undecided buyers react and how scenarios are evaluated.
type SimulationConfig struct {
	NeutralBaseline      float64 `mapstructure:"neutral_baseline"`
	NeutralAfterPositive float64 `mapstructure:"neutral_after_positive"`
	NeutralAfterNegative float64 `mapstructure:"neutral_after_negative"`
	Workers              int     `mapstructure:"workers"`
}

// OutputConfig holds the report file locations. An empty WorkbookPath disables the workbook.
type OutputConfig struct {
	ResultsPath    string `mapstructure:"results_path"`
	StatisticsPath string `mapstructure:"statistics_path"`
	WorkbookPath   string `mapstructure:"workbook_path"`
}

// DatabaseConfig holds the run history location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers defaults reproducing the production survey.
func SetDefaults(v *viper.Viper) {
	defaults := InputsFromModel(model.DefaultInputs())

	v.SetDefault("inputs.horizon", defaults.Horizon)
	v.SetDefault("inputs.initial_ownership", defaults.InitialOwnership)
	v.SetDefault("inputs.advance", defaults.Advance)
	v.SetDefault("inputs.delay", defaults.Delay)
	v.SetDefault("inputs.preference", defaults.Preference)
	v.SetDefault("inputs.neutral", defaults.Neutral)

	coef := forecast.DefaultCoefficients()
	v.SetDefault("simulation.neutral_baseline", coef.Baseline)
	v.SetDefault("simulation.neutral_after_positive", coef.AfterPositive)
	v.SetDefault("simulation.neutral_after_negative", coef.AfterNegative)
	v.SetDefault("simulation.workers", 1)

	v.SetDefault("output.results_path", "ownership_scenarios.csv")
	v.SetDefault("output.statistics_path", "ownership_statistics.csv")
	v.SetDefault("output.workbook_path", "")

	v.SetDefault("database.path", "$HOME/.local/share/forecast/forecast.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// EnvPrefix prefixes every environment override, e.g. FORECAST_DATABASE_PATH
// for database.path.
const EnvPrefix = "FORECAST"

// BindEnv lets FORECAST_* environment variables override any key of v.
// Nested keys use underscores in place of dots.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals the configuration held by v and expands paths.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Output.ResultsPath = ExpandPath(cfg.Output.ResultsPath)
	cfg.Output.StatisticsPath = ExpandPath(cfg.Output.StatisticsPath)
	cfg.Output.WorkbookPath = ExpandPath(cfg.Output.WorkbookPath)
	cfg.Database.Path = ExpandPath(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the non-table settings. Table consistency is checked by
// model.Inputs.Validate so that it applies to every source of inputs.
func (c *Config) Validate() error {
	if c.Output.ResultsPath == "" {
		return fmt.Errorf("%w: output.results_path is required", common.ErrMissingConfig)
	}
	if c.Output.StatisticsPath == "" {
		return fmt.Errorf("%w: output.statistics_path is required", common.ErrMissingConfig)
	}
	if c.Output.ResultsPath == c.Output.StatisticsPath {
		return fmt.Errorf("%w: output.results_path and output.statistics_path must differ", common.ErrInvalidConfig)
	}
	if c.Simulation.Workers < 1 {
		return &common.RangeError{Field: "simulation.workers", Value: c.Simulation.Workers, Min: 1}
	}
	if c.Simulation.NeutralBaseline < 0 || c.Simulation.NeutralBaseline > 1 {
		return fmt.Errorf("%w: simulation.neutral_baseline must be between 0 and 1", common.ErrInvalidConfig)
	}
	if c.Simulation.NeutralAfterPositive < 0 || c.Simulation.NeutralAfterPositive > 1 {
		return fmt.Errorf("%w: simulation.neutral_after_positive must be between 0 and 1", common.ErrInvalidConfig)
	}
	if c.Simulation.NeutralAfterNegative < 0 || c.Simulation.NeutralAfterNegative > 1 {
		return fmt.Errorf("%w: simulation.neutral_after_negative must be between 0 and 1", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: logging.format must be one of: console, json", common.ErrInvalidConfig)
	}
	return nil
}

// ModelInputs converts the configured tables into validated simulator inputs.
func (c *Config) ModelInputs() (*model.Inputs, error) {
	in := c.Inputs

	if in.Horizon < 1 {
		return nil, &common.RangeError{Field: "inputs.horizon", Value: in.Horizon, Min: 1}
	}

	advance, err := toPlanTable("inputs.advance", in.Advance)
	if err != nil {
		return nil, err
	}
	delay, err := toPlanTable("inputs.delay", in.Delay)
	if err != nil {
		return nil, err
	}

	if len(in.Preference) != len(in.Neutral) {
		return nil, common.NewValidationError("inputs.neutral",
			"has %d entries, inputs.preference has %d", len(in.Neutral), len(in.Preference))
	}
	ratios := make([]model.PropensityRatios, len(in.Preference))
	for i := range in.Preference {
		ratios[i] = model.PropensityRatios{Preference: in.Preference[i], Neutral: in.Neutral[i]}
	}

	inputs := &model.Inputs{
		Advance:          advance,
		Delay:            delay,
		Ratios:           ratios,
		InitialOwnership: in.InitialOwnership,
		Horizon:          in.Horizon,
	}
	if err := inputs.Validate(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// Coefficients returns the configured neutral-buyer coefficients.
func (c *Config) Coefficients() forecast.Coefficients {
	return forecast.Coefficients{
		Baseline:      c.Simulation.NeutralBaseline,
		AfterPositive: c.Simulation.NeutralAfterPositive,
		AfterNegative: c.Simulation.NeutralAfterNegative,
	}
}

// InputsFromModel converts simulator inputs back into their configuration form.
func InputsFromModel(in *model.Inputs) InputsConfig {
	out := InputsConfig{
		Advance:          make([][]int, len(in.Advance)),
		Delay:            make([][]int, len(in.Delay)),
		Preference:       make([]float64, len(in.Ratios)),
		Neutral:          make([]float64, len(in.Ratios)),
		Horizon:          in.Horizon,
		InitialOwnership: in.InitialOwnership,
	}
	for i, row := range in.Advance {
		out.Advance[i] = append([]int(nil), row[:]...)
	}
	for i, row := range in.Delay {
		out.Delay[i] = append([]int(nil), row[:]...)
	}
	for i, r := range in.Ratios {
		out.Preference[i] = r.Preference
		out.Neutral[i] = r.Neutral
	}
	return out
}

func toPlanTable(field string, rows [][]int) (model.PlanTable, error) {
	table := make(model.PlanTable, len(rows))
	for i, row := range rows {
		if len(row) != model.NumBuckets {
			return nil, common.NewValidationError(fmt.Sprintf("%s[%d]", field, i+1),
				"has %d buckets, want %d", len(row), model.NumBuckets)
		}
		copy(table[i][:], row)
	}
	return table, nil
}
