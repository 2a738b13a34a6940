package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/adoption-forecast/internal/forecast"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func productionResults(t *testing.T) *Results {
	t.Helper()
	inputs := model.DefaultInputs()
	sim, err := forecast.NewSimulator(inputs, forecast.DefaultCoefficients())
	require.NoError(t, err)

	scenarios, err := sim.RunAll(context.Background(), forecast.RunOptions{})
	require.NoError(t, err)

	// Feed them in reverse to prove NewResults sorts.
	for i, j := 0, len(scenarios)-1; i < j; i, j = i+1, j-1 {
		scenarios[i], scenarios[j] = scenarios[j], scenarios[i]
	}

	results, err := NewResults(inputs.Horizon, scenarios)
	require.NoError(t, err)
	return results
}

func TestNewResults_SortsCanonically(t *testing.T) {
	results := productionResults(t)
	require.Len(t, results.Scenarios, 15)

	assert.Equal(t, "Negative_Year1", results.Scenarios[0].Name())
	assert.Equal(t, "Neutral_Year1", results.Scenarios[5].Name())
	assert.Equal(t, "Positive_Year5", results.Scenarios[14].Name())
}

func TestNewResults_Errors(t *testing.T) {
	_, err := NewResults(5, nil)
	assert.Error(t, err)

	_, err = NewResults(5, []model.Scenario{{
		Key:        model.ScenarioKey{Type: model.EventNeutral, Year: 1},
		Cumulative: []int{1, 2},
	}})
	assert.Error(t, err)
}

func TestStatistics_ProductionBaseline(t *testing.T) {
	stats := Statistics(productionResults(t))
	require.Len(t, stats, 5)

	want := []model.StatRow{
		{Year: 1, Mean: 88.8, Min: 72, Max: 116, Std: 8.288144142890696},
		{Year: 2, Mean: 112.06666666666666, Min: 96, Max: 147, Std: 11.862920757085453},
		{Year: 3, Mean: 135.26666666666668, Min: 118, Max: 163, Std: 12.803471751399652},
		{Year: 4, Mean: 149.6, Min: 131, Max: 174, Std: 14.351771086988997},
		{Year: 5, Mean: 171.53333333333333, Min: 144, Max: 198, Std: 18.7895952295117},
	}
	for i, w := range want {
		got := stats[i]
		assert.Equal(t, w.Year, got.Year)
		assert.InDelta(t, w.Mean, got.Mean, 1e-9)
		assert.Equal(t, w.Min, got.Min)
		assert.Equal(t, w.Max, got.Max)
		assert.InDelta(t, w.Std, got.Std, 1e-9)
	}
}

func TestStatistics_MeanMatchesResultsColumn(t *testing.T) {
	results := productionResults(t)
	stats := Statistics(results)

	for _, s := range stats {
		var sum int
		for _, sc := range results.Scenarios {
			sum += sc.Cumulative[s.Year-1]
		}
		assert.InDelta(t, float64(sum)/float64(len(results.Scenarios)), s.Mean, 1e-9)
	}
}

func TestStatistics_PopulationDeviation(t *testing.T) {
	results, err := NewResults(1, []model.Scenario{
		{Key: model.ScenarioKey{Type: model.EventNeutral, Year: 1}, Cumulative: []int{2}},
		{Key: model.ScenarioKey{Type: model.EventPositive, Year: 1}, Cumulative: []int{4}},
	})
	require.NoError(t, err)

	stats := Statistics(results)
	require.Len(t, stats, 1)
	assert.InDelta(t, 3.0, stats[0].Mean, 1e-12)
	// Divide by N: sqrt(((2-3)^2 + (4-3)^2) / 2) = 1.
	assert.InDelta(t, 1.0, stats[0].Std, 1e-12)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Results:    filepath.Join(dir, "out", "scenarios.csv"),
		Statistics: filepath.Join(dir, "out", "statistics.csv"),
	}
	results := productionResults(t)

	require.NoError(t, WriteFiles(paths, results, Statistics(results)))

	data, err := os.ReadFile(paths.Results)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 16)
	assert.Equal(t, "Scenario,Year1,Year2,Year3,Year4,Year5,EventType,EventYear", lines[0])
	assert.Equal(t, "Negative_Year1,72,96,120,131,144,Negative,1", lines[1])
	assert.Equal(t, "Neutral_Year3,88,110,133,147,173,Neutral,3", lines[8])
	assert.Equal(t, "Positive_Year1,116,131,150,165,198,Positive,1", lines[11])

	data, err = os.ReadFile(paths.Statistics)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Year,Mean,Min,Max,Std", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,88.8,72,116,8.28814414289"), lines[1])

	leftovers, err := filepath.Glob(filepath.Join(dir, "out", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteFiles_NoPartialOutput(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	paths := Paths{
		Results:    filepath.Join(dir, "scenarios.csv"),
		Statistics: filepath.Join(blocker, "statistics.csv"),
	}
	results := productionResults(t)

	err := WriteFiles(paths, results, Statistics(results))
	require.Error(t, err)

	_, statErr := os.Stat(paths.Results)
	assert.True(t, os.IsNotExist(statErr), "results file must not be written when statistics fail")
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.xlsx")
	results := productionResults(t)

	require.NoError(t, WriteWorkbook(path, results, Statistics(results)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(ScenariosSheet)
	require.NoError(t, err)
	require.Len(t, rows, 16)
	assert.Equal(t, []string{"Scenario", "Year1", "Year2", "Year3", "Year4", "Year5", "EventType", "EventYear"}, rows[0])
	assert.Equal(t, "Negative_Year1", rows[1][0])
	assert.Equal(t, "144", rows[1][5])

	rows, err = f.GetRows(StatisticsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Year", "Mean", "Min", "Max", "Std"}, rows[0])
	assert.Equal(t, "72", rows[1][2])
}

func TestFormatter(t *testing.T) {
	f := NewFormatter()
	results := productionResults(t)
	stats := Statistics(results)

	out := f.FormatResults(results)
	assert.Contains(t, out, "Positive_Year1")
	assert.Contains(t, out, "198")
	assert.NotContains(t, out, "EventType")

	out = f.FormatStatistics(stats)
	assert.Contains(t, out, "88.8000")
	assert.Contains(t, out, "116")

	out = f.FormatFuzzyParameters(stats)
	assert.Contains(t, out, "Year 1: μ=88.80, v̲=72.00, v̄=116.00, σ=8.29")

	out = f.FormatInputs(model.DefaultInputs())
	assert.Contains(t, out, "Initial ownership: 60")
	assert.Contains(t, out, "unconditional")
	assert.Contains(t, out, "0.7778")

	sc := results.Scenarios[0]
	assert.Contains(t, f.FormatScenario(sc), "[72 96 120 131 144]")
}
