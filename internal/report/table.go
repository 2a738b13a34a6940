// Package report tabulates scenario trajectories, computes cross-scenario
// statistics and renders them as CSV files, workbooks and console tables.
package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Veraticus/adoption-forecast/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Results is the scenario table: one row per scenario, one column per calendar year.
type Results struct {
	Scenarios []model.Scenario
	Horizon   int
}

// NewResults sorts a copy of the scenarios into canonical order
// (Negative, Neutral, Positive; then event year) and checks their shape.
func NewResults(horizon int, scenarios []model.Scenario) (*Results, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios to report")
	}

	rows := make([]model.Scenario, len(scenarios))
	copy(rows, scenarios)
	for _, sc := range rows {
		if len(sc.Cumulative) != horizon {
			return nil, fmt.Errorf("scenario %s has %d years, want %d", sc.Name(), len(sc.Cumulative), horizon)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Key.Less(rows[j].Key)
	})

	return &Results{Horizon: horizon, Scenarios: rows}, nil
}

// Column returns the cumulative ownership of every scenario for a calendar year (1-based).
func (r *Results) Column(year int) []float64 {
	col := make([]float64, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		col[i] = float64(sc.Cumulative[year-1])
	}
	return col
}

// Header returns the results table column names.
func (r *Results) Header() []string {
	header := make([]string, 0, r.Horizon+3)
	header = append(header, "Scenario")
	for year := 1; year <= r.Horizon; year++ {
		header = append(header, yearLabel(year))
	}
	return append(header, "EventType", "EventYear")
}

// Records renders the results table body as strings.
func (r *Results) Records() [][]string {
	records := make([][]string, 0, len(r.Scenarios))
	for _, sc := range r.Scenarios {
		row := make([]string, 0, r.Horizon+3)
		row = append(row, sc.Name())
		for _, v := range sc.Cumulative {
			row = append(row, strconv.Itoa(v))
		}
		row = append(row, sc.Key.Type.String(), strconv.Itoa(sc.Key.Year))
		records = append(records, row)
	}
	return records
}

// Statistics computes, per calendar year, the mean, minimum, maximum and
// population standard deviation of cumulative ownership across all scenarios.
func Statistics(r *Results) []model.StatRow {
	rows := make([]model.StatRow, r.Horizon)
	for year := 1; year <= r.Horizon; year++ {
		col := r.Column(year)
		mean, std := stat.PopMeanStdDev(col, nil)
		rows[year-1] = model.StatRow{
			Year: year,
			Mean: mean,
			Min:  int(floats.Min(col)),
			Max:  int(floats.Max(col)),
			Std:  std,
		}
	}
	return rows
}

// StatisticsHeader returns the statistics table column names.
func StatisticsHeader() []string {
	return []string{"Year", "Mean", "Min", "Max", "Std"}
}

// StatisticsRecords renders the statistics table body as strings.
func StatisticsRecords(stats []model.StatRow) [][]string {
	records := make([][]string, len(stats))
	for i, s := range stats {
		records[i] = []string{
			strconv.Itoa(s.Year),
			formatFloat(s.Mean),
			strconv.Itoa(s.Min),
			strconv.Itoa(s.Max),
			formatFloat(s.Std),
		}
	}
	return records
}

func yearLabel(year int) string {
	return "Year" + strconv.Itoa(year)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
