package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	ScenariosSheet  = "Scenarios"
	StatisticsSheet = "Statistics"
)

// WriteWorkbook saves both tables as sheets of one XLSX workbook.
func WriteWorkbook(path string, results *Results, stats []model.StatRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ScenariosSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(StatisticsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSheet(f, ScenariosSheet, results.Header(), ScenarioRows(results), bold); err != nil {
		return err
	}
	if err := writeSheet(f, StatisticsSheet, StatisticsHeader(), StatisticsRows(stats), bold); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename workbook: %w", err)
	}
	return nil
}

// ScenarioRows returns the results table with typed cells for spreadsheets.
func ScenarioRows(r *Results) [][]any {
	rows := make([][]any, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		row := make([]any, 0, r.Horizon+3)
		row = append(row, sc.Name())
		for _, v := range sc.Cumulative {
			row = append(row, v)
		}
		rows[i] = append(row, sc.Key.Type.String(), sc.Key.Year)
	}
	return rows
}

// StatisticsRows returns the statistics table with typed cells for spreadsheets.
func StatisticsRows(stats []model.StatRow) [][]any {
	rows := make([][]any, len(stats))
	for i, s := range stats {
		rows[i] = []any{s.Year, s.Mean, s.Min, s.Max, s.Std}
	}
	return rows
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
