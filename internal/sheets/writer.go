package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/Veraticus/adoption-forecast/internal/report"
	"google.golang.org/api/sheets/v4"
)

// Tab names written by the exporter.
const (
	RunTab        = "Run"
	ScenariosTab  = report.ScenariosSheet
	StatisticsTab = report.StatisticsSheet
)

// RunWriter exports a completed forecast run.
type RunWriter interface {
	Write(ctx context.Context, run *model.Run) error
}

// Writer exports forecast runs to a Google spreadsheet.
type Writer struct {
	api    spreadsheetAPI
	logger *slog.Logger
	config Config
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(&serviceAPI{srv: srv}, config, logger), nil
}

func newWriter(api spreadsheetAPI, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{api: api, config: config, logger: logger}
}

type tab struct {
	name   string
	values [][]any
}

// Write replaces the Run, Scenarios and Statistics tabs with the contents of run.
func (w *Writer) Write(ctx context.Context, run *model.Run) error {
	tabs, err := buildTabs(run)
	if err != nil {
		return err
	}

	w.logger.Info("starting sheets export",
		"run_id", run.ID,
		"scenarios", len(run.Scenarios))

	retryOpts := common.RetryOptions{
		Logger:       w.logger,
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var spreadsheetID string
	var ids map[string]int64
	err = common.WithRetry(ctx, func() error {
		var openErr error
		spreadsheetID, ids, openErr = w.getOrCreateSpreadsheet(ctx, tabs)
		return openErr
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, t := range tabs {
		err = common.WithRetry(ctx, func() error {
			if clearErr := w.api.Clear(ctx, spreadsheetID, tabRange(t.name)); clearErr != nil {
				return clearErr
			}
			return w.writeData(ctx, spreadsheetID, t)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s tab: %w", t.name, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			_, batchErr := w.api.Batch(ctx, spreadsheetID, formattingRequests(tabs, ids))
			return batchErr
		}, retryOpts)
		if err != nil {
			// Formatting failures leave the data in place.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("sheets export completed",
		"spreadsheet_id", spreadsheetID,
		"run_id", run.ID)

	return nil
}

func buildTabs(run *model.Run) ([]tab, error) {
	if run == nil || run.Inputs == nil {
		return nil, fmt.Errorf("run has no inputs: %w", common.ErrInvalidInput)
	}

	results, err := report.NewResults(run.Inputs.Horizon, run.Scenarios)
	if err != nil {
		return nil, fmt.Errorf("failed to tabulate run %s: %w", run.ID, err)
	}

	scenarios := append([][]any{toRow(results.Header())}, report.ScenarioRows(results)...)
	statistics := append([][]any{toRow(report.StatisticsHeader())}, report.StatisticsRows(run.Statistics)...)

	summary := [][]any{
		{"Field", "Value"},
		{"Run ID", run.ID},
		{"Label", run.Label},
		{"Created", run.CreatedAt.UTC().Format(time.RFC3339)},
		{"Horizon", run.Inputs.Horizon},
		{"Initial ownership", run.Inputs.InitialOwnership},
		{"Planned purchases", run.Inputs.PlannedTotal()},
	}

	return []tab{
		{name: RunTab, values: summary},
		{name: ScenariosTab, values: scenarios},
		{name: StatisticsTab, values: statistics},
	}, nil
}

// getOrCreateSpreadsheet opens the configured spreadsheet, adding any missing
// tabs, or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context, tabs []tab) (string, map[string]int64, error) {
	names := make([]string, len(tabs))
	for i, t := range tabs {
		names[i] = t.name
	}

	if w.config.SpreadsheetID == "" {
		id, ids, err := w.api.Create(ctx, w.config.SpreadsheetName, w.config.TimeZone, names)
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		w.logger.Info("created new spreadsheet", "id", id, "title", w.config.SpreadsheetName)
		return id, ids, nil
	}

	ids, err := w.api.Tabs(ctx, w.config.SpreadsheetID)
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	var add []*sheets.Request
	for _, name := range names {
		if _, ok := ids[name]; !ok {
			add = append(add, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: name}},
			})
		}
	}
	if len(add) == 0 {
		return w.config.SpreadsheetID, ids, nil
	}

	resp, err := w.api.Batch(ctx, w.config.SpreadsheetID, add)
	if err != nil {
		return "", nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			ids[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	return w.config.SpreadsheetID, ids, nil
}

// writeData writes a tab's values in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, t tab) error {
	for i := 0; i < len(t.values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(t.values))
		batch := t.values[i:end]

		if err := w.api.Update(ctx, spreadsheetID, quoteRange(t.name, fmt.Sprintf("A%d", i+1)), batch); err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", t.name, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

// formattingRequests bolds and freezes each tab's header row and sizes its columns.
func formattingRequests(tabs []tab, ids map[string]int64) []*sheets.Request {
	var requests []*sheets.Request
	for _, t := range tabs {
		id, ok := ids[t.name]
		if !ok || len(t.values) == 0 {
			continue
		}
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:       id,
						StartRowIndex: 0,
						EndRowIndex:   1,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        id,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    id,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   int64(len(t.values[0])),
					},
				},
			},
		)
	}
	return requests
}

// tabRange addresses every cell of a tab, whatever its width.
func tabRange(tab string) string {
	return fmt.Sprintf("'%s'", tab)
}

func quoteRange(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", tab, cells)
}

func toRow(header []string) []any {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}
