package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/adoption-forecast/internal/cli"
	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/config"
	"github.com/Veraticus/adoption-forecast/internal/report"
	"github.com/Veraticus/adoption-forecast/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a saved run",
		Long: `Export a saved run to Google Sheets. With --workbook the run is written to a
local XLSX file instead.

Google Sheets credentials are read from the sheets.* config keys or the
GOOGLE_SHEETS_* environment variables.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().String("workbook", "", "write an XLSX workbook instead of exporting to Google Sheets")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	workbook, _ := cmd.Flags().GetString("workbook")
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if workbook != "" {
		results, err := report.NewResults(run.Inputs.Horizon, run.Scenarios)
		if err != nil {
			return err
		}
		path := config.ExpandPath(workbook)
		if err := report.WriteWorkbook(path, results, run.Statistics); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess("Workbook written to "+path))
		return nil
	}

	sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return common.NewUserError("Google Sheets is not configured", err)
	}
	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}
	if err := writer.Write(ctx, run); err != nil {
		return fmt.Errorf("%w: %w", common.ErrExportFailed, err)
	}

	fmt.Fprintln(out, cli.FormatSuccess("Exported run "+run.ID+" to Google Sheets"))
	return nil
}
