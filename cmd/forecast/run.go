package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/adoption-forecast/internal/cli"
	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/config"
	"github.com/Veraticus/adoption-forecast/internal/engine"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/Veraticus/adoption-forecast/internal/report"
	"github.com/Veraticus/adoption-forecast/internal/service"
	"github.com/Veraticus/adoption-forecast/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate every scenario and write the reports",
		Long: `Validate the input tables, simulate every (event type, event year) scenario,
accumulate ownership, compute per-year statistics and write the results and
statistics CSV files. The run is also saved to the local history unless
--no-save is given.`,
		RunE: runForecast,
	}

	cmd.Flags().String("results", "", "results CSV path (default from output.results_path)")
	cmd.Flags().String("statistics", "", "statistics CSV path (default from output.statistics_path)")
	cmd.Flags().String("workbook", "", "also write an XLSX workbook to this path")
	cmd.Flags().Int("workers", 1, "scenarios simulated concurrently")
	cmd.Flags().String("label", "", "label stored with the run")
	cmd.Flags().Bool("no-save", false, "do not record the run in the history database")
	cmd.Flags().Bool("sheets", false, "export the run to Google Sheets")
	cmd.Flags().BoolP("quiet", "q", false, "suppress tables and progress output")

	_ = viper.BindPFlag("output.results_path", cmd.Flags().Lookup("results"))
	_ = viper.BindPFlag("output.statistics_path", cmd.Flags().Lookup("statistics"))
	_ = viper.BindPFlag("output.workbook_path", cmd.Flags().Lookup("workbook"))
	_ = viper.BindPFlag("simulation.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	label, _ := cmd.Flags().GetString("label")
	noSave, _ := cmd.Flags().GetBool("no-save")
	toSheets, _ := cmd.Flags().GetBool("sheets")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inputs, err := cfg.ModelInputs()
	if err != nil {
		return common.NewUserError("input tables are invalid", err)
	}

	interrupt := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupt.HandleInterrupts(cmd.Context())

	var store service.Storage
	if !noSave {
		s, storeErr := initStorage(ctx, cfg.Database.Path)
		if storeErr != nil {
			return fmt.Errorf("failed to initialize storage: %w", storeErr)
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	var exporter service.ReportWriter
	if toSheets {
		sheetsConfig, sheetsErr := config.LoadSheetsConfig(viper.GetViper())
		if sheetsErr != nil {
			return common.NewUserError("Google Sheets is not configured", sheetsErr)
		}
		w, sheetsErr := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
		if sheetsErr != nil {
			return fmt.Errorf("failed to create sheets writer: %w", sheetsErr)
		}
		exporter = w
	}

	var progress *cli.Progress
	if !quiet {
		progress = cli.NewProgress(cmd.ErrOrStderr(), len(model.EventTypes())*inputs.Horizon, "Simulating scenarios...")
	}

	eng := engine.New(store, exporter, engine.Config{
		Coefficients: cfg.Coefficients(),
		Workers:      cfg.Simulation.Workers,
	}, slog.Default())

	res, err := eng.Run(ctx, inputs, engine.Options{
		Paths: report.Paths{
			Results:    cfg.Output.ResultsPath,
			Statistics: cfg.Output.StatisticsPath,
		},
		WorkbookPath: cfg.Output.WorkbookPath,
		Label:        label,
		OnScenario:   func(model.Scenario) { progress.Step() },
	})
	if res == nil {
		if interrupt.WasInterrupted() {
			return errors.New("forecast interrupted")
		}
		return err
	}
	progress.Finish()

	out := cmd.OutOrStdout()
	if !quiet {
		formatter := report.NewFormatter()
		fmt.Fprintln(out, formatter.FormatResults(res.Results))
		fmt.Fprintln(out, formatter.FormatStatistics(res.Run.Statistics))
		fmt.Fprintln(out, formatter.FormatFuzzyParameters(res.Run.Statistics))
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(out, cli.FormatWarning(w))
	}

	fmt.Fprintln(out, cli.FormatSuccess("Results written to "+cfg.Output.ResultsPath))
	fmt.Fprintln(out, cli.FormatSuccess("Statistics written to "+cfg.Output.StatisticsPath))
	if cfg.Output.WorkbookPath != "" {
		fmt.Fprintln(out, cli.FormatSuccess("Workbook written to "+cfg.Output.WorkbookPath))
	}
	if store != nil {
		fmt.Fprintln(out, cli.FormatInfo("Saved run "+res.Run.ID))
	}

	if err != nil {
		return err
	}
	if exporter != nil {
		fmt.Fprintln(out, cli.FormatSuccess("Exported run to Google Sheets"))
	}
	return nil
}
