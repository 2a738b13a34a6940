package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/adoption-forecast/internal/cli"
	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/Veraticus/adoption-forecast/internal/report"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse saved forecast runs",
	}

	cmd.AddCommand(listRunsCmd())
	cmd.AddCommand(showRunCmd())
	cmd.AddCommand(deleteRunCmd())

	return cmd
}

func listRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No runs saved yet. Use 'forecast run' to create one."))
				return nil
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID,
					r.CreatedAt.Local().Format("2006-01-02 15:04"),
					r.Label,
					strconv.Itoa(r.Horizon),
					strconv.Itoa(r.InitialOwnership),
					strconv.Itoa(r.ScenarioCount),
				}
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(cli.SubtleStyle).
				Headers("ID", "Created", "Label", "Horizon", "Initial", "Scenarios").
				Rows(rows...)

			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%d saved runs", len(runs))))
			fmt.Fprintln(out, t.String())
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum runs to list (0 for all)")
	return cmd
}

func showRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a saved run's tables",
		Long: `Print a saved run's tables. The run may be named by any unique prefix of
its ID. With --scenario only that scenario's vectors are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, _ := cmd.Flags().GetString("scenario")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			formatter := report.NewFormatter()
			out := cmd.OutOrStdout()
			if scenario != "" {
				key, err := model.ParseScenarioName(scenario)
				if err != nil {
					return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
				}
				for _, sc := range run.Scenarios {
					if sc.Key == key {
						fmt.Fprintln(out, formatter.FormatScenario(sc))
						return nil
					}
				}
				return fmt.Errorf("scenario %s in run %s: %w", scenario, run.ID, common.ErrNotFound)
			}

			results, err := report.NewResults(run.Inputs.Horizon, run.Scenarios)
			if err != nil {
				return err
			}

			summary := fmt.Sprintf("Created: %s\nLabel: %s\nNeutral coefficients: %.2f / %.2f / %.2f (baseline / after positive / after negative)",
				run.CreatedAt.Local().Format("2006-01-02 15:04:05"), run.Label,
				run.Coefficients.Baseline, run.Coefficients.AfterPositive, run.Coefficients.AfterNegative)

			fmt.Fprintln(out, cli.RenderBox("Run "+run.ID, summary))
			fmt.Fprintln(out, formatter.FormatResults(results))
			fmt.Fprintln(out, formatter.FormatStatistics(run.Statistics))
			fmt.Fprintln(out, formatter.FormatFuzzyParameters(run.Statistics))
			return nil
		},
	}

	cmd.Flags().String("scenario", "", "print only this scenario, e.g. Positive_Year1")
	return cmd
}

func deleteRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted run "+args[0]))
			return nil
		},
	}
}
