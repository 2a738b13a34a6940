package main

import (
	"fmt"

	"github.com/Veraticus/adoption-forecast/internal/cli"
	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/config"
	"github.com/Veraticus/adoption-forecast/internal/forecast"
	"github.com/Veraticus/adoption-forecast/internal/report"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func inputsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inputs",
		Short: "Show the effective input tables",
		Long: `Print the planning tables the forecast would use after applying the config
file and environment. With --format yaml the output can be pasted into a
config file as a starting point.`,
		RunE: showInputs,
	}

	cmd.Flags().String("format", "table", "output format (table, yaml)")
	cmd.AddCommand(validateInputsCmd())

	return cmd
}

func validateInputsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the input tables for consistency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			inputs, err := cfg.ModelInputs()
			if err != nil {
				return common.NewUserError("input tables are invalid", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
				"Input tables are valid: %d planning years, %d planned purchases",
				inputs.Horizon, inputs.PlannedTotal())))

			if expected := forecast.ExpectedPositiveFirstYear(inputs); expected > 0 {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf(
					"A positive event in year 1 implies %d first-year purchases", expected)))
			}
			return nil
		},
	}
}

func showInputs(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inputs, err := cfg.ModelInputs()
	if err != nil {
		return common.NewUserError("input tables are invalid", err)
	}

	out := cmd.OutOrStdout()
	switch format {
	case "table":
		fmt.Fprintln(out, report.NewFormatter().FormatInputs(inputs))
	case "yaml":
		doc := struct {
			Inputs config.InputsConfig `yaml:"inputs"`
		}{Inputs: config.InputsFromModel(inputs)}

		data, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode inputs: %w", err)
		}
		fmt.Fprint(out, string(data))
	default:
		return fmt.Errorf("%w: unknown format %q (want table or yaml)", common.ErrInvalidInput, format)
	}
	return nil
}
