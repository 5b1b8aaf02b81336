package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/curriculum/internal/cli"
	"github.com/aretw0/curriculum/internal/presentation/graph"
)

type planRound struct {
	Round     int     `yaml:"round"`
	TimeUpper float64 `yaml:"t_upper"`
	Budget    int     `yaml:"budget"`
}

type planOutput struct {
	RunID   string      `yaml:"run_id"`
	Problem string      `yaml:"problem"`
	TimeMax float64     `yaml:"time_max"`
	Warmup  int         `yaml:"warmup_iterations,omitempty"`
	Rounds  []planRound `yaml:"rounds"`
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Validate the run file and print the rounds it would train",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(globalOptions(cmd))
		if err != nil {
			return err
		}
		sched, err := cfg.BuildSchedule()
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(sched, cfg.WarmupIterations, nil))
			return nil
		case "yaml", "":
		default:
			return fmt.Errorf("unknown format %q", format)
		}

		out := planOutput{
			RunID:   cfg.RunID,
			Problem: cfg.Problem,
			TimeMax: sched.TimeMax,
			Warmup:  cfg.WarmupIterations,
		}
		for i, b := range sched.Budgets() {
			out.Rounds = append(out.Rounds, planRound{Round: i + 1, TimeUpper: sched.Checkpoints[i], Budget: b})
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringP("format", "f", "yaml", "Output format: yaml or mermaid")
}
