package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/curriculum/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Train a run, resuming its checkpoint when one exists",
	Long: `Loads the run file, builds the problem and the spectral solver, and trains
one round per checkpoint. After every round the state is checkpointed and the
approximation is compared with the analytic solution.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{Options: globalOptions(cmd)}
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		opts.ReportDir, _ = cmd.Flags().GetString("report-dir")
		opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		opts.Stdout = cmd.OutOrStdout()
		return cli.Execute(opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("fresh", false, "Discard the saved checkpoint and start over")
	runCmd.Flags().BoolP("quiet", "q", false, "No banner, progress or report on stdout")
	runCmd.Flags().String("report-dir", "", "Write per-round CSV files and report.md here")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while training (e.g. :9090)")
}
