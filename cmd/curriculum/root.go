package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/curriculum/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Curriculum trains PDE surrogates by progressive domain expansion",
	Long: `Curriculum fits an approximation of a time-dependent PDE over a growing
sequence of time windows, warm-starting every round from the previous one.
Runs are checkpointed after each round and resume where they stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Run file (YAML or JSON); built-in defaults when empty")
	rootCmd.PersistentFlags().String("run-id", "", "Override run_id from the run file")
	rootCmd.PersistentFlags().String("store", "", "Checkpoint store: none, memory, file or redis")
	rootCmd.PersistentFlags().String("store-path", "", "Directory of the file store (default .curriculum/runs)")
	rootCmd.PersistentFlags().String("redis", "", "Redis address; implies --store redis")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and lifecycle hooks")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

func globalOptions(cmd *cobra.Command) cli.Options {
	flags := cmd.Flags()
	opts := cli.Options{}
	opts.ConfigPath, _ = flags.GetString("config")
	opts.RunID, _ = flags.GetString("run-id")
	opts.Store, _ = flags.GetString("store")
	opts.StorePath, _ = flags.GetString("store-path")
	opts.RedisAddr, _ = flags.GetString("redis")
	opts.Debug, _ = flags.GetBool("debug")
	opts.LogFormat, _ = flags.GetString("log-format")
	return opts
}
