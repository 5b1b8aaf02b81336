package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/curriculum/internal/cli"
	"github.com/aretw0/curriculum/internal/presentation/graph"
	"github.com/aretw0/curriculum/pkg/session"
)

var checkpointCmd = &cobra.Command{
	Use:     "checkpoint",
	Aliases: []string{"ckpt"},
	Short:   "Manage saved run checkpoints",
	Long:    `List, inspect, and remove run checkpoints in the configured store.`,
}

func openManager(cmd *cobra.Command) (*session.Manager, func() error, error) {
	cfg, err := cli.LoadConfig(globalOptions(cmd))
	if err != nil {
		return nil, nil, err
	}
	p, err := cli.OpenStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	if p.Store == nil {
		return nil, nil, fmt.Errorf("store type %q keeps no checkpoints", cfg.Store.Type)
	}
	return session.NewManager(p.Store, session.WithLocker(p.Locker)), p.Close, nil
}

var checkpointLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		ids, err := mgr.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing runs: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No saved runs found.")
			return nil
		}
		fmt.Fprintln(out, "Saved runs:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var checkpointInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Print the saved state of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		state, err := mgr.Peek(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading run '%s': %w", args[0], err)
		}

		if asGraph, _ := cmd.Flags().GetBool("graph"); asGraph {
			cfg, err := cli.LoadConfig(globalOptions(cmd))
			if err != nil {
				return err
			}
			sched, err := cfg.BuildSchedule()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(sched, 0, &graph.Overlay{Completed: state.RoundIndex}))
			return nil
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling state: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var checkpointRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove saved runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		for _, id := range args {
			if err := mgr.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("error removing run '%s': %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed run '%s'.\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointLsCmd)
	checkpointCmd.AddCommand(checkpointInspectCmd)
	checkpointCmd.AddCommand(checkpointRmCmd)

	checkpointInspectCmd.Flags().Bool("graph", false, "Print the schedule as a Mermaid chart with completed rounds marked")
}
