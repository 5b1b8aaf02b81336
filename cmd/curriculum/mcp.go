package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/curriculum"
	"github.com/aretw0/curriculum/internal/cli"
	"github.com/aretw0/curriculum/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes saved runs and schedule planning as MCP tools
(list_runs, inspect_run, plan_schedule).

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		opts := globalOptions(cmd)
		logger := cli.CreateLogger(opts.Debug, opts.LogFormat)

		mgr, closeStore, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		srv := mcp.NewServer(mgr, curriculum.Version)

		switch transport {
		case "stdio":
			// Stdout carries JSON-RPC; keep every log on Stderr.
			log.SetOutput(os.Stderr)
			logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ServeSSE(ctx, port)
		default:
			return fmt.Errorf("unknown transport %q", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().IntP("port", "p", 8080, "Port for the SSE transport")
}
