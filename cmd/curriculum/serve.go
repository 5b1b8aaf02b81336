package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/curriculum"
	httpAdapter "github.com/aretw0/curriculum/pkg/adapters/http"
	"github.com/aretw0/curriculum/internal/cli"
	"github.com/aretw0/curriculum/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve saved runs and metrics over HTTP",
	Long:  `Exposes the checkpoint store as a small JSON API (/runs, /runs/{id}) with /health and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		opts := globalOptions(cmd)
		logger := cli.CreateLogger(opts.Debug, opts.LogFormat)

		mgr, closeStore, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		handler := httpAdapter.NewHandler(&httpAdapter.Server{
			Runs:    mgr,
			Metrics: observability.NewMetrics(nil).Handler(),
			Version: curriculum.Version,
			Logger:  logger,
		})

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting curriculum server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			fmt.Fprintf(cmd.OutOrStdout(), "\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
