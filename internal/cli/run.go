package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/aretw0/curriculum"
	"github.com/aretw0/curriculum/internal/config"
	"github.com/aretw0/curriculum/internal/presentation/tui"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/observability"
	"github.com/aretw0/curriculum/pkg/report"
)

// RunOptions configures the run command.
type RunOptions struct {
	Options

	// Fresh discards any saved checkpoint of the run before starting.
	Fresh bool
	// Quiet disables the banner, progress lines and report rendering.
	Quiet bool
	// ReportDir overrides report.dir from the run file.
	ReportDir string
	// MetricsAddr serves Prometheus metrics on this address while training.
	MetricsAddr string

	Stdout io.Writer
}

// Execute trains the configured run, resuming it when a checkpoint exists.
func Execute(opts RunOptions) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	logger := CreateLogger(opts.Debug, opts.LogFormat)

	cfg, err := LoadConfig(opts.Options)
	if err != nil {
		return err
	}
	if opts.ReportDir != "" {
		cfg.Report.Dir = opts.ReportDir
	}

	problem, err := cfg.ProblemDef()
	if err != nil {
		return err
	}
	sched, err := cfg.BuildSchedule()
	if err != nil {
		return err
	}
	solver, err := newSolver(cfg, problem)
	if err != nil {
		return err
	}

	persistence, err := OpenStore(cfg.Store)
	if err != nil {
		return err
	}
	defer persistence.Close()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	metrics := observability.NewMetrics(nil)
	hooks := []domain.LifecycleHooks{metrics.Hooks()}
	if opts.Debug {
		hooks = append(hooks, observability.LoggingHooks(logger))
	}
	if !opts.Quiet {
		hooks = append(hooks, progressHooks(opts.Stdout))
	}
	if opts.MetricsAddr != "" {
		stop := serveMetrics(opts.MetricsAddr, metrics.Handler(), logger)
		defer stop()
	}

	trainer, err := newTrainer(cfg, solver, persistence, domain.ChainHooks(hooks...), logger)
	if err != nil {
		return err
	}

	reporter := report.New(solver, problem.Reference,
		report.WithDir(cfg.Report.Dir),
		report.WithGrid(cfg.Report.Grid),
		report.WithFrames(cfg.Report.Frames),
		report.WithLogger(logger),
	)
	plan := curriculum.PlanFor(cfg.RunID, problem, sched)
	plan.Observer = reporter.Observe

	if !opts.Quiet {
		tui.PrintBanner(opts.Stdout)
	}

	state, runErr := startOrResume(sigCtx, opts, cfg, persistence, trainer, plan)
	if !opts.Quiet {
		logCompletion(opts.Stdout, state, runErr, sigCtx.Signal())
	}

	title := fmt.Sprintf("Run %s: %s", cfg.RunID, problem.Description)
	if path, err := reporter.WriteMarkdown(title); err != nil {
		logger.Error("failed to write report", "err", err)
	} else if path != "" && !opts.Quiet {
		printSystemMessage(opts.Stdout, "Report written to %s", path)
	}
	if !opts.Quiet && len(reporter.Summaries()) > 0 {
		fmt.Fprintln(opts.Stdout, tui.RenderMarkdown(os.Stdout, reporter.Markdown(title)))
	}

	return handleExecutionError(runErr)
}

func startOrResume(ctx context.Context, opts RunOptions, cfg *config.Config, p *Persistence, trainer *curriculum.Trainer, plan curriculum.Plan) (*domain.TrainingState, error) {
	if p.Store == nil {
		return trainer.Run(ctx, plan)
	}

	if opts.Fresh {
		if err := p.Store.Delete(ctx, cfg.RunID); err != nil && !errors.Is(err, domain.ErrRunNotFound) {
			return nil, fmt.Errorf("failed to discard checkpoint: %w", err)
		}
	}

	_, err := p.Store.Load(ctx, cfg.RunID)
	switch {
	case err == nil:
		if !opts.Quiet {
			printSystemMessage(opts.Stdout, "Resuming run '%s'.", cfg.RunID)
		}
		return trainer.Resume(ctx, plan)
	case errors.Is(err, domain.ErrRunNotFound):
		return trainer.Run(ctx, plan)
	default:
		return nil, fmt.Errorf("failed to check for a saved run: %w", err)
	}
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	return func() { _ = srv.Close() }
}
