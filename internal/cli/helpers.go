package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/curriculum/internal/logging"
	"github.com/aretw0/curriculum/internal/presentation/tui"
	"github.com/aretw0/curriculum/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Unlike signal.NotifyContext it remembers which signal arrived.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// CreateLogger configures the application logger. Outside debug mode only
// warnings and errors reach Stderr.
func CreateLogger(debug bool, format string) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithWriter(os.Stderr, level, logging.Format(format))
}

// printSystemMessage prints a standardized system message to w.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// progressHooks prints one coloured line per finished or failed round.
func progressHooks(w io.Writer) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRoundEnd: func(_ context.Context, e *domain.RoundEvent) {
			fmt.Fprintln(w, tui.RoundLine(w, e))
		},
		OnRoundFailed: func(_ context.Context, e *domain.RoundEvent) {
			fmt.Fprintln(w, tui.RoundLine(w, e))
		},
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

// handleExecutionError maps interruptions to a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

func logCompletion(w io.Writer, state *domain.TrainingState, err error, sig os.Signal) {
	rounds, upper := 0, 0.0
	if state != nil {
		rounds, upper = state.RoundIndex, state.TimeUpper
	}

	switch {
	case err == nil:
		printSystemMessage(w, "Finished %d rounds at t=%g.", rounds, upper)
	case isInterrupted(err) && sig == os.Interrupt:
		fmt.Fprintln(w, "[CTRL+C]")
		printSystemMessage(w, "Interrupted after %d rounds at t=%g. Run again to resume.", rounds, upper)
	case isInterrupted(err):
		printSystemMessage(w, "Terminated after %d rounds at t=%g.", rounds, upper)
	default:
		printSystemMessage(w, "Stopped after %d rounds at t=%g: %v", rounds, upper, err)
	}
}
