package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/curriculum/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRoundStart: func(ctx context.Context, e *domain.RoundEvent) {
			logger.DebugContext(ctx, "hook: round start",
				"run_id", e.RunID,
				"round", e.Round,
				"t_upper", e.TimeUpper,
				"budget", e.Budget,
			)
		},
		OnRoundEnd: func(ctx context.Context, e *domain.RoundEvent) {
			logger.DebugContext(ctx, "hook: round end",
				"run_id", e.RunID,
				"round", e.Round,
				"loss", e.Loss,
				"duration", e.Duration,
			)
		},
		OnRoundFailed: func(ctx context.Context, e *domain.RoundEvent) {
			logger.WarnContext(ctx, "hook: round failed",
				"run_id", e.RunID,
				"round", e.Round,
				"err", e.Err,
			)
		},
	}
}
