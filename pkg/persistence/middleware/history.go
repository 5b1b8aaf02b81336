package middleware

import (
	"context"

	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/ports"
)

type historyLimitMiddleware struct {
	next  ports.CheckpointStore
	limit int
}

// NewHistoryLimitMiddleware keeps only the newest limit round records in
// saved checkpoints. The caller's state is left untouched. A limit below 1
// disables trimming.
func NewHistoryLimitMiddleware(limit int) Middleware {
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		if limit < 1 {
			return next
		}
		return &historyLimitMiddleware{next: next, limit: limit}
	}
}

func (m *historyLimitMiddleware) Save(ctx context.Context, runID string, state *domain.TrainingState) error {
	if state == nil || len(state.History) <= m.limit {
		return m.next.Save(ctx, runID, state)
	}
	trimmed := state.Clone()
	trimmed.History = trimmed.History[len(trimmed.History)-m.limit:]
	return m.next.Save(ctx, runID, trimmed)
}

func (m *historyLimitMiddleware) Load(ctx context.Context, runID string) (*domain.TrainingState, error) {
	return m.next.Load(ctx, runID)
}

func (m *historyLimitMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *historyLimitMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
