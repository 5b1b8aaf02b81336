package domain

import (
	"context"
	"time"
)

// RoundEvent describes the progress of one training round.
type RoundEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	RunID      string        `json:"run_id"`
	Round      int           `json:"round"`
	TimeUpper  float64       `json:"time_upper"`
	Budget     int           `json:"budget"`
	Loss       float64       `json:"loss,omitempty"`
	Iterations int           `json:"iterations,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Err        error         `json:"-"`
}

// LifecycleHooks defines callbacks for trainer observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnRoundStart  func(context.Context, *RoundEvent)
	OnRoundEnd    func(context.Context, *RoundEvent)
	OnRoundFailed func(context.Context, *RoundEvent)
}

// ChainHooks combines several hook sets; callbacks fire in argument order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var starts, ends, fails []func(context.Context, *RoundEvent)
	for _, h := range hooks {
		if h.OnRoundStart != nil {
			starts = append(starts, h.OnRoundStart)
		}
		if h.OnRoundEnd != nil {
			ends = append(ends, h.OnRoundEnd)
		}
		if h.OnRoundFailed != nil {
			fails = append(fails, h.OnRoundFailed)
		}
	}
	return LifecycleHooks{
		OnRoundStart:  fanOut(starts),
		OnRoundEnd:    fanOut(ends),
		OnRoundFailed: fanOut(fails),
	}
}

func fanOut(fns []func(context.Context, *RoundEvent)) func(context.Context, *RoundEvent) {
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, e *RoundEvent) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}

// Observer is invoked after every completed round. It is fire-and-forget:
// the trainer neither waits on nor inspects anything it does beyond returning.
type Observer func(round int, domain DomainSpec, result TrainingResult)
