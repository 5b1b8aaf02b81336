package observability_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(nil)
	hooks := m.Hooks()
	ctx := context.Background()

	start := &domain.RoundEvent{RunID: "r", Round: 1, TimeUpper: 0.5, Budget: 40}
	hooks.OnRoundStart(ctx, start)

	end := *start
	end.Loss = 0.25
	end.Duration = 20 * time.Millisecond
	hooks.OnRoundEnd(ctx, &end)

	failed := *start
	failed.Round = 2
	failed.Err = errors.New("boom")
	hooks.OnRoundFailed(ctx, &failed)

	expected := `
# HELP curriculum_rounds_total Training rounds by outcome.
# TYPE curriculum_rounds_total counter
curriculum_rounds_total{run_id="r",status="failed"} 1
curriculum_rounds_total{run_id="r",status="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), bytes.NewBufferString(expected), "curriculum_rounds_total"))


	loss := `
# HELP curriculum_round_loss Final loss of the last completed round.
# TYPE curriculum_round_loss gauge
curriculum_round_loss{run_id="r"} 0.25
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), bytes.NewBufferString(loss), "curriculum_round_loss"))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.Hooks().OnRoundEnd(context.Background(), &domain.RoundEvent{RunID: "r", TimeUpper: 1.5})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `curriculum_time_upper{run_id="r"} 1.5`)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)

	hooks.OnRoundStart(context.Background(), &domain.RoundEvent{RunID: "r", Round: 1})
	hooks.OnRoundFailed(context.Background(), &domain.RoundEvent{RunID: "r", Round: 1, Err: errors.New("nan")})

	assert.Contains(t, buf.String(), "hook: round start")
	assert.Contains(t, buf.String(), "err=nan")
}
