package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/curriculum/pkg/adapters/memory"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewStore()
	state := domain.NewTrainingState("alpha", []float64{0.5}, 3)
	state.RoundIndex = 4
	require.NoError(t, store.Save(context.Background(), "alpha", state))
	return NewServer(session.NewManager(store), "test")
}

func TestListRuns(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleListRuns(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, `["alpha"]`, text.Text)
}

func TestInspectRun(t *testing.T) {
	s := newTestServer(t)

	state, err := s.handleInspectRun(context.Background(), mcp.CallToolRequest{}, InspectArgs{RunID: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 4, state.RoundIndex)
	assert.Equal(t, 3, state.IterationBudget)

	_, err = s.handleInspectRun(context.Background(), mcp.CallToolRequest{}, InspectArgs{RunID: "beta"})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	_, err = s.handleInspectRun(context.Background(), mcp.CallToolRequest{}, InspectArgs{})
	assert.Error(t, err)
}

func TestPlanSchedule(t *testing.T) {
	s := newTestServer(t)

	plan, err := s.handlePlanSchedule(context.Background(), mcp.CallToolRequest{}, PlanArgs{
		Start: 0.1, Step: 0.2, TimeMax: 1, InitialBudget: 10, Decrement: 4, IncludeMax: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.3, 0.5, 0.7, 0.9, 1}, plan.Checkpoints)
	assert.Equal(t, []int{10, 6, 2, 1, 1, 1}, plan.Budgets)

	_, err = s.handlePlanSchedule(context.Background(), mcp.CallToolRequest{}, PlanArgs{Start: 0.1, Step: 0.2, TimeMax: 1})
	assert.ErrorIs(t, err, domain.ErrNonPositiveBudget)
}
