package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/schedule"
	"github.com/aretw0/curriculum/pkg/session"
)

const runsURI = "curriculum://runs"

// InspectArgs selects a run.
type InspectArgs struct {
	RunID string `json:"run_id"`
}

// PlanArgs describes a generated schedule.
type PlanArgs struct {
	Start         float64 `json:"start"`
	Step          float64 `json:"step"`
	TimeMax       float64 `json:"time_max"`
	InitialBudget int     `json:"initial_budget"`
	Decrement     int     `json:"decrement"`
	IncludeMax    bool    `json:"include_max"`
}

// PlanResponse is the previewed schedule.
type PlanResponse struct {
	Checkpoints []float64 `json:"checkpoints" jsonschema_description:"Time upper bound of every round"`
	Budgets     []int     `json:"budgets" jsonschema_description:"Iteration budget of every round"`
}

// Server exposes saved runs and schedule planning as MCP tools.
type Server struct {
	runs      *session.Manager
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server.
func NewServer(runs *session.Manager, version string) *Server {
	s := &Server{
		runs:      runs,
		mcpServer: server.NewMCPServer("curriculum-mcp", strings.TrimSpace(version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the IDs of every saved training run."),
	), s.handleListRuns)

	s.mcpServer.AddTool(mcp.NewTool("inspect_run",
		mcp.WithDescription("Return the saved state of a run: completed rounds, time reached, next budget, loss history."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithOutputSchema[domain.TrainingState](),
	), mcp.NewStructuredToolHandler(s.handleInspectRun))

	s.mcpServer.AddTool(mcp.NewTool("plan_schedule",
		mcp.WithDescription("Preview the checkpoints start, start+step, ... <= time_max and the budget of each round."),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("First checkpoint")),
		mcp.WithNumber("step", mcp.Required(), mcp.Description("Distance between checkpoints")),
		mcp.WithNumber("time_max", mcp.Required(), mcp.Description("Final time horizon")),
		mcp.WithNumber("initial_budget", mcp.Required(), mcp.Description("Iterations of the first round")),
		mcp.WithNumber("decrement", mcp.Description("Budget decrease per round (default 0)")),
		mcp.WithBoolean("include_max", mcp.Description("Append time_max when the stepping misses it")),
		mcp.WithOutputSchema[PlanResponse](),
	), mcp.NewStructuredToolHandler(s.handlePlanSchedule))
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.runs.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if ids == nil {
		ids = []string{}
	}
	jsonBytes, _ := json.Marshal(ids)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleInspectRun(ctx context.Context, request mcp.CallToolRequest, args InspectArgs) (domain.TrainingState, error) {
	if args.RunID == "" {
		return domain.TrainingState{}, fmt.Errorf("run_id is required")
	}
	state, err := s.runs.Peek(ctx, args.RunID)
	if err != nil {
		return domain.TrainingState{}, fmt.Errorf("inspect failed: %w", err)
	}
	return *state, nil
}

func (s *Server) handlePlanSchedule(ctx context.Context, request mcp.CallToolRequest, args PlanArgs) (PlanResponse, error) {
	checkpoints, err := schedule.Range(args.Start, args.Step, args.TimeMax, args.IncludeMax)
	if err != nil {
		return PlanResponse{}, err
	}
	sched := schedule.Schedule{
		Checkpoints:     checkpoints,
		TimeMax:         args.TimeMax,
		InitialBudget:   args.InitialBudget,
		BudgetDecrement: args.Decrement,
	}
	if err := sched.Validate(); err != nil {
		return PlanResponse{}, err
	}
	return PlanResponse{Checkpoints: checkpoints, Budgets: sched.Budgets()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(runsURI, "Saved training runs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.runs.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      runsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
