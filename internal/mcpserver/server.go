package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"flowlab/grader/internal/grading"
	"flowlab/grader/internal/graph"
	"flowlab/grader/internal/logging"
	"flowlab/grader/internal/rules"
)

// Server exposes grading as MCP tools
type Server struct {
	MCPServer *sdkmcp.Server

	svc *grading.Service
	log *slog.Logger
}

// NewServer creates an MCP server with the grading tools registered
func NewServer(svc *grading.Service, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "grader", Version: version}, nil),
		svc:       svc,
		log:       logging.New("mcp"),
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "validate_workflow",
		Description: "Validate a workflow graph against a rule or a tutorial exercise. Returns score, feedback and suggestions.",
	}, s.handleValidate)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_exercises",
		Description: "List tutorial exercises, optionally filtered by difficulty.",
	}, s.handleListExercises)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_workflow",
		Description: "Structural report for a workflow graph: components, orphans, unreachable nodes, single points of failure and a health score.",
	}, s.handleAnalyze)
}

// --- Tool input/output types ---

type validateInput struct {
	Graph      graph.Graph     `json:"graph" jsonschema:"workflow graph with nodes and edges"`
	Rule       *rules.Criteria `json:"rule,omitempty" jsonschema:"inline rule with kind, parameters, message and hints"`
	ExerciseID string          `json:"exercise_id,omitempty" jsonschema:"catalog exercise to grade against when no rule is given"`
	UserID     string          `json:"user_id,omitempty" jsonschema:"learner id recorded with the attempt"`
}

type validateOutput struct {
	IsValid     bool     `json:"isValid"`
	Message     string   `json:"message"`
	Score       int      `json:"score"`
	Feedback    []string `json:"feedback"`
	Suggestions []string `json:"suggestions"`
	Hints       []string `json:"hints"`
	Kind        string   `json:"kind"`
}

type listExercisesInput struct {
	Difficulty string `json:"difficulty,omitempty" jsonschema:"beginner, intermediate or advanced"`
}

type exerciseSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Objective     string `json:"objective,omitempty"`
	Difficulty    string `json:"difficulty"`
	EstimatedTime string `json:"estimated_time,omitempty"`
	Kind          string `json:"kind"`
}

type listExercisesOutput struct {
	Exercises []exerciseSummary `json:"exercises"`
	Total     int               `json:"total"`
}

type analyzeInput struct {
	Graph graph.Graph `json:"graph" jsonschema:"workflow graph with nodes and edges"`
}

type analyzeOutput struct {
	HealthScore        float64  `json:"health_score"`
	Connectivity       float64  `json:"connectivity"`
	Components         float64  `json:"components"`
	Reachability       float64  `json:"reachability"`
	Fragility          float64  `json:"fragility"`
	TotalNodes         int      `json:"total_nodes"`
	TotalEdges         int      `json:"total_edges"`
	NumComponents      int      `json:"num_components"`
	Orphans            []string `json:"orphans"`
	Unreachable        []string `json:"unreachable"`
	ArticulationPoints []string `json:"articulation_points"`
	Branching          []string `json:"branching"`
}

// --- Tool handlers ---

func (s *Server) handleValidate(ctx context.Context, _ *sdkmcp.CallToolRequest, input validateInput) (*sdkmcp.CallToolResult, validateOutput, error) {
	g := input.Graph
	out, err := s.svc.Validate(ctx, grading.Request{
		Graph:      &g,
		Rule:       input.Rule,
		ExerciseID: input.ExerciseID,
		UserID:     input.UserID,
	})
	if err != nil {
		return nil, validateOutput{}, err
	}
	s.log.Info("validated", "kind", out.Kind, "exercise", input.ExerciseID, "score", out.Result.Score)

	r := out.Result
	return nil, validateOutput{
		IsValid:     r.IsValid,
		Message:     r.Message,
		Score:       r.Score,
		Feedback:    nonNil(r.Feedback),
		Suggestions: nonNil(r.Suggestions),
		Hints:       nonNil(r.Hints),
		Kind:        string(out.Kind),
	}, nil
}

func (s *Server) handleListExercises(_ context.Context, _ *sdkmcp.CallToolRequest, input listExercisesInput) (*sdkmcp.CallToolResult, listExercisesOutput, error) {
	cat := s.svc.Catalog()
	list := cat.List()
	if input.Difficulty != "" {
		list = cat.ByDifficulty(input.Difficulty)
	}

	out := listExercisesOutput{Exercises: make([]exerciseSummary, 0, len(list))}
	for _, ex := range list {
		out.Exercises = append(out.Exercises, exerciseSummary{
			ID:            ex.ID,
			Title:         ex.Title,
			Objective:     ex.Objective,
			Difficulty:    ex.Difficulty,
			EstimatedTime: ex.EstimatedTime,
			Kind:          string(ex.Validation.Kind),
		})
	}
	out.Total = len(out.Exercises)
	return nil, out, nil
}

func (s *Server) handleAnalyze(_ context.Context, _ *sdkmcp.CallToolRequest, input analyzeInput) (*sdkmcp.CallToolResult, analyzeOutput, error) {
	g := input.Graph
	report, err := s.svc.Analyze(&g, nil)
	if err != nil {
		return nil, analyzeOutput{}, fmt.Errorf("analyze: %w", err)
	}

	aps := make([]string, 0, len(report.Bridges.ArticulationPoints))
	for _, ap := range report.Bridges.ArticulationPoints {
		aps = append(aps, ap.ID)
	}
	b := report.HealthBreakdown
	return nil, analyzeOutput{
		HealthScore:        report.HealthScore,
		Connectivity:       b.Connectivity,
		Components:         b.Components,
		Reachability:       b.Reachability,
		Fragility:          b.Fragility,
		TotalNodes:         report.Topology.TotalNodes,
		TotalEdges:         report.Topology.TotalEdges,
		NumComponents:      report.Topology.NumComponents,
		Orphans:            nonNil(report.Topology.OrphanIDs),
		Unreachable:        nonNil(report.Unreachable),
		ArticulationPoints: aps,
		Branching:          nonNil(report.Branching),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
