package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowlab/grader/internal/graph"
)

func TestNodeCount_MaxExceeded(t *testing.T) {
	g := quickGraph(
		[]string{"t:manual_trigger", "a:gpt_model", "b:text_filter"},
		[][2]string{{"t", "a"}, {"a", "b"}},
	)
	r := NewEngine().Validate(g, rule(KindNodeCount, map[string]any{"minNodes": 2, "maxNodes": 2}))

	assert.Equal(t, 50, r.Score)
	assert.Equal(t, "Workflow needs improvement", r.Message)
	want := []string{
		"✓ Good! You have the required number of nodes (3)",
		"You have 3 nodes, but should have at most 2",
		"✓ Great workflow structure!",
	}
	if diff := cmp.Diff(want, r.Feedback); diff != "" {
		t.Errorf("feedback (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Consider removing unnecessary nodes for a cleaner workflow"}, r.Suggestions)
}

func TestNodeCount_FeedbackOrder(t *testing.T) {
	g := quickGraph([]string{"a:text_filter"}, nil)
	r := NewEngine().Validate(g, rule(KindNodeCount, map[string]any{
		"minNodes":      3,
		"requiredTypes": []any{"trigger", "ai"},
	}))

	assert.Equal(t, 0, r.Score)
	assert.Equal(t, []string{
		"You have 1 nodes, but need at least 3",
		"Missing required node types: trigger, ai",
		"Workflow has no trigger node and no connections",
	}, r.Feedback)
	assert.Equal(t, []string{
		"Add 2 more nodes to complete the exercise",
		"Add nodes of type: trigger, ai",
		"Ensure your workflow has a clear start (trigger) and logical flow",
	}, r.Suggestions)
}

func TestNodeCount_ClampsAtZero(t *testing.T) {
	g := quickGraph([]string{"a:text_filter", "b:text_filter"}, nil)
	r := NewEngine().Validate(g, rule(KindNodeCount, map[string]any{"maxNodes": 1}))
	assert.Equal(t, 0, r.Score)
}

func TestNodeCount_ZeroMinNodesAwardsNothing(t *testing.T) {
	g := quickGraph([]string{"t:manual_trigger", "a:text_filter"}, [][2]string{{"t", "a"}})
	r := NewEngine().Validate(g, rule(KindNodeCount, map[string]any{"minNodes": 0}))
	assert.Equal(t, 20, r.Score)
}

func TestConnectionCount_Complete(t *testing.T) {
	g := quickGraph(
		[]string{"t:manual_trigger", "a:gpt_model", "b:text_filter"},
		[][2]string{{"t", "a"}, {"a", "b"}},
	)
	r := NewEngine().Validate(g, rule(KindConnectionCount, map[string]any{
		"minConnections": 2.0, // JSON numbers decode as float64
		"sequentialFlow": true,
	}))
	assert.Equal(t, 100, r.Score)
	assert.True(t, r.IsValid)
	assert.Equal(t, "Well done!", r.Message)
}

func TestConnectionCount_LenientVersusStrict(t *testing.T) {
	g := quickGraph(
		[]string{"t:manual_trigger", "a:gpt_model", "b:text_input", "c:text_filter"},
		[][2]string{{"t", "a"}, {"b", "c"}},
	)
	e := NewEngine()

	lenient := e.Validate(g, rule(KindConnectionCount, map[string]any{"minConnections": 2, "sequentialFlow": true}))
	assert.Equal(t, 100, lenient.Score)

	strict := e.Validate(g, rule(KindConnectionCount, map[string]any{"minConnections": 2, "strictSequentialFlow": true}))
	assert.Equal(t, 70, strict.Score)
	assert.Contains(t, strict.Feedback, "2 nodes cannot be reached from a trigger")
	assert.Contains(t, strict.Suggestions, "Ensure nodes are connected in a logical sequence")
}

func TestConnectionCount_NoTriggerAndDisconnected(t *testing.T) {
	g := quickGraph([]string{"a:text_input", "b:text_filter", "c:gpt_model"}, [][2]string{{"a", "b"}})
	r := NewEngine().Validate(g, rule(KindConnectionCount, map[string]any{"minConnections": 2, "sequentialFlow": true}))

	assert.Equal(t, 0, r.Score)
	assert.Equal(t, []string{
		"You have 1 connections, but need at least 2",
		"Workflow has no trigger node to start the flow",
		"1 nodes are not connected",
	}, r.Feedback)
	assert.Equal(t, []string{
		"Connect more nodes to create a complete workflow",
		"Ensure nodes are connected in a logical sequence",
		"Connect all nodes to ensure proper data flow",
	}, r.Suggestions)
}

func TestNodeType_AllGood(t *testing.T) {
	g := quickGraph([]string{"t:manual_trigger", "m:gpt_model"}, [][2]string{{"t", "m"}})
	r := NewEngine().Validate(g, rule(KindNodeType, map[string]any{
		"requiredTypes":  []any{"trigger", "ai"},
		"forbiddenTypes": []any{"http"},
	}))
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, []string{
		"✓ All required node types are present",
		"✓ AI models are properly configured",
	}, r.Feedback)
}

func TestNodeType_ForbiddenPenalty(t *testing.T) {
	g := quickGraph([]string{"t:manual_trigger", "h:http_request"}, [][2]string{{"t", "h"}})
	r := NewEngine().Validate(g, rule(KindNodeType, map[string]any{
		"requiredTypes":  []any{"ai"},
		"forbiddenTypes": []any{"http", "merge"},
	}))
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, "Check your node types and configurations", r.Message)
	assert.Contains(t, r.Feedback, "Remove forbidden node types: http")
	assert.Contains(t, r.Suggestions, "This exercise should not use certain node types")
}

func TestNodeType_UnfedAINode(t *testing.T) {
	g := quickGraph([]string{"m:gpt_model"}, nil)
	r := NewEngine().Validate(g, rule(KindNodeType, map[string]any{"requiredTypes": []any{"ai"}}))
	assert.Equal(t, 60, r.Score)
	assert.Contains(t, r.Feedback, "1 AI nodes have no input connection")
}

func TestDataFlow_PlaceholderPolicy(t *testing.T) {
	g := quickGraph([]string{"t:manual_trigger", "c:try_catch"}, [][2]string{{"t", "c"}})

	granted := NewEngine().Validate(g, rule(KindDataFlow, nil))
	assert.Equal(t, 100, granted.Score)
	assert.Contains(t, granted.Feedback,
		"NotImplemented: data type compatibility between connected nodes is not checked")

	withheld := NewEngine(WithStubPolicy(StubWithhold)).Validate(g, rule(KindDataFlow, nil))
	assert.Equal(t, 70, withheld.Score)
	assert.False(t, withheld.IsValid)
	assert.Contains(t, withheld.Feedback,
		"NotImplemented: data type compatibility between connected nodes is not checked")
}

func TestDataFlow_BackwardAndNoErrorHandling(t *testing.T) {
	g := quickGraph([]string{"m:gpt_model", "t:manual_trigger"}, [][2]string{{"t", "m"}})
	r := NewEngine().Validate(g, rule(KindDataFlow, nil))
	assert.Equal(t, 50, r.Score)
	assert.Equal(t, []string{
		"Ensure data flows from left to right (inputs to outputs)",
		"Consider adding error handling for robust workflows",
	}, r.Suggestions)
}

func TestDanglingEdgeEarnsNoConnectionPoints(t *testing.T) {
	g := quickGraph([]string{"t:manual_trigger"}, [][2]string{{"t", "ghost"}})
	e := NewEngine()

	r := e.Validate(g, rule(KindConnectionCount, map[string]any{"minConnections": 1}))
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, []string{
		"You have 0 connections, but need at least 1",
		"1 nodes are not connected",
	}, r.Feedback)

	r = e.Validate(g, rule(KindWorkflowExecution, nil))
	assert.Equal(t, 50, r.Score)
	assert.False(t, r.IsValid)
	assert.Contains(t, r.Feedback, "Workflow cannot be executed")

	r = e.Validate(g, rule(KindNodeCount, map[string]any{"minNodes": 1, "requiredTypes": []any{"trigger"}}))
	assert.Equal(t, 80, r.Score)
	assert.Contains(t, r.Feedback, "Workflow has no connections")

	r = e.Validate(g, rule(KindDataFlow, nil))
	assert.Contains(t, r.Feedback, "1 connections point to missing nodes")
	assert.NotContains(t, r.Feedback, "✓ Data flows in the correct direction")
}

func TestDataFlow_OptimizationChecks(t *testing.T) {
	g := quickGraph([]string{"t:manual_trigger", "c:try_catch"}, [][2]string{{"t", "c"}, {"t", "c"}})
	e := NewEngine(WithOptimizationCheck(DuplicateConnections))

	r := e.Validate(g, rule(KindDataFlow, nil))
	assert.Equal(t, 80, r.Score)
	assert.Contains(t, r.Feedback, "Found 1 optimization opportunities")
	assert.Equal(t, []string{"Remove duplicate connection t -> c"}, r.Suggestions)
}

func TestDeadEnds(t *testing.T) {
	s := graph.NewSnapshot(quickGraph(
		[]string{"t:manual_trigger", "f:text_filter", "n:notification"},
		[][2]string{{"t", "f"}, {"t", "n"}},
	))
	assert.Equal(t, []string{"Node f produces output nothing consumes"}, DeadEnds(s))
}

type fakeExecutor struct {
	report ExecutionReport
	err    error
	calls  int
}

func (f *fakeExecutor) DryRun(ctx context.Context, s *graph.Snapshot) (ExecutionReport, error) {
	f.calls++
	return f.report, f.err
}

func TestExecution_Placeholders(t *testing.T) {
	g := quickGraph([]string{"t:manual_trigger", "a:text_filter"}, [][2]string{{"t", "a"}})

	r := NewEngine().Validate(g, rule(KindWorkflowExecution, nil))
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, []string{
		"✓ Workflow is executable",
		"NotImplemented: required node configuration is not checked",
		"NotImplemented: simulated execution is not checked",
	}, r.Feedback)

	r = NewEngine(WithStubPolicy(StubWithhold)).Validate(g, rule(KindWorkflowExecution, nil))
	assert.Equal(t, 50, r.Score)
	assert.Equal(t, "Fix execution issues", r.Message)
}

func TestExecution_RequiredFields(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			{ID: "t", Type: "manual_trigger"},
			{ID: "h", Type: "http_request", Position: graph.Position{X: 100}, Data: map[string]any{"method": "GET"}},
		},
		Edges: []graph.Edge{{Source: "t", Target: "h"}},
	}
	r := NewEngine().Validate(g, rule(KindWorkflowExecution, map[string]any{
		"requiredFields": map[string]any{"http_request": []any{"url", "method"}},
	}))
	assert.Equal(t, 70, r.Score)
	assert.Contains(t, r.Feedback, "Missing node configuration: h.url")
	assert.Contains(t, r.Suggestions, "Complete node configurations before testing")
}

func TestExecution_WithExecutor(t *testing.T) {
	g := quickGraph([]string{"t:manual_trigger", "a:text_filter"}, [][2]string{{"t", "a"}})
	c := rule(KindWorkflowExecution, map[string]any{"requiredFields": map[string]any{}})

	ok := &fakeExecutor{report: ExecutionReport{Succeeded: true}}
	r := NewEngine(WithExecutor(ok)).Validate(g, c)
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, 1, ok.calls)
	assert.Contains(t, r.Feedback, "✓ Dry run completed successfully")
	for _, line := range r.Feedback {
		assert.NotContains(t, line, NotImplementedPrefix)
	}

	failing := &fakeExecutor{report: ExecutionReport{Errors: []string{"node a: timeout"}}}
	r = NewEngine(WithExecutor(failing)).Validate(g, c)
	assert.Equal(t, 80, r.Score)
	assert.Contains(t, r.Feedback, "Dry run failed: node a: timeout")

	broken := &fakeExecutor{err: errors.New("sandbox unavailable")}
	r = quietEngine(WithExecutor(broken)).Validate(g, c)
	assert.Equal(t, failureResult(), r)
}

func TestCustom_AllFlags(t *testing.T) {
	r := NewEngine().Validate(sampleGraphs["branching"], sampleRules[6])
	assert.Equal(t, 100, r.Score)
	assert.Len(t, r.Feedback, 4)
	assert.Empty(t, r.Suggestions)
}

func TestCustom_UnknownFlagsIgnored(t *testing.T) {
	r := NewEngine().Validate(sampleGraphs["chain"], rule(KindCustom, map[string]any{
		"hasRetries": true,
		"hasLogging": true,
	}))
	assert.Equal(t, 0, r.Score)
	assert.Empty(t, r.Feedback)
	assert.Equal(t, "Complete custom requirements", r.Message)
}

func TestCustom_Expressions(t *testing.T) {
	c := rule(KindCustom, map[string]any{
		"hasErrorHandling": true,
		"expressions": []any{
			map[string]any{
				"expr":   `categories["ai"] >= 1 && forwardFlow`,
				"points": 50,
				"passed": "AI step in place",
			},
			map[string]any{
				"expr":       `any(nodes, {.type contains "retry"})`,
				"points":     30,
				"feedback":   "No retry step found",
				"suggestion": "Add a retry node after the HTTP request",
			},
		},
	})

	r := NewEngine().Validate(sampleGraphs["chain"], c)
	assert.Equal(t, 50, r.Score)
	assert.Equal(t, []string{
		"Workflow has no error handling nodes",
		"✓ AI step in place",
		"No retry step found",
	}, r.Feedback)
	assert.Equal(t, []string{
		"Add try-catch nodes for error handling",
		"Add a retry node after the HTTP request",
	}, r.Suggestions)

	g := quickGraph(
		[]string{"t:manual_trigger", "m:gpt_model", "r:http_retry", "x:error_handler"},
		[][2]string{{"t", "m"}, {"m", "r"}, {"r", "x"}},
	)
	r = NewEngine().Validate(g, c)
	assert.Equal(t, 100, r.Score)
	assert.True(t, r.IsValid)
}

func TestCustom_BadExpressions(t *testing.T) {
	e := quietEngine()
	for _, src := range []string{"nodes +", "nodeCount", "unknownFact > 1"} {
		r := e.Validate(sampleGraphs["chain"], rule(KindCustom, map[string]any{
			"expressions": []any{map[string]any{"expr": src, "points": 10}},
		}))
		assert.Equal(t, failureResult(), r, src)
	}

	_, err := CompileExpression("nodeCount")
	assert.ErrorIs(t, err, ErrBadParameter)
	_, err = CompileExpression("edgeCount > 0 and disconnected == 0")
	require.NoError(t, err)
}

func TestFacts(t *testing.T) {
	facts := Facts(graph.NewSnapshot(sampleGraphs["branching"]))
	assert.Equal(t, 6, facts["nodeCount"])
	assert.Equal(t, true, facts["hasBranching"])
	assert.Equal(t, 0, facts["disconnected"])
	cats := facts["categories"].(map[string]int)
	assert.Equal(t, 1, cats["trigger"])
	assert.Equal(t, 0, cats["ai"])
	assert.Equal(t, 2, cats["other"]) // email_send and try_catch
}
