package mcpserver_test

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowlab/grader/internal/grading"
	"flowlab/grader/internal/mcpserver"
	"flowlab/grader/internal/rules"
)

func connectInMemory(t *testing.T, ctx context.Context) *sdkmcp.ClientSession {
	t.Helper()
	srv := mcpserver.NewServer(grading.New(rules.NewEngine(), nil), "test")

	t1, t2 := sdkmcp.NewInMemoryTransports()
	_, err := srv.MCPServer.Connect(ctx, t1, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s returned error: %v", name, res.Content)

	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			result := make(map[string]any)
			require.NoError(t, json.Unmarshal([]byte(tc.Text), &result), tc.Text)
			return result
		}
	}
	t.Fatalf("no text content in %s result", name)
	return nil
}

func node(id, typ string, x float64) map[string]any {
	return map[string]any{"id": id, "type": typ, "position": map[string]any{"x": x, "y": 0}}
}

func edge(id, source, target string) map[string]any {
	return map[string]any{"id": id, "source": source, "target": target}
}

func firstWorkflow() map[string]any {
	return map[string]any{
		"nodes": []any{node("t", "manual_trigger", 0), node("i", "text_input", 100), node("m", "gpt_model", 200)},
		"edges": []any{edge("e1", "t", "i"), edge("e2", "i", "m")},
	}
}

func TestServer_ToolDiscovery(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"validate_workflow", "list_exercises", "analyze_workflow"}, names)
}

func TestValidateWorkflow_Exercise(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	out := callTool(t, ctx, session, "validate_workflow", map[string]any{
		"graph":       firstWorkflow(),
		"exercise_id": "first_workflow",
	})
	assert.Equal(t, true, out["isValid"])
	assert.Equal(t, 100.0, out["score"])
	assert.Equal(t, "node_count", out["kind"])
}

func TestValidateWorkflow_InlineRule(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	out := callTool(t, ctx, session, "validate_workflow", map[string]any{
		"graph": firstWorkflow(),
		"rule":  map[string]any{"kind": "bogus"},
	})
	assert.Equal(t, false, out["isValid"])
	assert.Equal(t, "Unknown validation type", out["message"])
}

func TestValidateWorkflow_UnknownExercise(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "validate_workflow",
		Arguments: map[string]any{"graph": firstWorkflow(), "exercise_id": "nope"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListExercises(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	out := callTool(t, ctx, session, "list_exercises", map[string]any{})
	assert.Equal(t, 5.0, out["total"])

	out = callTool(t, ctx, session, "list_exercises", map[string]any{"difficulty": "intermediate"})
	assert.Equal(t, 2.0, out["total"])
	first := out["exercises"].([]any)[0].(map[string]any)
	assert.Equal(t, "conditional_workflow", first["id"])
}

func TestAnalyzeWorkflow(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx)

	out := callTool(t, ctx, session, "analyze_workflow", map[string]any{"graph": firstWorkflow()})
	assert.Equal(t, 3.0, out["total_nodes"])
	assert.Equal(t, 1.0, out["num_components"])
	assert.Equal(t, []any{"i"}, out["articulation_points"])
}
