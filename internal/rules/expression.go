package rules

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"flowlab/grader/internal/graph"
)

// ExpressionCheck is an authored boolean condition over graph facts, e.g.
//
//	expr: 'any(nodes, {.type contains "retry"})'
//	points: 30
type ExpressionCheck struct {
	Expr       string `json:"expr" yaml:"expr"`
	Points     int    `json:"points" yaml:"points"`
	Passed     string `json:"passed,omitempty" yaml:"passed,omitempty"`
	Feedback   string `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

func parseExpressionChecks(p params) ([]ExpressionCheck, error) {
	items, _, err := p.Maps("expressions")
	if err != nil {
		return nil, err
	}
	checks := make([]ExpressionCheck, 0, len(items))
	for i, item := range items {
		ip := params(item)
		src, ok, err := ip.String("expr")
		if err != nil {
			return nil, fmt.Errorf("expressions[%d]: %w", i, err)
		}
		if !ok || src == "" {
			return nil, fmt.Errorf("%w: expressions[%d] has no expr", ErrBadParameter, i)
		}
		c := ExpressionCheck{Expr: src}
		if c.Points, _, err = ip.Int("points"); err != nil {
			return nil, fmt.Errorf("expressions[%d]: %w", i, err)
		}
		for key, dst := range map[string]*string{
			"passed": &c.Passed, "feedback": &c.Feedback, "suggestion": &c.Suggestion,
		} {
			if *dst, _, err = ip.String(key); err != nil {
				return nil, fmt.Errorf("expressions[%d]: %w", i, err)
			}
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func evalExpressionChecks(s *graph.Snapshot, checks []ExpressionCheck, card *scorecard) error {
	env := Facts(s)
	for _, c := range checks {
		program, err := CompileExpression(c.Expr)
		if err != nil {
			return err
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("evaluating %q: %w", c.Expr, err)
		}
		ok, isBool := out.(bool)
		if !isBool {
			return fmt.Errorf("%w: %q returned %T", ErrBadParameter, c.Expr, out)
		}

		if ok {
			card.pass(c.Points, c.Passed)
			continue
		}
		feedback := c.Feedback
		if feedback == "" {
			feedback = "Requirement not met: " + c.Expr
		}
		suggestion := c.Suggestion
		if suggestion == "" {
			suggestion = "Review the exercise requirements"
		}
		card.fail(feedback, suggestion)
	}
	return nil
}

// CompileExpression type-checks src against the graph facts environment.
// The result must be boolean.
func CompileExpression(src string) (*vm.Program, error) {
	program, err := expr.Compile(src, expr.Env(Facts(graph.NewSnapshot(nil))), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: compiling %q: %v", ErrBadParameter, src, err)
	}
	return program, nil
}

// Facts is the read-only environment expressions are evaluated against
func Facts(s *graph.Snapshot) map[string]any {
	nodes := make([]map[string]any, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		data := n.Data
		if data == nil {
			data = map[string]any{}
		}
		nodes = append(nodes, map[string]any{
			"id":       n.ID,
			"type":     n.Type,
			"category": string(s.CategoryOf(n.ID)),
			"x":        n.Position.X,
			"y":        n.Position.Y,
			"data":     data,
		})
	}

	edges := make([]map[string]any, 0, s.LiveEdgeCount())
	for _, e := range s.Edges {
		if !s.IsLive(e) {
			continue
		}
		edges = append(edges, map[string]any{
			"id":           e.ID,
			"source":       e.Source,
			"target":       e.Target,
			"sourceHandle": e.SourceHandle,
			"targetHandle": e.TargetHandle,
		})
	}

	categories := map[string]int{}
	for _, c := range []graph.Category{
		graph.CategoryTrigger, graph.CategoryAI, graph.CategoryData, graph.CategoryHTTP,
		graph.CategoryCondition, graph.CategoryMerge, graph.CategoryOther,
	} {
		categories[string(c)] = 0
	}
	for _, n := range s.Nodes {
		categories[string(s.CategoryOf(n.ID))]++
	}

	return map[string]any{
		"nodes":            nodes,
		"edges":            edges,
		"nodeCount":        len(s.Nodes),
		"edgeCount":        s.LiveEdgeCount(),
		"danglingEdges":    len(graph.DanglingEdges(s)),
		"categories":       categories,
		"hasTrigger":       s.HasCategory(graph.CategoryTrigger),
		"hasBranching":     graph.HasBranchingLogic(s),
		"hasCondition":     graph.HasConditionNodes(s),
		"hasMerge":         graph.HasMergeNodes(s),
		"hasErrorHandling": graph.HasErrorHandlingNodes(s),
		"forwardFlow":      graph.HasForwardDataFlow(s),
		"disconnected":     len(graph.DisconnectedNodes(s)),
	}
}
