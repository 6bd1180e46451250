package rules

import (
	"fmt"

	"flowlab/grader/internal/graph"
)

// validateDataFlow: forward flow (+30), type compatibility placeholder
// (+30), error handling (+20), no optimization opportunities (+20)
func (e *Engine) validateDataFlow(s *graph.Snapshot, _ params, card *scorecard) error {
	backward, dangling := graph.BackwardEdges(s), graph.DanglingEdges(s)
	switch {
	case len(backward) == 0 && len(dangling) == 0:
		card.pass(30, "Data flows in the correct direction")
	case len(dangling) == 0:
		card.fail(
			fmt.Sprintf("%d connections flow right to left", len(backward)),
			"Ensure data flows from left to right (inputs to outputs)",
		)
	default:
		card.fail(
			fmt.Sprintf("%d connections point to missing nodes", len(dangling)),
			"Remove connections to deleted nodes and ensure data flows from left to right",
		)
	}

	card.placeholder(30, "data type compatibility between connected nodes")

	if graph.HasErrorHandlingNodes(s) {
		card.pass(20, "Good error handling implementation")
	} else {
		card.fail(
			"Workflow has no error handling nodes",
			"Consider adding error handling for robust workflows",
		)
	}

	var opportunities []string
	for _, check := range e.optimizations {
		opportunities = append(opportunities, check(s)...)
	}
	if len(opportunities) == 0 {
		card.pass(20, "Workflow is well optimized")
	} else {
		card.feedback = append(card.feedback,
			fmt.Sprintf("Found %d optimization opportunities", len(opportunities)))
		card.suggestions = append(card.suggestions, opportunities...)
	}
	return nil
}

// DuplicateConnections flags repeated edges between the same pair of ports
func DuplicateConnections(s *graph.Snapshot) []string {
	type port struct{ source, target, sourceHandle, targetHandle string }
	seen := make(map[port]bool)
	reported := make(map[port]bool)
	var out []string
	for _, edge := range s.Edges {
		if !s.IsLive(edge) {
			continue
		}
		k := port{edge.Source, edge.Target, edge.SourceHandle, edge.TargetHandle}
		if seen[k] && !reported[k] {
			reported[k] = true
			out = append(out, fmt.Sprintf("Remove duplicate connection %s -> %s", edge.Source, edge.Target))
		}
		seen[k] = true
	}
	return out
}

// DeadEnds flags data, condition and merge nodes that have inputs but no outputs
func DeadEnds(s *graph.Snapshot) []string {
	var out []string
	for _, n := range s.Nodes {
		if len(s.InAdj[n.ID]) == 0 || len(s.OutAdj[n.ID]) > 0 {
			continue
		}
		switch s.CategoryOf(n.ID) {
		case graph.CategoryData, graph.CategoryCondition, graph.CategoryMerge:
			out = append(out, fmt.Sprintf("Node %s produces output nothing consumes", n.ID))
		}
	}
	return out
}
