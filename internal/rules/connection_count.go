package rules

import (
	"fmt"

	"flowlab/grader/internal/graph"
)

// validateConnectionCount: minConnections (+50), sequential flow (+30),
// no disconnected nodes (+20)
func (e *Engine) validateConnectionCount(s *graph.Snapshot, p params, card *scorecard) error {
	edges := s.LiveEdgeCount()

	minConns, hasMin, err := p.Int("minConnections")
	if err != nil {
		return err
	}
	sequential, err := p.Bool("sequentialFlow")
	if err != nil {
		return err
	}
	strict, err := p.Bool("strictSequentialFlow")
	if err != nil {
		return err
	}

	if hasMin && minConns > 0 {
		if edges < minConns {
			card.fail(
				fmt.Sprintf("You have %d connections, but need at least %d", edges, minConns),
				"Connect more nodes to create a complete workflow",
			)
		} else {
			card.pass(50, fmt.Sprintf("Good! You have sufficient connections (%d)", edges))
		}
	}

	if sequential || strict {
		if problem := sequenceProblem(s, strict); problem == "" {
			card.pass(30, "Perfect sequential flow from start to finish")
		} else {
			card.fail(problem, "Ensure nodes are connected in a logical sequence")
		}
	}

	if disconnected := graph.DisconnectedNodes(s); len(disconnected) == 0 {
		card.pass(20, "All nodes are properly connected")
	} else {
		card.fail(
			fmt.Sprintf("%d nodes are not connected", len(disconnected)),
			"Connect all nodes to ensure proper data flow",
		)
	}
	return nil
}

// sequenceProblem describes why the flow is not sequential, or returns ""
func sequenceProblem(s *graph.Snapshot, strict bool) string {
	if !s.HasCategory(graph.CategoryTrigger) {
		return "Workflow has no trigger node to start the flow"
	}
	if !strict {
		if graph.IsSequentialFlow(s) {
			return ""
		}
		return "No connection leaves the trigger node"
	}
	if unreachable := graph.UnreachableFromTriggers(s); len(unreachable) > 0 {
		return fmt.Sprintf("%d nodes cannot be reached from a trigger", len(unreachable))
	}
	return ""
}
