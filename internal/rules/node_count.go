package rules

import (
	"fmt"
	"strings"

	"flowlab/grader/internal/graph"
)

// validateNodeCount: minNodes (+40), maxNodes (-10 over), requiredTypes
// (+40), valid structure (+20)
func (e *Engine) validateNodeCount(s *graph.Snapshot, p params, card *scorecard) error {
	count := len(s.Nodes)

	minNodes, hasMin, err := p.Int("minNodes")
	if err != nil {
		return err
	}
	maxNodes, hasMax, err := p.Int("maxNodes")
	if err != nil {
		return err
	}
	required, hasRequired, err := p.Strings("requiredTypes")
	if err != nil {
		return err
	}

	if hasMin && minNodes > 0 {
		if count < minNodes {
			card.fail(
				fmt.Sprintf("You have %d nodes, but need at least %d", count, minNodes),
				fmt.Sprintf("Add %d more nodes to complete the exercise", minNodes-count),
			)
		} else {
			card.pass(40, fmt.Sprintf("Good! You have the required number of nodes (%d)", count))
		}
	}

	if hasMax && count > maxNodes {
		card.penalize(10,
			fmt.Sprintf("You have %d nodes, but should have at most %d", count, maxNodes),
			"Consider removing unnecessary nodes for a cleaner workflow",
		)
	}

	if hasRequired {
		if missing := missingCategories(s, required); len(missing) == 0 {
			card.pass(40, "Excellent! You have all required node types")
		} else {
			list := strings.Join(missing, ", ")
			card.fail("Missing required node types: "+list, "Add nodes of type: "+list)
		}
	}

	if graph.HasValidStructure(s) {
		card.pass(20, "Great workflow structure!")
	} else {
		card.fail(
			structureProblem(s),
			"Ensure your workflow has a clear start (trigger) and logical flow",
		)
	}
	return nil
}

// missingCategories returns the wanted categories no node classifies as,
// in the order given
func missingCategories(s *graph.Snapshot, wanted []string) []string {
	present := s.CategorySet()
	var missing []string
	for _, w := range wanted {
		if !present[graph.Category(w)] {
			missing = append(missing, w)
		}
	}
	return missing
}

// presentCategories returns the listed categories that some node classifies as
func presentCategories(s *graph.Snapshot, listed []string) []string {
	present := s.CategorySet()
	var found []string
	for _, l := range listed {
		if present[graph.Category(l)] {
			found = append(found, l)
		}
	}
	return found
}

func structureProblem(s *graph.Snapshot) string {
	switch {
	case !s.HasCategory(graph.CategoryTrigger) && s.LiveEdgeCount() == 0:
		return "Workflow has no trigger node and no connections"
	case !s.HasCategory(graph.CategoryTrigger):
		return "Workflow has no trigger node"
	default:
		return "Workflow has no connections"
	}
}
