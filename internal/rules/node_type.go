package rules

import (
	"fmt"
	"strings"

	"flowlab/grader/internal/graph"
)

// validateNodeType: requiredTypes (+60), forbiddenTypes (+20 / -20),
// AI nodes fed by an input (+20)
func (e *Engine) validateNodeType(s *graph.Snapshot, p params, card *scorecard) error {
	required, hasRequired, err := p.Strings("requiredTypes")
	if err != nil {
		return err
	}
	forbidden, hasForbidden, err := p.Strings("forbiddenTypes")
	if err != nil {
		return err
	}

	if hasRequired {
		if missing := missingCategories(s, required); len(missing) == 0 {
			card.pass(60, "All required node types are present")
		} else {
			list := strings.Join(missing, ", ")
			card.fail("Missing required types: "+list, "Add nodes of type: "+list)
		}
	}

	if hasForbidden {
		if found := presentCategories(s, forbidden); len(found) == 0 {
			card.pass(20, "")
		} else {
			card.penalize(20,
				"Remove forbidden node types: "+strings.Join(found, ", "),
				"This exercise should not use certain node types",
			)
		}
	}

	if unfed := graph.AINodesWithoutInput(s); len(unfed) == 0 {
		card.pass(20, "AI models are properly configured")
	} else {
		card.fail(
			fmt.Sprintf("%d AI nodes have no input connection", len(unfed)),
			"Ensure AI models have proper input connections and configurations",
		)
	}
	return nil
}
