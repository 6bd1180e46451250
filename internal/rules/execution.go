package rules

import (
	"context"
	"fmt"
	"strings"

	"flowlab/grader/internal/graph"
)

// validateExecution: executable structure (+50), required configuration
// (+30), dry run (+20)
func (e *Engine) validateExecution(ctx context.Context, s *graph.Snapshot, p params, card *scorecard) error {
	required, hasRequired, err := p.StringListMap("requiredFields")
	if err != nil {
		return err
	}

	if graph.HasValidStructure(s) {
		card.pass(50, "Workflow is executable")
	} else {
		card.fail("Workflow cannot be executed", "Check node configurations and connections")
	}

	if hasRequired {
		if missing := graph.MissingConfig(s, required); len(missing) == 0 {
			card.pass(30, "All nodes are properly configured")
		} else {
			card.fail(
				"Missing node configuration: "+formatMissing(missing),
				"Complete node configurations before testing",
			)
		}
	} else {
		card.placeholder(30, "required node configuration")
	}

	if e.executor == nil {
		card.placeholder(20, "simulated execution")
		return nil
	}
	report, err := e.executor.DryRun(ctx, s)
	if err != nil {
		return fmt.Errorf("dry run: %w", err)
	}
	if report.Succeeded {
		card.pass(20, "Dry run completed successfully")
	} else {
		problem := "Dry run failed"
		if len(report.Errors) > 0 {
			problem += ": " + strings.Join(report.Errors, "; ")
		}
		card.fail(problem, "Fix the reported errors and run the workflow again")
	}
	return nil
}

func formatMissing(missing []graph.MissingField) string {
	parts := make([]string, 0, len(missing))
	for _, m := range missing {
		parts = append(parts, m.NodeID+"."+m.Field)
	}
	return strings.Join(parts, ", ")
}
