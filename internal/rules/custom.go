package rules

import (
	"flowlab/grader/internal/graph"
)

type customFlag struct {
	key        string
	points     int
	check      func(*graph.Snapshot) bool
	passed     string
	feedback   string
	suggestion string
}

var customFlags = []customFlag{
	{
		key: "hasBranching", points: 30, check: graph.HasBranchingLogic,
		passed:     "Workflow has proper branching logic",
		feedback:   "Workflow has no branching paths",
		suggestion: "Add conditional nodes to create branching paths",
	},
	{
		key: "hasCondition", points: 30, check: graph.HasConditionNodes,
		passed:     "Conditional logic is implemented",
		feedback:   "Workflow has no condition nodes",
		suggestion: "Add condition nodes to control workflow flow",
	},
	{
		key: "hasMerge", points: 20, check: graph.HasMergeNodes,
		passed:     "Branches are properly merged",
		feedback:   "Workflow has no merge nodes",
		suggestion: "Add merge nodes to combine parallel branches",
	},
	{
		key: "hasErrorHandling", points: 20, check: graph.HasErrorHandlingNodes,
		passed:     "Error handling is implemented",
		feedback:   "Workflow has no error handling nodes",
		suggestion: "Add try-catch nodes for error handling",
	},
}

// validateCustom scores only the flags the rule requests, then any
// authored expressions. Unrecognized keys are ignored.
func (e *Engine) validateCustom(s *graph.Snapshot, p params, card *scorecard) error {
	for _, f := range customFlags {
		want, err := p.Bool(f.key)
		if err != nil {
			return err
		}
		if !want {
			continue
		}
		if f.check(s) {
			card.pass(f.points, f.passed)
		} else {
			card.fail(f.feedback, f.suggestion)
		}
	}

	checks, err := parseExpressionChecks(p)
	if err != nil {
		return err
	}
	if len(checks) == 0 {
		return nil
	}
	return evalExpressionChecks(s, checks, card)
}
