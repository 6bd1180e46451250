package rules

import "fmt"

// PassingScore is the lowest score that counts as valid
const PassingScore = 80

// NotImplementedPrefix starts the feedback line of every placeholder check
const NotImplementedPrefix = "NotImplemented:"

// Result is the outcome of validating one graph against one rule.
// Slices are never nil.
type Result struct {
	IsValid     bool     `json:"isValid" yaml:"isValid"`
	Message     string   `json:"message" yaml:"message"`
	Score       int      `json:"score" yaml:"score"`
	Feedback    []string `json:"feedback" yaml:"feedback"`
	Suggestions []string `json:"suggestions" yaml:"suggestions"`
	Hints       []string `json:"hints" yaml:"hints"`
}

// messages shown when a result is not valid
var failMessages = map[Kind]string{
	KindNodeCount:         "Workflow needs improvement",
	KindConnectionCount:   "Improve node connections",
	KindNodeType:          "Check your node types and configurations",
	KindDataFlow:          "Improve data flow design",
	KindWorkflowExecution: "Fix execution issues",
	KindCustom:            "Complete custom requirements",
}

func unknownKindResult() Result {
	return Result{
		Message:     "Unknown validation type",
		Feedback:    []string{"Unknown validation type"},
		Suggestions: []string{"Please contact support"},
		Hints:       []string{},
	}
}

func failureResult() Result {
	return Result{
		Message:     "Validation error occurred",
		Feedback:    []string{"An error occurred during validation"},
		Suggestions: []string{"Please try again or contact support"},
		Hints:       []string{},
	}
}

// scorecard accumulates point contributions and feedback for one validation
type scorecard struct {
	score       int
	feedback    []string
	suggestions []string
	stubs       StubPolicy
}

func newScorecard(stubs StubPolicy) *scorecard {
	return &scorecard{
		feedback:    []string{},
		suggestions: []string{},
		stubs:       stubs,
	}
}

// pass awards points for a satisfied check
func (s *scorecard) pass(points int, line string) {
	s.score += points
	if line != "" {
		s.feedback = append(s.feedback, "✓ "+line)
	}
}

// fail records an unsatisfied check: what is wrong, then what to do
func (s *scorecard) fail(feedback, suggestion string) {
	s.feedback = append(s.feedback, feedback)
	s.suggestions = append(s.suggestions, suggestion)
}

// penalize is fail with a point deduction
func (s *scorecard) penalize(points int, feedback, suggestion string) {
	s.score -= points
	s.fail(feedback, suggestion)
}

// placeholder records a check that is not really performed. Points depend
// on the stub policy; the feedback line is always added.
func (s *scorecard) placeholder(points int, check string) {
	if s.stubs != StubWithhold {
		s.score += points
	}
	s.feedback = append(s.feedback, fmt.Sprintf("%s %s is not checked", NotImplementedPrefix, check))
}

func (s *scorecard) result(c Criteria) Result {
	score := s.score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	r := Result{
		IsValid:     score >= PassingScore,
		Score:       score,
		Feedback:    s.feedback,
		Suggestions: s.suggestions,
		Hints:       []string{},
	}
	if r.IsValid {
		r.Message = c.Message
		if r.Message == "" {
			r.Message = "Validation passed"
		}
		return r
	}

	r.Message = failMessages[c.Kind]
	if len(c.Hints) > 0 {
		r.Hints = append(r.Hints, c.Hints...)
	}
	return r
}
