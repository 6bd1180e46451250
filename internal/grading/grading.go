package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flowlab/grader/internal/catalog"
	"flowlab/grader/internal/db"
	"flowlab/grader/internal/graph"
	"flowlab/grader/internal/logging"
	"flowlab/grader/internal/rules"
)

var (
	ErrNoGraph         = errors.New("request has no graph")
	ErrNoRule          = errors.New("request needs a rule or an exercise id")
	ErrUnknownExercise = errors.New("unknown exercise")
)

// Recorder stores attempts. *db.DB satisfies it.
type Recorder interface {
	RecordAttempt(a *db.Attempt) (string, error)
}

// Request asks for one graph to be graded, either against an inline rule
// or against a catalog exercise. Rule wins when both are set.
type Request struct {
	Graph      *graph.Graph    `json:"graph"`
	Rule       *rules.Criteria `json:"rule,omitempty"`
	ExerciseID string          `json:"exerciseId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	WorkflowID string          `json:"workflowId,omitempty"`
}

// Outcome is a graded request
type Outcome struct {
	Result    rules.Result
	Kind      rules.Kind
	Elapsed   time.Duration
	AttemptID string
	// RecordErr is set when grading succeeded but the attempt could not be stored
	RecordErr error
}

// Service ties the engine to the exercise catalog and the attempt log
type Service struct {
	engine   *rules.Engine
	catalog  *catalog.Catalog
	recorder Recorder
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithRecorder records every graded request
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. A nil catalog means the built-in one.
func New(e *rules.Engine, c *catalog.Catalog, opts ...Option) *Service {
	if c == nil {
		c = catalog.Default()
	}
	s := &Service{engine: e, catalog: c, log: logging.New("grading"), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Engine returns the engine used for grading
func (s *Service) Engine() *rules.Engine { return s.engine }

// Catalog returns the exercise catalog
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Rule resolves the rule a request is graded against
func (s *Service) Rule(req Request) (rules.Criteria, error) {
	if req.Rule != nil {
		return *req.Rule, nil
	}
	if req.ExerciseID == "" {
		return rules.Criteria{}, ErrNoRule
	}
	ex, ok := s.catalog.Get(req.ExerciseID)
	if !ok {
		return rules.Criteria{}, fmt.Errorf("%w %q", ErrUnknownExercise, req.ExerciseID)
	}
	return ex.Rule(), nil
}

// Validate grades a request and records the attempt when a Recorder is set.
// Errors are request errors; engine faults come back as failing results.
func (s *Service) Validate(ctx context.Context, req Request) (Outcome, error) {
	if req.Graph == nil {
		return Outcome{}, ErrNoGraph
	}
	rule, err := s.Rule(req)
	if err != nil {
		return Outcome{}, err
	}

	start := s.now()
	res, err := s.engine.ValidateContext(ctx, req.Graph, rule)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Result: res, Kind: rule.Kind, Elapsed: s.now().Sub(start)}

	if s.recorder != nil {
		a := &db.Attempt{
			ExerciseID:  req.ExerciseID,
			UserID:      req.UserID,
			Kind:        string(rule.Kind),
			Score:       res.Score,
			IsValid:     res.IsValid,
			Message:     res.Message,
			Feedback:    res.Feedback,
			Suggestions: res.Suggestions,
			ElapsedMs:   out.Elapsed.Milliseconds(),
		}
		if req.WorkflowID != "" {
			wf := req.WorkflowID
			a.WorkflowID = &wf
		}
		out.AttemptID, out.RecordErr = s.recorder.RecordAttempt(a)
		if out.RecordErr != nil {
			s.log.Warn("record attempt", slog.String("exercise", req.ExerciseID), slog.Any("error", out.RecordErr))
		}
	}

	s.log.Debug("graded",
		slog.String("kind", string(rule.Kind)),
		slog.String("exercise", req.ExerciseID),
		slog.Int("score", res.Score),
		slog.Bool("valid", res.IsValid),
	)
	return out, nil
}

// Analyze builds the structural report of a graph with the engine's classifier
func (s *Service) Analyze(g *graph.Graph, cfg *graph.AnalyzerConfig) (*graph.AnalysisReport, error) {
	if g == nil {
		return nil, ErrNoGraph
	}
	snap := graph.NewSnapshotWith(g, s.engine.Classifier())
	return graph.Analyze(snap, cfg), nil
}
