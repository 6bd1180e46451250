package rules

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"flowlab/grader/internal/graph"
	"flowlab/grader/internal/logging"
)

// StubPolicy decides whether placeholder checks award their points
type StubPolicy string

const (
	StubGrant    StubPolicy = "grant"
	StubWithhold StubPolicy = "withhold"
)

// ParseStubPolicy parses "grant" or "withhold"; empty means grant
func ParseStubPolicy(s string) (StubPolicy, error) {
	switch StubPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StubGrant:
		return StubGrant, nil
	case StubWithhold:
		return StubWithhold, nil
	}
	return StubGrant, fmt.Errorf("unknown stub policy %q (want grant or withhold)", s)
}

// ExecutionReport is the outcome of a dry run
type ExecutionReport struct {
	Succeeded bool     `json:"succeeded"`
	Errors    []string `json:"errors,omitempty"`
}

// Executor dry-runs a workflow. An error means the dry run itself could
// not be performed, not that the workflow failed.
type Executor interface {
	DryRun(ctx context.Context, s *graph.Snapshot) (ExecutionReport, error)
}

// OptimizationCheck returns one suggestion per optimization opportunity
type OptimizationCheck func(s *graph.Snapshot) []string

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for evaluation faults
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithExecutor replaces the simulated execution credit with real dry runs
func WithExecutor(x Executor) Option {
	return func(e *Engine) { e.executor = x }
}

// WithStubPolicy sets how placeholder checks are scored
func WithStubPolicy(p StubPolicy) Option {
	return func(e *Engine) { e.stubs = p }
}

// WithOptimizationCheck adds a data_flow optimization heuristic
func WithOptimizationCheck(c OptimizationCheck) Option {
	return func(e *Engine) { e.optimizations = append(e.optimizations, c) }
}

// WithClassifier sets the node type registry used to categorize nodes
func WithClassifier(c *graph.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// Engine validates workflow graphs against rules. It holds configuration
// only and is safe for concurrent use.
type Engine struct {
	logger        *slog.Logger
	executor      Executor
	stubs         StubPolicy
	optimizations []OptimizationCheck
	classifier    *graph.Classifier
}

// NewEngine creates an Engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{stubs: StubGrant}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = graph.DefaultClassifier()
	}
	return e
}

// StubPolicy returns the configured placeholder policy
func (e *Engine) StubPolicy() StubPolicy { return e.stubs }

// Classifier returns the node type registry in use
func (e *Engine) Classifier() *graph.Classifier { return e.classifier }

// Validate scores g against c. It never fails: unknown kinds and internal
// faults produce well-formed results.
func (e *Engine) Validate(g *graph.Graph, c Criteria) Result {
	r, _ := e.ValidateContext(context.Background(), g, c)
	return r
}

// ValidateContext is Validate with a context passed to the executor. The
// error is non-nil only when ctx is already done.
func (e *Engine) ValidateContext(ctx context.Context, g *graph.Graph, c Criteria) (r Result, err error) {
	if err := ctx.Err(); err != nil {
		return failureResult(), err
	}

	defer func() {
		if p := recover(); p != nil {
			e.log().Error("validator panicked",
				"kind", c.Kind, "panic", p, "stack", string(debug.Stack()))
			r = failureResult()
		}
	}()

	snap := graph.NewSnapshotWith(g, e.classifier)
	p := params(c.Parameters)
	card := newScorecard(e.stubs)

	var vErr error
	switch c.Kind {
	case KindNodeCount:
		vErr = e.validateNodeCount(snap, p, card)
	case KindConnectionCount:
		vErr = e.validateConnectionCount(snap, p, card)
	case KindNodeType:
		vErr = e.validateNodeType(snap, p, card)
	case KindDataFlow:
		vErr = e.validateDataFlow(snap, p, card)
	case KindWorkflowExecution:
		vErr = e.validateExecution(ctx, snap, p, card)
	case KindCustom:
		vErr = e.validateCustom(snap, p, card)
	default:
		e.log().Debug("unknown rule kind", "kind", c.Kind)
		return unknownKindResult(), nil
	}

	if vErr != nil {
		e.log().Error("validation fault", "kind", c.Kind, "error", vErr)
		return failureResult(), nil
	}
	return card.result(c), nil
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logging.New("rules")
}
