package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flowlab/grader/internal/catalog"
	"flowlab/grader/internal/grading"
	"flowlab/grader/internal/graph"
	"flowlab/grader/internal/logging"
)

const maxBodyBytes = 4 << 20

// Span names and attribute keys
const (
	SpanValidate = "grader.validate"
	SpanAnalyze  = "grader.analyze"

	AttrKind     = "grader.rule.kind"
	AttrExercise = "grader.exercise.id"
	AttrScore    = "grader.score"
	AttrValid    = "grader.valid"
	AttrNodes    = "grader.graph.nodes"
)

// Server serves the grading API over HTTP
type Server struct {
	svc     *grading.Service
	metrics *Metrics
	tracer  trace.Tracer
	log     *slog.Logger
	started time.Time
}

// Option configures a Server
type Option func(*Server)

// WithTracer replaces the global OpenTelemetry tracer
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithMetrics shares a Metrics set between servers
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server around a grading service
func New(svc *grading.Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		tracer:  otel.Tracer("flowlab/grader/server"),
		log:     logging.New("server"),
		started: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Metrics returns the server's collectors
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the routed, instrumented handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate", s.handleValidate)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /exercises", s.handleExercises)
	mux.HandleFunc("GET /exercises/{id}", s.handleExercise)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	return Cors(observe(s.log, s.metrics, mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Uptime    string            `json:"uptime,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

type analyzeRequest struct {
	Graph        *graph.Graph `json:"graph"`
	HubThreshold int          `json:"hubThreshold,omitempty"`
	TopN         int          `json:"topN,omitempty"`
}

type exerciseList struct {
	Exercises []catalog.Exercise `json:"exercises"`
	Total     int                `json:"total"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req grading.Request
	if !s.decode(w, r, &req) {
		return
	}

	ctx, span := s.tracer.Start(r.Context(), SpanValidate)
	defer span.End()
	if req.Graph != nil {
		span.SetAttributes(attribute.Int(AttrNodes, len(req.Graph.Nodes)))
	}
	if req.ExerciseID != "" {
		span.SetAttributes(attribute.String(AttrExercise, req.ExerciseID))
	}

	out, err := s.svc.Validate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status := http.StatusBadRequest
		if errors.Is(err, grading.ErrUnknownExercise) {
			status = http.StatusNotFound
		}
		s.writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	kind := kindLabel(out.Kind)
	span.SetAttributes(
		attribute.String(AttrKind, string(out.Kind)),
		attribute.Int(AttrScore, out.Result.Score),
		attribute.Bool(AttrValid, out.Result.IsValid),
	)
	span.SetStatus(codes.Ok, "")

	s.metrics.validations.WithLabelValues(kind, strconv.FormatBool(out.Result.IsValid)).Inc()
	s.metrics.scores.WithLabelValues(kind).Observe(float64(out.Result.Score))
	s.metrics.duration.WithLabelValues(kind).Observe(out.Elapsed.Seconds())
	if out.RecordErr != nil {
		s.metrics.recordFails.Inc()
	}

	s.writeJSON(w, http.StatusOK, out.Result)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	_, span := s.tracer.Start(r.Context(), SpanAnalyze)
	defer span.End()

	cfg := graph.DefaultConfig()
	if req.HubThreshold > 0 {
		cfg.HubThreshold = req.HubThreshold
	}
	if req.TopN > 0 {
		cfg.TopN = req.TopN
	}
	report, err := s.svc.Analyze(req.Graph, cfg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	var list []catalog.Exercise
	if level := r.URL.Query().Get("difficulty"); level != "" {
		list = s.svc.Catalog().ByDifficulty(level)
	} else {
		list = s.svc.Catalog().List()
	}
	if list == nil {
		list = []catalog.Exercise{}
	}
	s.writeJSON(w, http.StatusOK, exerciseList{Exercises: list, Total: len(list)})
}

func (s *Server) handleExercise(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ex, ok := s.svc.Catalog().Get(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown exercise %q", id)})
		return
	}
	s.writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "grader",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Details: map[string]string{
			"go_version":  runtime.Version(),
			"exercises":   strconv.Itoa(s.svc.Catalog().Len()),
			"stub_policy": string(s.svc.Engine().StubPolicy()),
		},
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		s.log.Error("encoding response", slog.Any("error", err))
	}
}
