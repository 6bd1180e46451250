package grading

import (
	"context"

	"golang.org/x/sync/errgroup"

	"flowlab/grader/internal/graph"
	"flowlab/grader/internal/rules"
)

// FileResult is the outcome of grading one graph file. Error is set when
// the file could not be loaded or the request was rejected.
type FileResult struct {
	Path   string        `json:"path"`
	Result *rules.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ValidateFiles grades every graph file with the rule of tmpl, at most
// parallel at a time. Results keep the order of paths. Per-file failures
// are reported in the results; the error is non-nil only when ctx ends
// before all files are graded.
func (s *Service) ValidateFiles(ctx context.Context, paths []string, tmpl Request, parallel int) ([]FileResult, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]FileResult, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = s.validateFile(gCtx, path, tmpl)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (s *Service) validateFile(ctx context.Context, path string, tmpl Request) FileResult {
	fr := FileResult{Path: path}
	gr, err := graph.LoadFile(path)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}

	req := tmpl
	req.Graph = gr
	out, err := s.Validate(ctx, req)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	fr.Result = &out.Result
	return fr
}
