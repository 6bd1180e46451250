package format

import (
	"fmt"
	"strings"

	"flowlab/grader/internal/catalog"
	"flowlab/grader/internal/db"
	"flowlab/grader/internal/rules"
)

// ResultTable renders a validation result: a one-row summary followed by a
// table of feedback, suggestion and hint lines.
func ResultTable(m Mode, r rules.Result) string {
	summary := NewTable(m)
	summary.Header("Valid", "Score", "Message")
	summary.Row(BoolMark(r.IsValid), fmt.Sprintf("%d/100", r.Score), r.Message)
	summary.Columns(ColumnConfig{Number: 2, Align: AlignRight})

	lines := NewTable(m)
	lines.Header("", "Detail")
	n := 0
	for _, f := range r.Feedback {
		lines.Row("feedback", f)
		n++
	}
	for _, s := range r.Suggestions {
		lines.Row("suggestion", s)
		n++
	}
	for _, h := range r.Hints {
		lines.Row("hint", h)
		n++
	}
	lines.Columns(ColumnConfig{Number: 2, MaxWidth: 80})

	if n == 0 {
		return summary.String()
	}
	return summary.String() + "\n" + lines.String()
}

// ExerciseTable lists catalog exercises
func ExerciseTable(m Mode, exercises []catalog.Exercise) string {
	tb := NewTable(m)
	tb.Header("ID", "Title", "Difficulty", "Time", "Rule")
	for _, ex := range exercises {
		tb.Row(ex.ID, Truncate(ex.Title, 40), ex.Difficulty, ex.EstimatedTime, string(ex.Validation.Kind))
	}
	tb.Footer("", fmt.Sprintf("%d exercises", len(exercises)), "", "", "")
	return tb.String()
}

// ExerciseDetail renders one exercise with its instructions and hints
func ExerciseDetail(m Mode, ex catalog.Exercise) string {
	tb := NewTable(m)
	tb.Header("Field", "Value")
	tb.Row("id", ex.ID)
	tb.Row("title", ex.Title)
	tb.Row("difficulty", ex.Difficulty)
	if ex.EstimatedTime != "" {
		tb.Row("time", ex.EstimatedTime)
	}
	if ex.Objective != "" {
		tb.Row("objective", ex.Objective)
	}
	if ex.Description != "" {
		tb.Row("description", ex.Description)
	}
	for i, step := range ex.Instructions {
		tb.Row(fmt.Sprintf("step %d", i+1), step)
	}
	for _, h := range ex.Hints {
		tb.Row("hint", h)
	}
	tb.Row("rule", string(ex.Validation.Kind))
	tb.Columns(ColumnConfig{Number: 2, MaxWidth: 80})
	return tb.String()
}

// WorkflowTable lists stored workflows
func WorkflowTable(m Mode, workflows []db.Workflow) string {
	tb := NewTable(m)
	tb.Header("ID", "Name", "Nodes", "Edges", "Updated")
	for _, w := range workflows {
		tb.Row(Truncate(w.ID, 12), Truncate(w.Name, 40), w.NodeCount, w.EdgeCount, FmtMillis(w.UpdatedAt))
	}
	tb.Columns(
		ColumnConfig{Number: 3, Align: AlignRight},
		ColumnConfig{Number: 4, Align: AlignRight},
	)
	return tb.String()
}

// AttemptTable lists recorded attempts, newest first as given
func AttemptTable(m Mode, attempts []db.Attempt) string {
	tb := NewTable(m)
	tb.Header("When", "Exercise", "User", "Score", "Valid", "Took", "Message")
	for _, a := range attempts {
		tb.Row(
			FmtMillis(a.CreatedAt), a.ExerciseID, a.UserID,
			a.Score, BoolMark(a.IsValid), FmtElapsed(a.ElapsedMs),
			Truncate(a.Message, 50),
		)
	}
	tb.Columns(
		ColumnConfig{Number: 4, Align: AlignRight},
		ColumnConfig{Number: 6, Align: AlignRight},
	)
	return tb.String()
}

// StatsTable renders per-exercise aggregates with a pass rate column
func StatsTable(m Mode, stats []db.AttemptStats) string {
	tb := NewTable(m)
	tb.Header("Exercise", "Attempts", "Passes", "Pass rate", "Avg", "Best")
	var attempts, passes int
	for _, s := range stats {
		rate := 0.0
		if s.Attempts > 0 {
			rate = float64(s.Passes) / float64(s.Attempts)
		}
		tb.Row(s.ExerciseID, s.Attempts, s.Passes,
			fmt.Sprintf("%s %3.0f%%", Bar(rate, 10), rate*100),
			fmt.Sprintf("%.1f", s.AvgScore), s.BestScore)
		attempts += s.Attempts
		passes += s.Passes
	}
	tb.Footer("TOTAL", attempts, passes, "", "", "")
	tb.Columns(
		ColumnConfig{Number: 2, Align: AlignRight},
		ColumnConfig{Number: 3, Align: AlignRight},
		ColumnConfig{Number: 5, Align: AlignRight},
		ColumnConfig{Number: 6, Align: AlignRight},
	)
	return tb.String()
}

// Lines joins non-empty strings with newlines
func Lines(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
