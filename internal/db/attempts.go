package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RecordAttempt inserts an attempt, assigning ID and CreatedAt when unset
func (d *DB) RecordAttempt(a *Attempt) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = d.nowMs()
	}

	feedback, err := encodeLines(a.Feedback)
	if err != nil {
		return "", err
	}
	suggestions, err := encodeLines(a.Suggestions)
	if err != nil {
		return "", err
	}

	valid := 0
	if a.IsValid {
		valid = 1
	}
	_, err = d.conn.Exec(`
		INSERT INTO attempts (id, workflow_id, exercise_id, user_id, kind, score, is_valid,
		                      message, feedback, suggestions, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.WorkflowID, a.ExerciseID, a.UserID, a.Kind, a.Score, valid,
		a.Message, feedback, suggestions, a.ElapsedMs, a.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("recording attempt: %w", err)
	}
	return a.ID, nil
}

// ListAttempts returns attempts matching the filter, newest first
func (d *DB) ListAttempts(f AttemptFilter) ([]Attempt, error) {
	where, args := f.clause()
	query := `
		SELECT id, workflow_id, exercise_id, user_id, kind, score, is_valid,
		       message, feedback, suggestions, elapsed_ms, created_at
		FROM attempts` + where + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats aggregates attempts per exercise, ordered by exercise id.
// The filter's Limit is ignored.
func (d *DB) Stats(f AttemptFilter) ([]AttemptStats, error) {
	where, args := f.clause()
	rows, err := d.conn.Query(`
		SELECT exercise_id, COUNT(*), COALESCE(SUM(is_valid), 0),
		       COALESCE(AVG(score), 0), COALESCE(MAX(score), 0)
		FROM attempts`+where+`
		GROUP BY exercise_id ORDER BY exercise_id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptStats
	for rows.Next() {
		var s AttemptStats
		if err := rows.Scan(&s.ExerciseID, &s.Attempts, &s.Passes, &s.AvgScore, &s.BestScore); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (f AttemptFilter) clause() (string, []any) {
	var conds []string
	var args []any
	if f.ExerciseID != "" {
		conds = append(conds, "exercise_id = ?")
		args = append(args, f.ExerciseID)
	}
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (Attempt, error) {
	var a Attempt
	var valid int
	var feedback, suggestions sql.NullString
	err := scanner.Scan(
		&a.ID, &a.WorkflowID, &a.ExerciseID, &a.UserID, &a.Kind, &a.Score, &valid,
		&a.Message, &feedback, &suggestions, &a.ElapsedMs, &a.CreatedAt,
	)
	if err != nil {
		return a, err
	}
	a.IsValid = valid != 0
	if a.Feedback, err = decodeLines(feedback); err != nil {
		return a, err
	}
	if a.Suggestions, err = decodeLines(suggestions); err != nil {
		return a, err
	}
	return a, nil
}

func encodeLines(lines []string) (string, error) {
	if lines == nil {
		lines = []string{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encoding lines: %w", err)
	}
	return string(b), nil
}

func decodeLines(s sql.NullString) ([]string, error) {
	lines := []string{}
	if !s.Valid || s.String == "" {
		return lines, nil
	}
	if err := json.Unmarshal([]byte(s.String), &lines); err != nil {
		return nil, fmt.Errorf("decoding lines: %w", err)
	}
	return lines, nil
}
