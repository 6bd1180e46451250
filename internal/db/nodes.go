package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a workflow id is unknown
var ErrNotFound = errors.New("not found")

// scanNode scans a row into a Node. The row must have all 8 columns in standard order.
func scanNode(scanner interface{ Scan(dest ...any) error }) (Node, error) {
	var n Node
	err := scanner.Scan(
		&n.WorkflowID, &n.Ord, &n.ID, &n.NodeType, &n.Category,
		&n.X, &n.Y, &n.Data,
	)
	return n, err
}

// SaveWorkflow stores a workflow with its nodes and edges, replacing any
// previous content under the same id. An empty id gets a new UUID. Row
// WorkflowID and Ord fields are ignored; input order is preserved.
func (d *DB) SaveWorkflow(id, name string, nodes []Node, edges []Edge) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := d.nowMs()

	tx, err := d.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO workflows (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`, id, name, now, now); err != nil {
		return "", fmt.Errorf("saving workflow %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM nodes WHERE workflow_id = ?`, id); err != nil {
		return "", fmt.Errorf("clearing nodes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM edges WHERE workflow_id = ?`, id); err != nil {
		return "", fmt.Errorf("clearing edges: %w", err)
	}

	for i, n := range nodes {
		if _, err := tx.Exec(`
			INSERT INTO nodes (workflow_id, ord, id, type, category, pos_x, pos_y, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, n.ID, n.NodeType, n.Category, n.X, n.Y, n.Data); err != nil {
			return "", fmt.Errorf("saving node %s: %w", n.ID, err)
		}
	}
	for i, e := range edges {
		if _, err := tx.Exec(`
			INSERT INTO edges (workflow_id, ord, id, source_id, target_id, source_handle, target_handle)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, i, e.ID, e.SourceID, e.TargetID, e.SourceHandle, e.TargetHandle); err != nil {
			return "", fmt.Errorf("saving edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// GetWorkflow returns a workflow header with node and edge counts
func (d *DB) GetWorkflow(id string) (*Workflow, error) {
	row := d.conn.QueryRow(`
		SELECT w.id, w.name, w.created_at, w.updated_at,
		       (SELECT COUNT(*) FROM nodes n WHERE n.workflow_id = w.id),
		       (SELECT COUNT(*) FROM edges e WHERE e.workflow_id = w.id)
		FROM workflows w WHERE w.id = ?
	`, id)

	var w Workflow
	err := row.Scan(&w.ID, &w.Name, &w.CreatedAt, &w.UpdatedAt, &w.NodeCount, &w.EdgeCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkflows returns all workflows, most recently updated first
func (d *DB) ListWorkflows() ([]Workflow, error) {
	rows, err := d.conn.Query(`
		SELECT w.id, w.name, w.created_at, w.updated_at,
		       (SELECT COUNT(*) FROM nodes n WHERE n.workflow_id = w.id),
		       (SELECT COUNT(*) FROM edges e WHERE e.workflow_id = w.id)
		FROM workflows w ORDER BY w.updated_at DESC, w.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Workflow
	for rows.Next() {
		var w Workflow
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt, &w.UpdatedAt, &w.NodeCount, &w.EdgeCount); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWorkflow removes a workflow; nodes and edges cascade
func (d *DB) DeleteWorkflow(id string) error {
	res, err := d.conn.Exec(`DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting workflow %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	return nil
}

// WorkflowNodes returns the nodes of a workflow in saved order
func (d *DB) WorkflowNodes(workflowID string) ([]Node, error) {
	rows, err := d.conn.Query(`
		SELECT workflow_id, ord, id, type, category, pos_x, pos_y, data
		FROM nodes WHERE workflow_id = ? ORDER BY ord
	`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}
