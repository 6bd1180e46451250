package db

// scanEdge scans a row into an Edge. The row must have all 7 columns in standard order.
func scanEdge(scanner interface{ Scan(dest ...any) error }) (Edge, error) {
	var e Edge
	err := scanner.Scan(
		&e.WorkflowID, &e.Ord, &e.ID, &e.SourceID, &e.TargetID,
		&e.SourceHandle, &e.TargetHandle,
	)
	return e, err
}

// WorkflowEdges returns the edges of a workflow in saved order
func (d *DB) WorkflowEdges(workflowID string) ([]Edge, error) {
	rows, err := d.conn.Query(`
		SELECT workflow_id, ord, id, source_id, target_id, source_handle, target_handle
		FROM edges WHERE workflow_id = ? ORDER BY ord
	`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// GetEdgesForNode returns all edges of a workflow where the node is source OR target
func (d *DB) GetEdgesForNode(workflowID, nodeID string) ([]Edge, error) {
	rows, err := d.conn.Query(`
		SELECT workflow_id, ord, id, source_id, target_id, source_handle, target_handle
		FROM edges WHERE workflow_id = ? AND (source_id = ? OR target_id = ?) ORDER BY ord
	`, workflowID, nodeID, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
