package graph

import (
	"encoding/json"
	"fmt"

	"flowlab/grader/internal/db"
)

// SaveToDB stores g under id (a new id is generated when empty) and returns the id
func SaveToDB(d *db.DB, id, name string, g *Graph) (string, error) {
	if g == nil {
		g = &Graph{}
	}

	nodes := make([]db.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		row := db.Node{
			ID:       n.ID,
			NodeType: n.Type,
			X:        n.Position.X,
			Y:        n.Position.Y,
		}
		if n.Category != "" {
			c := string(n.Category)
			row.Category = &c
		}
		if len(n.Data) > 0 {
			b, err := json.Marshal(n.Data)
			if err != nil {
				return "", fmt.Errorf("encoding data of node %s: %w", n.ID, err)
			}
			s := string(b)
			row.Data = &s
		}
		nodes = append(nodes, row)
	}

	edges := make([]db.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, db.Edge{
			ID:           e.ID,
			SourceID:     e.Source,
			TargetID:     e.Target,
			SourceHandle: optional(e.SourceHandle),
			TargetHandle: optional(e.TargetHandle),
		})
	}

	return d.SaveWorkflow(id, name, nodes, edges)
}

// LoadFromDB rebuilds the graph stored under id
func LoadFromDB(d *db.DB, id string) (*Graph, error) {
	if _, err := d.GetWorkflow(id); err != nil {
		return nil, err
	}
	dbNodes, err := d.WorkflowNodes(id)
	if err != nil {
		return nil, err
	}
	dbEdges, err := d.WorkflowEdges(id)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Nodes: make([]Node, 0, len(dbNodes)),
		Edges: make([]Edge, 0, len(dbEdges)),
	}
	for _, n := range dbNodes {
		node := Node{
			ID:       n.ID,
			Type:     n.NodeType,
			Position: Position{X: n.X, Y: n.Y},
		}
		if n.Category != nil {
			node.Category = Category(*n.Category)
		}
		if n.Data != nil {
			if err := json.Unmarshal([]byte(*n.Data), &node.Data); err != nil {
				return nil, fmt.Errorf("decoding data of node %s: %w", n.ID, err)
			}
		}
		g.Nodes = append(g.Nodes, node)
	}
	for _, e := range dbEdges {
		g.Edges = append(g.Edges, Edge{
			ID:           e.ID,
			Source:       e.SourceID,
			Target:       e.TargetID,
			SourceHandle: deref(e.SourceHandle),
			TargetHandle: deref(e.TargetHandle),
		})
	}
	return g, nil
}

// SnapshotFromDB loads the stored workflow id as a Snapshot
func SnapshotFromDB(d *db.DB, id string, c *Classifier) (*Snapshot, error) {
	g, err := LoadFromDB(d, id)
	if err != nil {
		return nil, err
	}
	return NewSnapshotWith(g, c), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
