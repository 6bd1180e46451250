package graph

import "sort"

// Position is a node's location on the editor canvas
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is one step of a workflow as produced by the editor
type Node struct {
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Category Category       `json:"category,omitempty" yaml:"category,omitempty"` // explicit tag, wins over registry and substring fallback
	Position Position       `json:"position" yaml:"position"`
	Data     map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Edge is a directed connection between two node ports
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
}

// Graph is the caller-owned node/edge payload
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Snapshot holds a graph with precomputed categories and adjacency lists.
// Edges whose source or target is not a known node are kept in Edges but
// left out of every adjacency list.
type Snapshot struct {
	Nodes      []Node
	Edges      []Edge
	ByID       map[string]*Node
	Categories map[string]Category  // node_id -> category
	Adj        map[string][]string  // undirected
	OutAdj     map[string][]string  // directed: source -> targets
	InAdj      map[string][]string  // directed: target -> sources
	OutEdges   map[string][]Edge    // source -> live edges, in input order

	live int
}

// NewSnapshot builds a Snapshot using the default node type registry
func NewSnapshot(g *Graph) *Snapshot {
	return NewSnapshotWith(g, DefaultClassifier())
}

// NewSnapshotWith builds a Snapshot classifying nodes with c. A nil graph
// yields an empty snapshot.
func NewSnapshotWith(g *Graph, c *Classifier) *Snapshot {
	if g == nil {
		g = &Graph{}
	}
	if c == nil {
		c = DefaultClassifier()
	}

	byID := make(map[string]*Node, len(g.Nodes))
	categories := make(map[string]Category, len(g.Nodes))
	adj := make(map[string][]string, len(g.Nodes))
	outAdj := make(map[string][]string, len(g.Nodes))
	inAdj := make(map[string][]string, len(g.Nodes))
	outEdges := make(map[string][]Edge)
	live := 0

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if _, dup := byID[n.ID]; dup {
			continue // first definition wins
		}
		byID[n.ID] = n
		categories[n.ID] = c.Classify(*n)
		adj[n.ID] = nil // ensure entry exists
		outAdj[n.ID] = nil
		inAdj[n.ID] = nil
	}

	for _, e := range g.Edges {
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
		outAdj[e.Source] = append(outAdj[e.Source], e.Target)
		inAdj[e.Target] = append(inAdj[e.Target], e.Source)
		outEdges[e.Source] = append(outEdges[e.Source], e)
		live++
	}

	return &Snapshot{
		Nodes:      g.Nodes,
		Edges:      g.Edges,
		ByID:       byID,
		Categories: categories,
		Adj:        adj,
		OutAdj:     outAdj,
		InAdj:      inAdj,
		OutEdges:   outEdges,
		live:       live,
	}
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *Snapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.ByID))
	for id := range s.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LiveEdgeCount is the number of edges whose endpoints both exist
func (s *Snapshot) LiveEdgeCount() int { return s.live }

// IsLive reports whether both endpoints of e exist in the snapshot
func (s *Snapshot) IsLive(e Edge) bool {
	_, okS := s.ByID[e.Source]
	_, okT := s.ByID[e.Target]
	return okS && okT
}

// CategoryOf returns the category of the node with the given id, or
// CategoryOther when the id is unknown
func (s *Snapshot) CategoryOf(id string) Category {
	if c, ok := s.Categories[id]; ok {
		return c
	}
	return CategoryOther
}

// CategorySet returns the distinct categories present in the graph
func (s *Snapshot) CategorySet() map[Category]bool {
	set := make(map[Category]bool, len(s.Categories))
	for _, c := range s.Categories {
		set[c] = true
	}
	return set
}

// CountByCategory returns how many nodes fall into each category
func (s *Snapshot) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, c := range s.Categories {
		counts[c]++
	}
	return counts
}
