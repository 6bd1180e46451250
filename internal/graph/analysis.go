package graph

import (
	"sort"
	"strings"
)

// Structural predicates used by the validators. All of them are total: an
// empty or nil snapshot never panics, and edges with a missing endpoint are
// ignored except by the forward flow check, which they fail.

// HasCategory reports whether any node classifies as c
func (s *Snapshot) HasCategory(c Category) bool {
	for _, n := range s.Nodes {
		if s.Categories[n.ID] == c {
			return true
		}
	}
	return false
}

// FirstOfCategory returns the first node (in input order) classified as c
func (s *Snapshot) FirstOfCategory(c Category) (Node, bool) {
	for _, n := range s.Nodes {
		if s.Categories[n.ID] == c {
			return n, true
		}
	}
	return Node{}, false
}

// HasValidStructure is true iff a trigger node exists and the graph has at
// least one live edge
func HasValidStructure(s *Snapshot) bool {
	return s.HasCategory(CategoryTrigger) && s.LiveEdgeCount() > 0
}

// DisconnectedNodes returns the nodes with no incident live edge, in input order
func DisconnectedNodes(s *Snapshot) []Node {
	var out []Node
	for _, n := range s.Nodes {
		if len(s.Adj[n.ID]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// IsSequentialFlow is true iff the first trigger node has at least one
// outgoing edge. It does not check that the path reaches every node; see
// UnreachableFromTriggers for the strict form.
func IsSequentialFlow(s *Snapshot) bool {
	start, ok := s.FirstOfCategory(CategoryTrigger)
	if !ok {
		return false
	}
	return len(s.OutAdj[start.ID]) > 0
}

// UnreachableFromTriggers returns the sorted IDs of nodes that no trigger can
// reach along directed edges. It returns nil when there is no trigger at all,
// so callers must check HasCategory(CategoryTrigger) first.
func UnreachableFromTriggers(s *Snapshot) []string {
	var queue []string
	seen := make(map[string]bool, len(s.ByID))
	for _, n := range s.Nodes {
		if s.Categories[n.ID] == CategoryTrigger && !seen[n.ID] {
			seen[n.ID] = true
			queue = append(queue, n.ID)
		}
	}
	if len(queue) == 0 {
		return nil
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range s.OutAdj[current] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	var unreachable []string
	for id := range s.ByID {
		if !seen[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Strings(unreachable)
	return unreachable
}

// HasBranchingLogic is true iff some node has out-degree greater than one
func HasBranchingLogic(s *Snapshot) bool {
	for _, targets := range s.OutAdj {
		if len(targets) > 1 {
			return true
		}
	}
	return false
}

// BranchingNodes returns the sorted IDs of nodes with out-degree greater than one
func BranchingNodes(s *Snapshot) []string {
	var ids []string
	for id, targets := range s.OutAdj {
		if len(targets) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// HasForwardDataFlow is true iff every edge joins two existing nodes and runs
// left to right (source.x <= target.x). Vacuously true without edges.
func HasForwardDataFlow(s *Snapshot) bool {
	return len(BackwardEdges(s)) == 0 && len(DanglingEdges(s)) == 0
}

// DanglingEdges returns the edges whose source or target is not a node
func DanglingEdges(s *Snapshot) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if !s.IsLive(e) {
			out = append(out, e)
		}
	}
	return out
}

// BackwardEdges returns the live edges whose source sits right of its target
func BackwardEdges(s *Snapshot) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		src, okS := s.ByID[e.Source]
		dst, okT := s.ByID[e.Target]
		if !okS || !okT {
			continue
		}
		if src.Position.X > dst.Position.X {
			out = append(out, e)
		}
	}
	return out
}

// HasAIInputs is true iff every AI node is the target of at least one edge
func HasAIInputs(s *Snapshot) bool {
	return len(AINodesWithoutInput(s)) == 0
}

// AINodesWithoutInput returns the AI nodes that have no incoming live edge
func AINodesWithoutInput(s *Snapshot) []Node {
	var out []Node
	for _, n := range s.Nodes {
		if s.Categories[n.ID] == CategoryAI && len(s.InAdj[n.ID]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

var errorHandlingNeedles = []string{"try", "catch", "error"}

// IsErrorHandlingType reports whether a node type denotes error handling
func IsErrorHandlingType(nodeType string) bool {
	for _, needle := range errorHandlingNeedles {
		if strings.Contains(nodeType, needle) {
			return true
		}
	}
	return false
}

// HasErrorHandlingNodes is true iff any node type contains try, catch or error
func HasErrorHandlingNodes(s *Snapshot) bool {
	for _, n := range s.Nodes {
		if IsErrorHandlingType(n.Type) {
			return true
		}
	}
	return false
}

// HasConditionNodes is true iff any node classifies as condition
func HasConditionNodes(s *Snapshot) bool {
	return s.HasCategory(CategoryCondition)
}

// HasMergeNodes is true iff any node classifies as merge
func HasMergeNodes(s *Snapshot) bool {
	return s.HasCategory(CategoryMerge)
}

// MissingField names a data key absent from a node's configuration
type MissingField struct {
	NodeID string `json:"node_id"`
	Field  string `json:"field"`
}

// MissingConfig checks that every node whose type or category is a key of
// required carries each listed data field with a non-empty value. Only
// presence is checked, never the value's meaning.
func MissingConfig(s *Snapshot, required map[string][]string) []MissingField {
	var out []MissingField
	for _, n := range s.Nodes {
		fields, ok := required[n.Type]
		if !ok {
			fields, ok = required[string(s.Categories[n.ID])]
		}
		if !ok {
			continue
		}
		for _, f := range fields {
			if !present(n.Data, f) {
				out = append(out, MissingField{NodeID: n.ID, Field: f})
			}
		}
	}
	return out
}

func present(data map[string]any, key string) bool {
	v, ok := data[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}
