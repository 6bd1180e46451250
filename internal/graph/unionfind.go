package graph

import "sort"

// UnionFind implements union-find with path compression and union by rank
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
	size   map[string]int
}

// NewUnionFind creates a new UnionFind where each element is its own component
func NewUnionFind(ids []string) *UnionFind {
	uf := &UnionFind{
		parent: make(map[string]string, len(ids)),
		rank:   make(map[string]int, len(ids)),
		size:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
		uf.size[id] = 1
	}
	return uf
}

// Find returns the root of the component containing id, with path compression.
// Unknown ids are their own root.
func (uf *UnionFind) Find(id string) string {
	parent, ok := uf.parent[id]
	if !ok || parent == id {
		return id
	}
	root := uf.Find(parent)
	uf.parent[id] = root
	return root
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b string) bool {
	rootA, rootB := uf.Find(a), uf.Find(b)
	if rootA == rootB {
		return false
	}
	if uf.rank[rootA] < uf.rank[rootB] {
		rootA, rootB = rootB, rootA
	}
	uf.parent[rootB] = rootA
	uf.size[rootA] += uf.size[rootB]
	if uf.rank[rootA] == uf.rank[rootB] {
		uf.rank[rootA]++
	}
	return true
}

// Connected reports whether a and b share a component
func (uf *UnionFind) Connected(a, b string) bool {
	return uf.Find(a) == uf.Find(b)
}

// Components returns all connected components, each sorted, largest first
// (ties broken by first member)
func (uf *UnionFind) Components() [][]string {
	groups := make(map[string][]string)
	for id := range uf.parent {
		root := uf.Find(id)
		groups[root] = append(groups[root], id)
	}
	result := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		result = append(result, members)
	}
	sort.Slice(result, func(i, j int) bool {
		if len(result[i]) != len(result[j]) {
			return len(result[i]) > len(result[j])
		}
		return result[i][0] < result[j][0]
	})
	return result
}
