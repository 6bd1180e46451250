package graph

import "sort"

// HubNode is a node with high fan-in or fan-out
type HubNode struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Category  Category `json:"category"`
	Degree    int      `json:"degree"`
	InDegree  int      `json:"in_degree"`
	OutDegree int      `json:"out_degree"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalNodes        int              `json:"total_nodes"`
	TotalEdges        int              `json:"total_edges"`
	DanglingEdges     int              `json:"dangling_edges"`
	NumComponents     int              `json:"num_components"`
	LargestComponent  int              `json:"largest_component"`
	SmallestComponent int              `json:"smallest_component"`
	OrphanCount       int              `json:"orphan_count"`
	OrphanIDs         []string         `json:"orphan_ids"`
	EntryIDs          []string         `json:"entry_ids"` // no incoming edge
	ExitIDs           []string         `json:"exit_ids"`  // no outgoing edge
	Categories        map[Category]int `json:"categories"`
	Hubs              []HubNode        `json:"hubs"`
}

// ComputeTopology analyzes workflow topology: components, orphans, entry and
// exit nodes, category mix and hubs (degree > hubThreshold, at most topN)
func ComputeTopology(snap *Snapshot, hubThreshold, topN int) *TopologyReport {
	report := &TopologyReport{
		TotalNodes: len(snap.ByID),
		TotalEdges: len(snap.Edges),
		Categories: snap.CountByCategory(),
	}
	for _, e := range snap.Edges {
		if !snap.IsLive(e) {
			report.DanglingEdges++
		}
	}
	if report.TotalNodes == 0 {
		return report
	}

	// Connected components via UnionFind
	nodeIDs := snap.NodeIDs()
	uf := NewUnionFind(nodeIDs)
	for _, e := range snap.Edges {
		if snap.IsLive(e) {
			uf.Union(e.Source, e.Target)
		}
	}
	components := uf.Components()
	report.NumComponents = len(components)
	report.LargestComponent = len(components[0])
	report.SmallestComponent = len(components[len(components)-1])

	for _, id := range nodeIDs {
		if len(snap.Adj[id]) == 0 {
			report.OrphanIDs = append(report.OrphanIDs, id)
			continue
		}
		if len(snap.InAdj[id]) == 0 {
			report.EntryIDs = append(report.EntryIDs, id)
		}
		if len(snap.OutAdj[id]) == 0 {
			report.ExitIDs = append(report.ExitIDs, id)
		}
	}
	report.OrphanCount = len(report.OrphanIDs)
	if len(report.OrphanIDs) > topN {
		report.OrphanIDs = report.OrphanIDs[:topN]
	}

	for _, id := range nodeIDs {
		degree := len(snap.Adj[id])
		if degree > hubThreshold {
			node := snap.ByID[id]
			report.Hubs = append(report.Hubs, HubNode{
				ID:        id,
				Type:      node.Type,
				Category:  snap.Categories[id],
				Degree:    degree,
				InDegree:  len(snap.InAdj[id]),
				OutDegree: len(snap.OutAdj[id]),
			})
		}
	}
	sort.SliceStable(report.Hubs, func(i, j int) bool { return report.Hubs[i].Degree > report.Hubs[j].Degree })
	if len(report.Hubs) > topN {
		report.Hubs = report.Hubs[:topN]
	}

	return report
}
