package graph

// ArticulationPoint is a node whose removal splits the workflow
type ArticulationPoint struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Degree int    `json:"degree"`
}

// BridgeEdge is a connection whose removal splits the workflow
type BridgeEdge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// BridgeReport contains single-point-of-failure analysis results
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeEdges        []BridgeEdge        `json:"bridge_edges"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
}

// ComputeBridges finds articulation points and bridge edges on the
// undirected view of the workflow (iterative Tarjan, one pass per component)
func ComputeBridges(snap *Snapshot) *BridgeReport {
	if len(snap.ByID) == 0 {
		return &BridgeReport{}
	}

	nodeIDs := snap.NodeIDs()
	idToIdx := make(map[string]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idToIdx[id] = i
	}
	n := len(nodeIDs)

	// Deduplicated undirected adjacency; parallel edges and self loops dropped
	adjIdx := make([][]int, n)
	type edgePair struct{ u, v int }
	seen := make(map[edgePair]bool)
	for _, e := range snap.Edges {
		u, okU := idToIdx[e.Source]
		v, okV := idToIdx[e.Target]
		if !okU || !okV || u == v {
			continue
		}
		key := edgePair{u, v}
		if u > v {
			key = edgePair{v, u}
		}
		if !seen[key] {
			seen[key] = true
			adjIdx[u] = append(adjIdx[u], v)
			adjIdx[v] = append(adjIdx[v], u)
		}
	}

	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isAP := make([]bool, n)
	var bridgePairs [][2]int
	counter := 1

	const noParent = -1
	type frame struct {
		node, parent, ni int
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		visited[start] = true
		disc[start] = counter
		low[start] = counter
		counter++

		stack := []frame{{start, noParent, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := top.node

			if top.ni < len(adjIdx[node]) {
				child := adjIdx[node][top.ni]
				top.ni++
				if child == top.parent {
					continue
				}
				if visited[child] {
					if disc[child] < low[node] {
						low[node] = disc[child]
					}
					continue
				}
				visited[child] = true
				disc[child] = counter
				low[child] = counter
				counter++
				if node == start {
					rootChildren++
				}
				stack = append(stack, frame{child, node, 0})
				continue
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break
			}
			pn := stack[len(stack)-1].node
			if low[node] < low[pn] {
				low[pn] = low[node]
			}
			if low[node] > disc[pn] {
				bridgePairs = append(bridgePairs, [2]int{pn, node})
			}
			if pn != start && low[node] >= disc[pn] {
				isAP[pn] = true
			}
		}

		if rootChildren >= 2 {
			isAP[start] = true
		}
	}

	report := &BridgeReport{}
	for i := 0; i < n; i++ {
		if isAP[i] {
			id := nodeIDs[i]
			report.ArticulationPoints = append(report.ArticulationPoints, ArticulationPoint{
				ID:     id,
				Type:   snap.ByID[id].Type,
				Degree: len(adjIdx[i]),
			})
		}
	}
	for _, pair := range bridgePairs {
		report.BridgeEdges = append(report.BridgeEdges, BridgeEdge{
			SourceID: nodeIDs[pair[0]],
			TargetID: nodeIDs[pair[1]],
		})
	}
	report.APCount = len(report.ArticulationPoints)
	report.BridgeCount = len(report.BridgeEdges)
	return report
}
