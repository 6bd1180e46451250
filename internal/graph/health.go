package graph

import "math"

// HealthBreakdown shows the sub-scores of the health formula, each in [0,1]
type HealthBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Components   float64 `json:"components"`
	Reachability float64 `json:"reachability"`
	Fragility    float64 `json:"fragility"`
}

// AnalysisReport is the full structural report for one workflow
type AnalysisReport struct {
	HealthScore     float64         `json:"health_score"`
	HealthBreakdown HealthBreakdown `json:"health_breakdown"`
	Topology        *TopologyReport `json:"topology"`
	Bridges         *BridgeReport   `json:"bridges"`
	Unreachable     []string        `json:"unreachable"`
	BackwardEdges   []Edge          `json:"backward_edges"`
	Branching       []string        `json:"branching"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
}

// DefaultConfig returns defaults sized for tutorial workflows
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 3,
		TopN:         20,
	}
}

// Analyze runs all analyses and computes a composite structure health score.
// An empty workflow scores zero.
func Analyze(snap *Snapshot, config *AnalyzerConfig) *AnalysisReport {
	if config == nil {
		config = DefaultConfig()
	}
	topology := ComputeTopology(snap, config.HubThreshold, config.TopN)
	bridges := ComputeBridges(snap)

	report := &AnalysisReport{
		Topology:      topology,
		Bridges:       bridges,
		BackwardEdges: BackwardEdges(snap),
		Branching:     BranchingNodes(snap),
	}

	total := float64(topology.TotalNodes)
	if total == 0 {
		return report
	}

	var b HealthBreakdown
	b.Connectivity = clamp(1.0-math.Min(float64(topology.OrphanCount)/total, 0.5)*2.0, 0, 1)
	if topology.NumComponents > 0 {
		b.Components = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}
	if snap.HasCategory(CategoryTrigger) {
		report.Unreachable = UnreachableFromTriggers(snap)
		b.Reachability = clamp(1.0-float64(len(report.Unreachable))/total, 0, 1)
	}
	b.Fragility = clamp(1.0-math.Min(float64(bridges.APCount)/total, 0.5)*2.0, 0, 1)

	report.HealthBreakdown = b
	report.HealthScore = 0.30*b.Connectivity + 0.20*b.Components + 0.35*b.Reachability + 0.15*b.Fragility
	return report
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
