package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"flowlab/grader/internal/graph"
)

var (
	analyzeJSON         bool
	analyzeGraph        string
	analyzeWorkflow     string
	analyzeTopN         int
	analyzeHubThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze workflow structure: topology, reachability, bridges, health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, _, err := loadGraph(analyzeGraph, analyzeWorkflow)
		if err != nil {
			return err
		}

		snap := graph.NewSnapshotWith(g, cfg.Classifier())
		config := &graph.AnalyzerConfig{
			HubThreshold: analyzeHubThreshold,
			TopN:         analyzeTopN,
		}

		report := graph.Analyze(snap, config)

		out := cmd.OutOrStdout()
		if analyzeJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHumanReadable(out, report, snap)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVar(&analyzeGraph, "graph", "", "Workflow graph file (YAML or JSON)")
	analyzeCmd.Flags().StringVar(&analyzeWorkflow, "workflow", "", "Stored workflow ID, ID prefix or name")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 3, "Minimum degree to consider a node a hub")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(w io.Writer, report *graph.AnalysisReport, snap *graph.Snapshot) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Fprintf(w, "\n  Workflow Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Fprintf(w, "  breakdown: connectivity=%.2f components=%.2f reachability=%.2f fragility=%.2f\n\n",
		report.HealthBreakdown.Connectivity,
		report.HealthBreakdown.Components,
		report.HealthBreakdown.Reachability,
		report.HealthBreakdown.Fragility)

	// Topology
	t := report.Topology
	fmt.Fprintln(w, "  TOPOLOGY")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Nodes: %d  Edges: %d  Components: %d\n", t.TotalNodes, t.TotalEdges, t.NumComponents)
	if t.NumComponents > 0 {
		fmt.Fprintf(w, "  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)
	}
	if t.DanglingEdges > 0 {
		fmt.Fprintf(w, "  Dangling edges: %d (endpoint missing)\n", t.DanglingEdges)
	}
	fmt.Fprintf(w, "  Entry: %s  Exit: %s\n", idList(t.EntryIDs, 5), idList(t.ExitIDs, 5))

	if t.OrphanCount > 0 {
		fmt.Fprintf(w, "  Orphans: %d disconnected nodes\n", t.OrphanCount)
		limit := 5
		if len(t.OrphanIDs) < limit {
			limit = len(t.OrphanIDs)
		}
		for _, id := range t.OrphanIDs[:limit] {
			fmt.Fprintf(w, "    - %s (%s)\n", truncID(id), nodeType(snap, id))
		}
		if t.OrphanCount > 5 {
			fmt.Fprintf(w, "    ... and %d more\n", t.OrphanCount-5)
		}
	}

	// Category mix
	if len(t.Categories) > 0 {
		fmt.Fprintln(w, "\n  Categories:")
		for _, c := range graph.Categories() {
			if n := t.Categories[c]; n > 0 {
				fmt.Fprintf(w, "    %9s: %3d  %s\n", c, n, strings.Repeat("=", n))
			}
		}
	}

	// Hubs
	if len(t.Hubs) > 0 {
		fmt.Fprintln(w, "\n  Top hubs (degree > threshold):")
		for _, hub := range t.Hubs {
			fmt.Fprintf(w, "    %s degree=%d (in=%d, out=%d)  %s\n",
				truncID(hub.ID), hub.Degree, hub.InDegree, hub.OutDegree, truncTitle(hub.Type, 40))
		}
	}

	// Flow
	if len(report.Unreachable) > 0 || len(report.BackwardEdges) > 0 || len(report.Branching) > 0 {
		fmt.Fprintln(w, "\n  FLOW")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		if len(report.Unreachable) > 0 {
			fmt.Fprintf(w, "  %d nodes unreachable from a trigger: %s\n",
				len(report.Unreachable), idList(report.Unreachable, 10))
		}
		if len(report.BackwardEdges) > 0 {
			fmt.Fprintf(w, "  %d backward edges (target left of source):\n", len(report.BackwardEdges))
			for _, e := range report.BackwardEdges {
				fmt.Fprintf(w, "    %s -> %s\n", truncID(e.Source), truncID(e.Target))
			}
		}
		if len(report.Branching) > 0 {
			fmt.Fprintf(w, "  Branching at: %s\n", idList(report.Branching, 10))
		}
	}

	// Bridges
	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 {
		fmt.Fprintln(w, "\n  STRUCTURAL FRAGILITY")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		if br.APCount > 0 {
			fmt.Fprintf(w, "  %d articulation points (removal disconnects workflow):\n", br.APCount)
			limit := 10
			if len(br.ArticulationPoints) < limit {
				limit = len(br.ArticulationPoints)
			}
			for _, ap := range br.ArticulationPoints[:limit] {
				fmt.Fprintf(w, "    %s (degree %d)  %s\n",
					truncID(ap.ID), ap.Degree, truncTitle(ap.Type, 40))
			}
		}
		if br.BridgeCount > 0 {
			fmt.Fprintf(w, "  %d bridge edges (removal disconnects workflow):\n", br.BridgeCount)
			limit := 10
			if len(br.BridgeEdges) < limit {
				limit = len(br.BridgeEdges)
			}
			for _, be := range br.BridgeEdges[:limit] {
				fmt.Fprintf(w, "    %s -> %s\n", truncID(be.SourceID), truncID(be.TargetID))
			}
		}
	}

	fmt.Fprintln(w)
}

func nodeType(snap *graph.Snapshot, id string) string {
	if n, ok := snap.ByID[id]; ok {
		return n.Type
	}
	return "?"
}

func idList(ids []string, max int) string {
	if len(ids) == 0 {
		return "-"
	}
	shown := ids
	if len(shown) > max {
		shown = shown[:max]
	}
	parts := make([]string, len(shown))
	for i, id := range shown {
		parts[i] = truncID(id)
	}
	s := strings.Join(parts, ", ")
	if len(ids) > max {
		s += fmt.Sprintf(" (+%d)", len(ids)-max)
	}
	return s
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Find a safe UTF-8 boundary
	truncated := s[:max]
	for len(truncated) > 0 && truncated[len(truncated)-1]>>6 == 2 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}
