package graph

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"flowlab/grader/internal/db"
)

// quickGraph builds a graph from "id:type" pairs laid out left to right.
// A bare id gets type "text_filter".
func quickGraph(nodes []string, edges [][2]string) *Graph {
	g := &Graph{}
	for i, def := range nodes {
		id, typ, ok := strings.Cut(def, ":")
		if !ok {
			typ = "text_filter"
		}
		g.Nodes = append(g.Nodes, Node{
			ID: id, Type: typ,
			Position: Position{X: float64(i * 100), Y: 0},
		})
	}
	for i, e := range edges {
		g.Edges = append(g.Edges, Edge{ID: fmt.Sprintf("e%d", i), Source: e[0], Target: e[1]})
	}
	return g
}

func quickSnapshot(nodes []string, edges [][2]string) *Snapshot {
	return NewSnapshot(quickGraph(nodes, edges))
}

// --- Classification Tests ---

func TestCategoryOf_PriorityOrder(t *testing.T) {
	cases := map[string]Category{
		"manual_trigger":  CategoryTrigger,
		"ai_trigger":      CategoryTrigger, // trigger beats ai
		"gpt_model":       CategoryAI,
		"claude_model":    CategoryAI,
		"json_parser":     CategoryData,
		"http_request":    CategoryHTTP,
		"api_call":        CategoryHTTP,
		"condition":       CategoryCondition,
		"if_else":         CategoryCondition,
		"merge":           CategoryMerge,
		"join":            CategoryMerge,
		"try_catch":       CategoryOther,
		"":                CategoryOther,
		"email_send":      CategoryAI, // substring fallback misfiles this
		"something_weird": CategoryOther,
	}
	for typ, want := range cases {
		if got := CategoryOf(typ); got != want {
			t.Errorf("CategoryOf(%q) = %s, want %s", typ, got, want)
		}
	}
}

func TestClassifier_TagThenRegistryThenSubstring(t *testing.T) {
	c := DefaultClassifier()

	if got := c.Classify(Node{Type: "email_send"}); got != CategoryOther {
		t.Errorf("registry should tag email_send as other, got %s", got)
	}
	if got := c.Classify(Node{Type: "notification"}); got != CategoryOther {
		t.Errorf("registry should tag notification as other, got %s", got)
	}
	if got := c.Classify(Node{Type: "email_send", Category: CategoryHTTP}); got != CategoryHTTP {
		t.Errorf("explicit tag should win, got %s", got)
	}
	if got := c.Classify(Node{Type: "custom_gpt_summarizer"}); got != CategoryAI {
		t.Errorf("unregistered type should fall back to substring, got %s", got)
	}
	if got := c.Classify(Node{Type: "gpt_model", Category: "bogus"}); got != CategoryAI {
		t.Errorf("invalid tag should be ignored, got %s", got)
	}

	c.Register(NodeTypeDef{Type: "vector_store", Category: CategoryData})
	c.Register(NodeTypeDef{Type: "ignored", Category: "nope"})
	if got := c.Classify(Node{Type: "vector_store"}); got != CategoryData {
		t.Errorf("registered type: got %s", got)
	}
	if _, ok := c.Lookup("ignored"); ok {
		t.Error("definition with invalid category should not register")
	}
}

func TestBuiltinNodeTypes_Copy(t *testing.T) {
	defs := BuiltinNodeTypes()
	defs[0].Category = CategoryMerge
	if BuiltinNodeTypes()[0].Category == CategoryMerge {
		t.Error("BuiltinNodeTypes should return a copy")
	}
}

// --- Snapshot Tests ---

func TestSnapshot_NilGraph(t *testing.T) {
	s := NewSnapshot(nil)
	if len(s.ByID) != 0 || len(s.Edges) != 0 {
		t.Errorf("nil graph should give empty snapshot")
	}
	if HasValidStructure(s) || IsSequentialFlow(s) || HasBranchingLogic(s) {
		t.Error("predicates on empty snapshot should be false")
	}
	if !HasForwardDataFlow(s) || !HasAIInputs(s) {
		t.Error("vacuous predicates on empty snapshot should be true")
	}
}

func TestSnapshot_DuplicateIDFirstWins(t *testing.T) {
	g := &Graph{Nodes: []Node{
		{ID: "a", Type: "manual_trigger"},
		{ID: "a", Type: "gpt_model"},
	}}
	s := NewSnapshot(g)
	if s.ByID["a"].Type != "manual_trigger" {
		t.Errorf("first definition should win, got %s", s.ByID["a"].Type)
	}
	if s.CategoryOf("a") != CategoryTrigger {
		t.Errorf("expected trigger, got %s", s.CategoryOf("a"))
	}
	if s.CategoryOf("missing") != CategoryOther {
		t.Error("unknown id should be other")
	}
}

func TestSnapshot_DanglingEdgesSkipped(t *testing.T) {
	s := quickSnapshot([]string{"t:manual_trigger", "a"}, [][2]string{{"t", "ghost"}, {"t", "a"}})
	if len(s.Edges) != 2 {
		t.Errorf("raw edges should be kept, got %d", len(s.Edges))
	}
	if len(s.OutAdj["t"]) != 1 {
		t.Errorf("dangling edge should not be in adjacency, got %v", s.OutAdj["t"])
	}
	if _, ok := s.Adj["ghost"]; ok {
		t.Error("dangling endpoint should not get an adjacency entry")
	}
}

// --- Predicate Tests ---

func TestDisconnectedNodes_ThreeNodesOneEdge(t *testing.T) {
	s := quickSnapshot([]string{"a", "b", "c"}, [][2]string{{"a", "b"}})
	got := DisconnectedNodes(s)
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("expected exactly [c], got %v", got)
	}
}

func TestDisconnectedNodes_DanglingEdgeDoesNotConnect(t *testing.T) {
	s := quickSnapshot([]string{"a"}, [][2]string{{"a", "ghost"}})
	if got := DisconnectedNodes(s); len(got) != 1 {
		t.Errorf("edge to unknown node should not connect a, got %v", got)
	}
}

func TestHasBranchingLogic(t *testing.T) {
	// linear chain of N nodes with N-1 edges
	chain := quickSnapshot([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}})
	if HasBranchingLogic(chain) {
		t.Error("linear chain should not branch")
	}

	fork := quickSnapshot([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"a", "c"}})
	if !HasBranchingLogic(fork) {
		t.Error("out-degree 2 should branch")
	}
	if got := BranchingNodes(fork); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("BranchingNodes = %v", got)
	}

	// fan-in is not branching
	join := quickSnapshot([]string{"a", "b", "c"}, [][2]string{{"a", "c"}, {"b", "c"}})
	if HasBranchingLogic(join) {
		t.Error("in-degree 2 should not count as branching")
	}
}

func TestHasValidStructure(t *testing.T) {
	if HasValidStructure(quickSnapshot([]string{"t:manual_trigger"}, nil)) {
		t.Error("trigger without edges should be invalid")
	}
	if HasValidStructure(quickSnapshot([]string{"a", "b"}, [][2]string{{"a", "b"}})) {
		t.Error("edges without trigger should be invalid")
	}
	if !HasValidStructure(quickSnapshot([]string{"t:webhook_trigger", "b"}, [][2]string{{"t", "b"}})) {
		t.Error("trigger plus edge should be valid")
	}

	s := quickSnapshot([]string{"t:manual_trigger"}, [][2]string{{"t", "ghost"}})
	if s.LiveEdgeCount() != 0 {
		t.Errorf("LiveEdgeCount = %d, want 0", s.LiveEdgeCount())
	}
	if HasValidStructure(s) {
		t.Error("an edge to an unknown node should not make the structure valid")
	}
}

func TestIsSequentialFlow_UsesFirstTrigger(t *testing.T) {
	s := quickSnapshot(
		[]string{"t1:manual_trigger", "t2:webhook_trigger", "a"},
		[][2]string{{"t2", "a"}},
	)
	if IsSequentialFlow(s) {
		t.Error("first trigger has no outgoing edge")
	}

	s = quickSnapshot([]string{"t:manual_trigger", "a", "b"}, [][2]string{{"t", "a"}})
	if !IsSequentialFlow(s) {
		t.Error("lenient check only needs one edge out of the trigger")
	}
	if got := UnreachableFromTriggers(s); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("strict check should report b, got %v", got)
	}
}

func TestUnreachableFromTriggers_NoTrigger(t *testing.T) {
	s := quickSnapshot([]string{"a", "b"}, [][2]string{{"a", "b"}})
	if got := UnreachableFromTriggers(s); got != nil {
		t.Errorf("expected nil without trigger, got %v", got)
	}
}

func TestForwardDataFlow(t *testing.T) {
	s := quickSnapshot([]string{"a", "b"}, [][2]string{{"a", "b"}})
	if !HasForwardDataFlow(s) {
		t.Error("left-to-right edge should be forward")
	}

	s = quickSnapshot([]string{"a", "b"}, [][2]string{{"b", "a"}})
	if HasForwardDataFlow(s) {
		t.Error("right-to-left edge should be backward")
	}
	if got := BackwardEdges(s); len(got) != 1 || got[0].Source != "b" {
		t.Errorf("BackwardEdges = %v", got)
	}

	// same x counts as forward
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{{Source: "b", Target: "a"}},
	}
	if !HasForwardDataFlow(NewSnapshot(g)) {
		t.Error("equal x should be forward")
	}

	s = quickSnapshot([]string{"t:manual_trigger"}, [][2]string{{"t", "ghost"}})
	if HasForwardDataFlow(s) {
		t.Error("edge to an unknown node should fail forward flow")
	}
	if got := DanglingEdges(s); len(got) != 1 || got[0].Target != "ghost" {
		t.Errorf("DanglingEdges = %v", got)
	}
	if got := BackwardEdges(s); len(got) != 0 {
		t.Errorf("dangling edge should not count as backward, got %v", got)
	}
}

func TestHasAIInputs(t *testing.T) {
	s := quickSnapshot([]string{"t:manual_trigger", "m:gpt_model"}, [][2]string{{"t", "m"}})
	if !HasAIInputs(s) {
		t.Error("fed AI node should pass")
	}
	s = quickSnapshot([]string{"m:gpt_model", "t:text_filter"}, [][2]string{{"m", "t"}})
	if HasAIInputs(s) {
		t.Error("AI node without input should fail")
	}
	if got := AINodesWithoutInput(s); len(got) != 1 || got[0].ID != "m" {
		t.Errorf("AINodesWithoutInput = %v", got)
	}
	if !HasAIInputs(quickSnapshot([]string{"a"}, nil)) {
		t.Error("no AI nodes should pass vacuously")
	}
}

func TestErrorHandlingAndCategories(t *testing.T) {
	s := quickSnapshot([]string{"a:try_catch", "c:if_else", "m:merge"}, nil)
	if !HasErrorHandlingNodes(s) || !HasConditionNodes(s) || !HasMergeNodes(s) {
		t.Error("expected error handling, condition and merge")
	}
	s = quickSnapshot([]string{"a:gpt_model"}, nil)
	if HasErrorHandlingNodes(s) || HasConditionNodes(s) || HasMergeNodes(s) {
		t.Error("expected none")
	}
	if !IsErrorHandlingType("error_handler") || IsErrorHandlingType("http_request") {
		t.Error("IsErrorHandlingType mismatch")
	}
}

func TestMissingConfig(t *testing.T) {
	g := &Graph{Nodes: []Node{
		{ID: "h", Type: "http_request", Data: map[string]any{"url": "https://x", "method": "  "}},
		{ID: "m", Type: "gpt_model", Data: map[string]any{"prompt": nil}},
		{ID: "c", Type: "condition"},
	}}
	got := MissingConfig(NewSnapshot(g), map[string][]string{
		"http_request": {"url", "method"},
		"ai":           {"prompt"},
	})
	want := []MissingField{{NodeID: "h", Field: "method"}, {NodeID: "m", Field: "prompt"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingConfig = %v, want %v", got, want)
	}
}

// --- Topology Tests ---

func TestTopology_EmptyGraph(t *testing.T) {
	r := ComputeTopology(NewSnapshot(nil), 3, 10)
	if r.TotalNodes != 0 || r.TotalEdges != 0 || r.NumComponents != 0 {
		t.Errorf("empty graph should have all zeros, got nodes=%d edges=%d components=%d",
			r.TotalNodes, r.TotalEdges, r.NumComponents)
	}
}

func TestTopology_TwoComponents(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C", "D", "E"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"D", "E"}},
	)
	r := ComputeTopology(snap, 3, 10)
	if r.NumComponents != 2 {
		t.Errorf("expected 2 components, got %d", r.NumComponents)
	}
	if r.LargestComponent != 3 || r.SmallestComponent != 2 {
		t.Errorf("expected 3/2, got %d/%d", r.LargestComponent, r.SmallestComponent)
	}
	if !reflect.DeepEqual(r.EntryIDs, []string{"A", "D"}) {
		t.Errorf("EntryIDs = %v", r.EntryIDs)
	}
	if !reflect.DeepEqual(r.ExitIDs, []string{"C", "E"}) {
		t.Errorf("ExitIDs = %v", r.ExitIDs)
	}
}

func TestTopology_OrphansAndDangling(t *testing.T) {
	snap := quickSnapshot([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"A", "ghost"}})
	r := ComputeTopology(snap, 3, 10)
	if r.OrphanCount != 1 || r.OrphanIDs[0] != "C" {
		t.Errorf("expected orphan C, got %v", r.OrphanIDs)
	}
	if r.DanglingEdges != 1 {
		t.Errorf("expected 1 dangling edge, got %d", r.DanglingEdges)
	}
}

func TestHub_Detection(t *testing.T) {
	snap := quickSnapshot(
		[]string{"center:merge", "s1", "s2", "s3", "s4"},
		[][2]string{{"s1", "center"}, {"s2", "center"}, {"s3", "center"}, {"center", "s4"}},
	)
	r := ComputeTopology(snap, 3, 10)
	if len(r.Hubs) != 1 {
		t.Fatalf("expected 1 hub, got %d", len(r.Hubs))
	}
	h := r.Hubs[0]
	if h.ID != "center" || h.InDegree != 3 || h.OutDegree != 1 || h.Category != CategoryMerge {
		t.Errorf("unexpected hub %+v", h)
	}
}

// --- Tarjan Tests ---

func TestTarjan_Bridge(t *testing.T) {
	r := ComputeBridges(quickSnapshot([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}}))
	if r.BridgeCount != 2 {
		t.Errorf("expected 2 bridges, got %d", r.BridgeCount)
	}
	if r.APCount != 1 || r.ArticulationPoints[0].ID != "B" {
		t.Errorf("B should be the only AP, got %v", r.ArticulationPoints)
	}
}

func TestTarjan_CycleNoBridges(t *testing.T) {
	r := ComputeBridges(quickSnapshot([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}))
	if r.BridgeCount != 0 || r.APCount != 0 {
		t.Errorf("triangle should have no bridges or APs, got %d/%d", r.BridgeCount, r.APCount)
	}
}

func TestTarjan_TwoCyclesJoined(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C", "D", "E", "F"},
		[][2]string{
			{"A", "B"}, {"B", "C"}, {"C", "A"}, // triangle 1
			{"D", "E"}, {"E", "F"}, {"F", "D"}, // triangle 2
			{"C", "D"}, // bridge
		},
	)
	r := ComputeBridges(snap)
	if r.BridgeCount != 1 {
		t.Errorf("expected 1 bridge (C-D), got %d", r.BridgeCount)
	}
	apIDs := make(map[string]bool)
	for _, ap := range r.ArticulationPoints {
		apIDs[ap.ID] = true
	}
	if len(apIDs) != 2 || !apIDs["C"] || !apIDs["D"] {
		t.Errorf("C and D should be APs, got %v", apIDs)
	}
}

func TestTarjan_ParallelEdgesAreNotBridges(t *testing.T) {
	// duplicated edges collapse to one undirected edge
	r := ComputeBridges(quickSnapshot([]string{"A", "B"}, [][2]string{{"A", "B"}, {"B", "A"}}))
	if r.BridgeCount != 1 {
		t.Errorf("expected 1 bridge, got %d", r.BridgeCount)
	}
}

// --- UnionFind Tests ---

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind([]string{"a", "b", "c", "d"})
	if !uf.Union("a", "b") || uf.Union("b", "a") {
		t.Error("Union should report merges only once")
	}
	uf.Union("c", "d")
	if uf.Connected("a", "c") {
		t.Error("a and c should be separate")
	}
	uf.Union("b", "d")
	if !uf.Connected("a", "c") {
		t.Error("a and c should be joined")
	}
	if got := uf.Components(); len(got) != 1 || len(got[0]) != 4 {
		t.Errorf("Components = %v", got)
	}
	if uf.Find("zzz") != "zzz" {
		t.Error("unknown id should be its own root")
	}
}

// --- Health Tests ---

func TestHealthScore_Empty(t *testing.T) {
	r := Analyze(NewSnapshot(nil), nil)
	if r.HealthScore != 0 {
		t.Errorf("empty workflow should score 0, got %f", r.HealthScore)
	}
}

func TestHealthScore_Range(t *testing.T) {
	r := Analyze(quickSnapshot([]string{"A", "B", "C"}, nil), DefaultConfig())
	if r.HealthScore < 0 || r.HealthScore > 1 {
		t.Errorf("health out of range: %f", r.HealthScore)
	}
	if r.HealthBreakdown.Connectivity != 0 {
		t.Errorf("all orphans should have zero connectivity, got %f", r.HealthBreakdown.Connectivity)
	}
}

func TestHealthScore_Perfect(t *testing.T) {
	snap := quickSnapshot(
		[]string{"t:manual_trigger", "B", "C"},
		[][2]string{{"t", "B"}, {"B", "C"}, {"C", "t"}},
	)
	r := Analyze(snap, &AnalyzerConfig{HubThreshold: 10, TopN: 50})
	if r.HealthScore < 0.99 {
		t.Errorf("reachable cycle should have health ~1.0, got %f", r.HealthScore)
	}
}

func TestHealthScore_NoTriggerLosesReachability(t *testing.T) {
	snap := quickSnapshot([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}})
	r := Analyze(snap, nil)
	if r.HealthBreakdown.Reachability != 0 {
		t.Errorf("expected zero reachability without trigger, got %f", r.HealthBreakdown.Reachability)
	}
	if r.HealthScore > 0.66 {
		t.Errorf("expected score <= 0.65, got %f", r.HealthScore)
	}
}

// --- Load Tests ---

func TestLoad_JSONAndYAML(t *testing.T) {
	js := `{"nodes":[{"id":"t","type":"manual_trigger","position":{"x":1,"y":2}}],
	        "edges":[{"id":"e","source":"t","target":"t","sourceHandle":"out"}]}`
	g, err := Load([]byte(js), ".json")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].Position.X != 1 || g.Edges[0].SourceHandle != "out" {
		t.Errorf("unexpected graph %+v", g)
	}

	yml := "nodes:\n  - id: t\n    type: manual_trigger\n    category: trigger\nedges: []\n"
	g, err = Load([]byte(yml), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].Category != CategoryTrigger {
		t.Errorf("unexpected graph %+v", g)
	}
}

func TestLoad_WrappedExport(t *testing.T) {
	g, err := Load([]byte(`{"workflow":{"nodes":[{"id":"a","type":"merge"}],"edges":[]}}`), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "a" {
		t.Errorf("wrapped export not unwrapped: %+v", g)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load([]byte("   "), ".json"); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Load([]byte("{bad"), ".json"); err == nil || !strings.Contains(err.Error(), "parse graph json") {
		t.Errorf("expected json parse error, got %v", err)
	}
}

// --- Persistence Tests ---

func TestSaveAndLoadFromDB(t *testing.T) {
	d, err := db.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	g := quickGraph([]string{"t:manual_trigger", "m:gpt_model"}, [][2]string{{"t", "m"}})
	g.Nodes[1].Category = CategoryAI
	g.Nodes[1].Data = map[string]any{"prompt": "summarize", "temperature": 0.2}
	g.Edges[0].TargetHandle = "in"

	id, err := SaveToDB(d, "", "demo", g)
	if err != nil {
		t.Fatal(err)
	}

	got, err := LoadFromDB(d, id)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, g) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, g)
	}

	snap, err := SnapshotFromDB(d, id, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !IsSequentialFlow(snap) {
		t.Error("loaded snapshot should keep adjacency")
	}

	if _, err := LoadFromDB(d, "missing"); err == nil {
		t.Error("expected error for unknown workflow")
	}
}
