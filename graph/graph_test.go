package graph

import (
	"testing"
)

func TestPortFromHandle(t *testing.T) {
	tests := []struct {
		handle string
		want   string
	}{
		{"node1-output-result", "result"},
		{"node2-input-text", "text"},
		{"node2-input-trigger", "trigger"},
		{"my-node-output-True", "True"},
		{"garbage", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := PortFromHandle(tt.handle); got != tt.want {
			t.Errorf("PortFromHandle(%q) = %q, want %q", tt.handle, got, tt.want)
		}
	}
}

func TestEdgeTriggerClassification(t *testing.T) {
	e := newEdge("e1", "node1", "node2", "node1-output-result", "node2-input-trigger")
	if !e.IsTrigger {
		t.Errorf("edge targeting trigger port should be classified IsTrigger")
	}

	e = newEdge("e2", "node1", "node2", "node1-output-result", "node2-input-text")
	if e.IsTrigger {
		t.Errorf("edge targeting data port should not be classified IsTrigger")
	}
	if e.TargetPort != "text" {
		t.Errorf("TargetPort = %q, want %q", e.TargetPort, "text")
	}
}

func TestEdgeBranchName(t *testing.T) {
	e := newEdge("e1", "gateway", "next", "gateway-output-True", "next-input-trigger")
	if e.BranchName != "True" {
		t.Errorf("BranchName = %q, want %q", e.BranchName, "True")
	}

	e = newEdge("e2", "a", "b", "a-output-default", "b-input-text")
	if e.BranchName != "" {
		t.Errorf("default output port should not become a branch name, got %q", e.BranchName)
	}
}

func TestBuildDropsEdgesToUnknownNodes(t *testing.T) {
	nodes := []Node{
		{ID: "a", ProcessorType: "echo"},
		{ID: "b", ProcessorType: "echo"},
	}
	edges := []Edge{
		newEdge("e1", "a", "b", "a-output-result", "b-input-text"),
		newEdge("e2", "a", "ghost", "a-output-result", "ghost-input-text"),
		newEdge("e3", "phantom", "b", "phantom-output-result", "b-input-text"),
	}

	g := Build("wf1", nodes, edges)

	if len(g.Edges) != 1 {
		t.Fatalf("expected 1 surviving edge, got %d", len(g.Edges))
	}
	if len(g.Warnings) != 2 {
		t.Errorf("expected 2 warnings for dropped edges, got %d: %v", len(g.Warnings), g.Warnings)
	}
	if len(g.Incoming("b")) != 1 || len(g.Outgoing("a")) != 1 {
		t.Errorf("edge index inconsistent after drops")
	}
}

func TestEdgeIndex(t *testing.T) {
	nodes := []Node{
		{ID: "a", ProcessorType: "echo"},
		{ID: "b", ProcessorType: "echo"},
		{ID: "c", ProcessorType: "echo"},
	}
	edges := []Edge{
		newEdge("e1", "a", "b", "a-output-result", "b-input-text"),
		newEdge("e2", "a", "c", "a-output-result", "c-input-text"),
		newEdge("e3", "b", "c", "b-output-result", "c-input-extra"),
	}

	g := Build("wf1", nodes, edges)

	if got := len(g.Outgoing("a")); got != 2 {
		t.Errorf("Outgoing(a) = %d edges, want 2", got)
	}
	if got := len(g.Incoming("c")); got != 2 {
		t.Errorf("Incoming(c) = %d edges, want 2", got)
	}
	if got := len(g.EdgesBetween("a", "b")); got != 1 {
		t.Errorf("EdgesBetween(a,b) = %d edges, want 1", got)
	}
	if got := len(g.EdgesBetween("c", "a")); got != 0 {
		t.Errorf("EdgesBetween(c,a) = %d edges, want 0", got)
	}
}

func TestParseRawDocument(t *testing.T) {
	doc := `{
		"id": "wf-demo",
		"nodes": [
			{"id": "n1", "type": "echo", "data": {"label": "Start", "config": {"x": 1}, "metadata": {"executor_plugin": "echo_processor", "outputs": [{"name": "result"}]}}},
			{"id": "n2", "type": "echo", "data": {"metadata": {}}}
		],
		"edges": [
			{"id": "e1", "source": "n1", "target": "n2", "sourceHandle": "n1-output-result", "targetHandle": "n2-input-text"}
		]
	}`

	g, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.ID != "wf-demo" {
		t.Errorf("graph id = %q", g.ID)
	}

	n1, ok := g.Node("n1")
	if !ok {
		t.Fatal("node n1 missing")
	}
	if n1.ProcessorType != "echo_processor" {
		t.Errorf("executor_plugin should win over type, got %q", n1.ProcessorType)
	}

	n2, _ := g.Node("n2")
	if n2.ProcessorType != "echo" {
		t.Errorf("missing executor_plugin should fall back to type, got %q", n2.ProcessorType)
	}

	if len(g.Edges) != 1 || g.Edges[0].TargetPort != "text" {
		t.Errorf("edge not decoded: %+v", g.Edges)
	}
}

func TestParseRejectsEmptyGraph(t *testing.T) {
	if _, err := Parse([]byte(`{"id": "wf", "nodes": []}`)); err == nil {
		t.Error("graph with no nodes should fail validation")
	}
	if _, err := Parse([]byte(`{"nodes": [{"id": "n1", "type": "echo", "data": {"metadata": {}}}]}`)); err == nil {
		t.Error("graph with no id should fail validation")
	}
}
