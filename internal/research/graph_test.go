package research

import "testing"

func TestBuildGraph(t *testing.T) {
	tree := &Tree{
		Query:   "quantum computing",
		Depth:   0,
		Sources: []string{"https://a.com/x", "https://a.com/y"},
		Children: []*Tree{
			{Query: "qubits", Depth: 1, Sources: []string{"https://b.com/"}},
			{Query: "entanglement", Depth: 1},
		},
	}

	nodes, edges := BuildGraph(tree)

	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	root := nodes[0]
	if root.ID != "quantum computing_0" || root.Label != "quantum computing" || root.SourceCount != 2 {
		t.Errorf("unexpected root node %+v", root)
	}
	if root.Height != nodeHeight {
		t.Errorf("expected height %v, got %v", nodeHeight, root.Height)
	}

	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Source != "quantum computing_0" {
			t.Errorf("edge source %q, want root", e.Source)
		}
	}
}

func TestBuildGraphCollapsesDuplicateQueryAndDepth(t *testing.T) {
	// The same query explored at the same depth under two parents is one node
	// with two inbound edges.
	tree := &Tree{
		Query: "root",
		Depth: 0,
		Children: []*Tree{
			{
				Query:    "left",
				Depth:    1,
				Children: []*Tree{{Query: "shared", Depth: 2}},
			},
			{
				Query:    "right",
				Depth:    1,
				Children: []*Tree{{Query: "shared", Depth: 2}},
			},
		},
	}

	nodes, edges := BuildGraph(tree)

	if len(nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(nodes))
	}
	if len(edges) != 4 {
		t.Fatalf("expected 4 edges, got %d", len(edges))
	}

	inbound := 0
	for _, e := range edges {
		if e.Target == "shared_2" {
			inbound++
		}
	}
	if inbound != 2 {
		t.Errorf("expected 2 inbound edges to collapsed node, got %d", inbound)
	}
}

func TestBuildGraphNilTree(t *testing.T) {
	nodes, edges := BuildGraph(nil)
	if nodes == nil || edges == nil {
		t.Error("expected non-nil empty slices")
	}
	if len(nodes) != 0 || len(edges) != 0 {
		t.Errorf("expected empty graph, got %d nodes %d edges", len(nodes), len(edges))
	}
}

func TestNodeWidthClamps(t *testing.T) {
	cases := []struct {
		label string
		want  float64
	}{
		{"ab", nodeMinWidth},
		{"exactly forty characters of query text!!", 240},
		{"this label is far far far too long to fit inside the widest node card we allow", nodeMaxWidth},
	}

	for _, tc := range cases {
		if got := nodeWidth(tc.label); got != tc.want {
			t.Errorf("nodeWidth(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}
