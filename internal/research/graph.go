package research

import "fmt"

// Node is one positioned graph node. Width and Height describe the rendered
// card's bounding box; X and Y are filled in by the layout simulation.
type Node struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Depth       int     `json:"depth"`
	SourceCount int     `json:"source_count"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// Edge links a parent node to a child node by id.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

const (
	nodeMinWidth = 120.0
	nodeMaxWidth = 300.0
	nodeHeight   = 60.0
	widthPerRune = 6.0
)

// BuildGraph converts a tree into node and edge sets in a single traversal.
// The node id is query text plus depth, so two tree nodes with the same query
// at the same depth collapse into one graph node; their inbound edges all
// point at that node. That flattening is intentional.
func BuildGraph(t *Tree) ([]Node, []Edge) {
	nodes := []Node{}
	edges := []Edge{}
	if t == nil {
		return nodes, edges
	}

	index := make(map[string]bool)
	t.Walk(func(node *Tree, parent *Tree) {
		id := nodeID(node)
		if !index[id] {
			index[id] = true
			nodes = append(nodes, Node{
				ID:          id,
				Label:       node.Query,
				Depth:       node.Depth,
				SourceCount: len(node.Sources),
				Width:       nodeWidth(node.Query),
				Height:      nodeHeight,
			})
		}
		if parent != nil {
			edges = append(edges, Edge{Source: nodeID(parent), Target: id})
		}
	})

	return nodes, edges
}

func nodeID(t *Tree) string {
	return fmt.Sprintf("%s_%d", t.Query, t.Depth)
}

func nodeWidth(label string) float64 {
	w := float64(len([]rune(label))) * widthPerRune
	if w < nodeMinWidth {
		return nodeMinWidth
	}
	if w > nodeMaxWidth {
		return nodeMaxWidth
	}
	return w
}
