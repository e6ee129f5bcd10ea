package research

// Tree is one node of the exploration tree reported by the research backend:
// the query it ran, the sources it consulted, and the follow-up queries it
// spawned. Trees arrive whole in each server payload and are never mutated in
// place; an update replaces the entire tree on the owning message.
type Tree struct {
	Query    string   `json:"query"`
	Depth    int      `json:"depth"`
	Sources  []string `json:"sources,omitempty"`
	Children []*Tree  `json:"children,omitempty"`
}

// Walk visits the tree depth-first in pre-order (node before children,
// children in order). A nil receiver is a no-op.
func (t *Tree) Walk(fn func(node *Tree, parent *Tree)) {
	if t == nil {
		return
	}
	t.walk(nil, fn)
}

func (t *Tree) walk(parent *Tree, fn func(node *Tree, parent *Tree)) {
	fn(t, parent)
	for _, child := range t.Children {
		if child == nil {
			continue
		}
		child.walk(t, fn)
	}
}
