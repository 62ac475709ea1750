package datatree

import (
	"github.com/sysrepo-go/core/value"
)

// Node is one element of a parsed configuration tree: a container, list
// entry, leaf or leaf-list entry. Leaves carry a Value; containers and
// list entries carry ordered Children.
type Node struct {
	Seg      Segment
	Path     string
	Value    *value.Value // non-nil for leaf / leaf-list entries
	Children []*Node
	Presence bool // true for a presence container explicitly created
	Default  bool // true if this node exists only as a schema default
}

// NewRoot creates an empty root container for a module's working tree.
func NewRoot(module string) *Node {
	return &Node{Seg: Segment{Name: module}, Path: "/" + module}
}

func (n *Node) childByName(name string) *Node {
	for _, c := range n.Children {
		if c.Seg.Name == name && len(c.Seg.Preds) == 0 {
			return c
		}
	}
	return nil
}

func (n *Node) childByPreds(name string, preds []Pred) *Node {
	for _, c := range n.Children {
		if c.Seg.Name != name || len(c.Seg.Preds) != len(preds) {
			continue
		}
		match := true
		for _, want := range preds {
			found := false
			for _, have := range c.Seg.Preds {
				if have.Key == want.Key && have.Value == want.Value {
					found = true
					break
				}
			}
			if !found {
				match = false
				break
			}
		}
		if match {
			return c
		}
	}
	return nil
}

func (n *Node) child(seg Segment) *Node {
	if len(seg.Preds) == 0 {
		return n.childByName(seg.Name)
	}
	return n.childByPreds(seg.Name, seg.Preds)
}

// Find walks segs from n and returns the matching descendant, or nil.
func (n *Node) Find(segs []Segment) *Node {
	cur := n
	for _, s := range segs {
		if cur == nil {
			return nil
		}
		cur = cur.child(s)
	}
	return cur
}

// Clone deep-copies the subtree rooted at n, used for copy-on-write
// working copies and pre/post commit snapshots (CommitContext
// pre-trees/post-trees).
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := &Node{
		Seg:      n.Seg,
		Path:     n.Path,
		Presence: n.Presence,
		Default:  n.Default,
	}
	if n.Value != nil {
		clone.Value = n.Value.Clone()
	}
	if len(n.Children) > 0 {
		clone.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			clone.Children[i] = c.Clone()
		}
	}
	return clone
}

// Walk invokes fn for every node in the subtree, depth-first, pre-order.
// Returning false from fn stops the walk for that subtree's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// IsLeaf reports whether n carries a scalar Value rather than Children.
func (n *Node) IsLeaf() bool { return n.Value != nil }

// IsContainerOrList reports whether n is a structural node whose
// creation/deletion should expand into leaf-level diff records.
func (n *Node) IsContainerOrList() bool {
	return n.Value == nil
}
