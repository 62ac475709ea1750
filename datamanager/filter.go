package datamanager

import (
	"github.com/sysrepo-go/core/datatree"
)

// Filter implements rp_dt_filter.c's subtree selection: a node matches a
// requested path if it is the node itself, a descendant of it, or an
// ancestor needed to reach it (so get_items returns a connected subtree,
// not just leaves). Its path test, datatree.PathIntersects, is the same
// one the notification processor's subscription-match predicate calls,
// since both ask "does this path intersect this subtree".
func Filter(root *datatree.Node, requestedPath string) []*datatree.Node {
	var out []*datatree.Node
	root.Walk(func(n *datatree.Node) bool {
		if datatree.PathIntersects(n.Path, requestedPath) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// GetItem returns the single node at path, or nil.
func GetItem(root *datatree.Node, path string) *datatree.Node {
	segs, err := datatree.SplitPath(path)
	if err != nil {
		return nil
	}
	return root.Find(segs)
}

// GetItems returns every leaf/leaf-list node within the subtree rooted
// at path.
func GetItems(root *datatree.Node, path string) []*datatree.Node {
	base := GetItem(root, path)
	if base == nil {
		return nil
	}
	var out []*datatree.Node
	base.Walk(func(n *datatree.Node) bool {
		if n.IsLeaf() {
			out = append(out, n)
		}
		return true
	})
	return out
}
