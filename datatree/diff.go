package datatree

import "github.com/sysrepo-go/core/value"

// ChangeOp is the diff-to-change translation's operation tag.
type ChangeOp int

const (
	Created ChangeOp = iota
	Deleted
	Changed
	MovedAfter1
	MovedAfter2
)

func (o ChangeOp) String() string {
	switch o {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Changed:
		return "changed"
	case MovedAfter1:
		return "moved-after-1"
	case MovedAfter2:
		return "moved-after-2"
	default:
		return "unknown"
	}
}

// ChangeRecord is the diff entry consumed by the notification processor
// and by get_changes.
type ChangeRecord struct {
	Op          ChangeOp
	Path        string
	OldValue    *value.Value
	NewValue    *value.Value
	Predecessor string // for MovedAfter*: the new predecessor path, "" == head
}

// Diff computes the ordered ChangeRecord stream between pre and post
// trees. Container/list creation or deletion expands into a depth-first
// walk emitting Created/Deleted for each descendant leaf, never for the
// container/list node itself.
func Diff(pre, post *Node) []ChangeRecord {
	var out []ChangeRecord
	diffChildren(pre, post, &out)
	return out
}

func diffChildren(pre, post *Node, out *[]ChangeRecord) {
	preByKey := indexChildren(pre)
	postByKey := indexChildren(post)
	preOrder := childOrder(pre)
	postOrder := childOrder(post)

	for _, key := range preOrder {
		if _, ok := postByKey[key]; !ok {
			emitSubtree(preByKey[key], Deleted, out)
		}
	}

	// Common-key relative order, to detect moves among surviving
	// children (leaf-list / user-ordered list reordering).
	preCommonIdx := make(map[string]int)
	i := 0
	for _, key := range preOrder {
		if _, ok := postByKey[key]; ok {
			preCommonIdx[key] = i
			i++
		}
	}
	postCommonIdx := make(map[string]int)
	j := 0
	for _, key := range postOrder {
		if _, ok := preByKey[key]; ok {
			postCommonIdx[key] = j
			j++
		}
	}

	for idx, key := range postOrder {
		postChild := postByKey[key]
		preChild, existed := preByKey[key]
		if !existed {
			emitSubtree(postChild, Created, out)
			continue
		}
		if postChild.IsLeaf() {
			if !value.Equal(preChild.Value, postChild.Value) {
				*out = append(*out, ChangeRecord{
					Op: Changed, Path: postChild.Path,
					OldValue: preChild.Value, NewValue: postChild.Value,
				})
			}
		} else {
			diffChildren(preChild, postChild, out)
		}
		if preCommonIdx[key] != postCommonIdx[key] {
			var predecessor string
			if idx > 0 {
				predecessor = postByKey[postOrder[idx-1]].Path
			}
			*out = append(*out, ChangeRecord{
				Op: MovedAfter1, Path: postChild.Path, Predecessor: predecessor,
			})
			*out = append(*out, ChangeRecord{
				Op: MovedAfter2, Path: postChild.Path, Predecessor: predecessor,
			})
		}
	}
}

func indexChildren(n *Node) map[string]*Node {
	m := make(map[string]*Node)
	if n == nil {
		return m
	}
	for _, c := range n.Children {
		m[childKey(c)] = c
	}
	return m
}

func childOrder(n *Node) []string {
	if n == nil {
		return nil
	}
	order := make([]string, len(n.Children))
	for i, c := range n.Children {
		order[i] = childKey(c)
	}
	return order
}

func childKey(n *Node) string {
	return n.Seg.String()
}

func emitSubtree(n *Node, op ChangeOp, out *[]ChangeRecord) {
	n.Walk(func(cur *Node) bool {
		if cur.IsLeaf() {
			rec := ChangeRecord{Op: op, Path: cur.Path}
			if op == Created {
				rec.NewValue = cur.Value
			} else {
				rec.OldValue = cur.Value
			}
			*out = append(*out, rec)
		}
		return true // keep walking into containers/lists, they emit nothing themselves
	})
}
