package datatree

import (
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/value"
)

// EditOptions is the bitset carried by every EditOp.
type EditOptions uint8

const (
	OptDefault EditOptions = 1 << iota
	OptNonRecursive
	OptStrict
)

func (o EditOptions) has(f EditOptions) bool { return o&f != 0 }

// Set creates or replaces the node at path with v, creating missing
// ancestor containers unless OptNonRecursive is set. Set does not tell a
// leaf-list from a leaf: a path without a predicate replaces the value
// of the existing node of that name, and separate leaf-list entries
// exist only when each is addressed with its own [.='value'] predicate.
func (root *Node) Set(path string, v *value.Value, opts EditOptions) error {
	segs, err := SplitPath(path)
	if err != nil {
		return mgmterror.NewInvalidArgumentError("bad path %q: %v", path, err)
	}
	if len(segs) == 0 {
		return mgmterror.NewInvalidArgumentError("empty path")
	}
	cur := root
	for i, seg := range segs {
		last := i == len(segs)-1
		existing := cur.child(seg)
		if existing == nil {
			if !last && opts.has(OptNonRecursive) {
				return mgmterror.NewInvalidArgumentError(
					"ancestor %s does not exist (non-recursive)", seg.Name)
			}
			existing = &Node{Seg: seg, Path: JoinPath(segs[:i+1])}
			cur.Children = append(cur.Children, existing)
		} else if last && opts.has(OptStrict) {
			return mgmterror.NewDataExistsError(path)
		}
		cur = existing
	}
	if v != nil {
		cur.Value = v
		cur.Default = opts.has(OptDefault)
	} else {
		cur.Presence = true
	}
	return nil
}

// Delete removes the node at path. OptStrict requires it to be present;
// OptNonRecursive forbids deleting a non-empty container or list entry.
func (root *Node) Delete(path string, opts EditOptions) error {
	segs, err := SplitPath(path)
	if err != nil {
		return mgmterror.NewInvalidArgumentError("bad path %q: %v", path, err)
	}
	if len(segs) == 0 {
		return mgmterror.NewInvalidArgumentError("empty path")
	}
	parentSegs := segs[:len(segs)-1]
	target := segs[len(segs)-1]
	parent := root.Find(parentSegs)
	if parent == nil {
		if opts.has(OptStrict) {
			return mgmterror.NewDataMissingError(path)
		}
		return nil
	}
	for i, c := range parent.Children {
		if c.Seg.Name != target.Name {
			continue
		}
		if len(target.Preds) > 0 && parent.child(target) != c {
			continue
		}
		if opts.has(OptNonRecursive) && len(c.Children) > 0 {
			return mgmterror.NewInvalidArgumentError(
				"cannot delete non-empty node %s (non-recursive)", path)
		}
		parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
		return nil
	}
	if opts.has(OptStrict) {
		return mgmterror.NewDataMissingError(path)
	}
	return nil
}

// Move repositions the leaf-list/list entry at path relative to
// relativePath according to position. relativePath == "" with
// position == After means "move to head".
type MovePosition int

const (
	MoveFirst MovePosition = iota
	MoveLast
	MoveBefore
	MoveAfter
)

func (root *Node) Move(path string, pos MovePosition, relativePath string) error {
	segs, err := SplitPath(path)
	if err != nil || len(segs) == 0 {
		return mgmterror.NewInvalidArgumentError("bad path %q", path)
	}
	parentSegs := segs[:len(segs)-1]
	target := segs[len(segs)-1]
	parent := root.Find(parentSegs)
	if parent == nil {
		return mgmterror.NewDataMissingError(path)
	}
	idx := -1
	for i, c := range parent.Children {
		if c.Seg.Name == target.Name && segEquals(c.Seg, target) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return mgmterror.NewDataMissingError(path)
	}
	moved := parent.Children[idx]
	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)

	switch pos {
	case MoveFirst:
		parent.Children = append([]*Node{moved}, parent.Children...)
		return nil
	case MoveLast:
		parent.Children = append(parent.Children, moved)
		return nil
	}

	relSegs, err := SplitPath(relativePath)
	if err != nil {
		return mgmterror.NewInvalidArgumentError("bad relative path %q", relativePath)
	}
	if len(relSegs) == 0 {
		// null relative path: before => head, after => head as well.
		parent.Children = append([]*Node{moved}, parent.Children...)
		return nil
	}
	relTarget := relSegs[len(relSegs)-1]
	relIdx := -1
	for i, c := range parent.Children {
		if c.Seg.Name == relTarget.Name && segEquals(c.Seg, relTarget) {
			relIdx = i
			break
		}
	}
	if relIdx < 0 {
		return mgmterror.NewDataMissingError(relativePath)
	}
	insertAt := relIdx
	if pos == MoveAfter {
		insertAt = relIdx + 1
	}
	out := make([]*Node, 0, len(parent.Children)+1)
	out = append(out, parent.Children[:insertAt]...)
	out = append(out, moved)
	out = append(out, parent.Children[insertAt:]...)
	parent.Children = out
	return nil
}

func segEquals(a, b Segment) bool {
	if a.Name != b.Name || len(a.Preds) != len(b.Preds) {
		return false
	}
	for _, pa := range a.Preds {
		found := false
		for _, pb := range b.Preds {
			if pa.Key == pb.Key && pa.Value == pb.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
