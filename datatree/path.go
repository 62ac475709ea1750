// Package datatree is the minimal in-memory configuration tree this core
// manipulates directly (set/delete/move, diff, copy-on-write snapshots).
// It deliberately does not parse YANG or validate against a schema —
// that remains the external schema/data-tree library boundary; datatree
// only knows how to address, mutate and walk the restricted-XPath tree
// shape that library would otherwise own.
package datatree

import "strings"

// Segment is one step of an absolute path: /mod:node/sub or a list entry
// /mod:list[key1='a'][key2='b'].
type Segment struct {
	Module string // qualifying module, only ever set on the first segment in practice
	Name   string
	Preds  []Pred // list key predicates, in document order
}

type Pred struct {
	Key   string
	Value string
}

// String renders the segment back into its wire form.
func (s Segment) String() string {
	var b strings.Builder
	if s.Module != "" {
		b.WriteString(s.Module)
		b.WriteByte(':')
	}
	b.WriteString(s.Name)
	for _, p := range s.Preds {
		b.WriteByte('[')
		b.WriteString(p.Key)
		b.WriteString(`='`)
		b.WriteString(p.Value)
		b.WriteString(`']`)
	}
	return b.String()
}

// SplitPath parses an absolute restricted-XPath path into segments. Only
// child axes and list-key predicates are supported.
func SplitPath(path string) ([]Segment, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, "/")
	segs := make([]Segment, 0, len(parts))
	for i, p := range parts {
		seg, err := parseSegment(p)
		if err != nil {
			return nil, err
		}
		if i == 0 && seg.Module == "" {
			// absolute paths are module-qualified at the root
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(p string) (Segment, error) {
	var seg Segment
	name := p
	if idx := strings.IndexByte(p, '['); idx >= 0 {
		name = p[:idx]
		rest := p[idx:]
		for len(rest) > 0 {
			if rest[0] != '[' {
				break
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				break
			}
			predStr := rest[1:end]
			eq := strings.IndexByte(predStr, '=')
			if eq > 0 {
				key := predStr[:eq]
				val := strings.Trim(predStr[eq+1:], `'"`)
				seg.Preds = append(seg.Preds, Pred{Key: key, Value: val})
			}
			rest = rest[end+1:]
		}
	}
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		seg.Module = name[:idx]
		seg.Name = name[idx+1:]
	} else {
		seg.Name = name
	}
	return seg, nil
}

// JoinPath renders segments back to an absolute path string.
func JoinPath(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// ParentPath returns the path with its last segment removed, or "" if
// path is already a root segment.
func ParentPath(path string) string {
	segs, err := SplitPath(path)
	if err != nil || len(segs) <= 1 {
		return ""
	}
	return JoinPath(segs[:len(segs)-1])
}

// PathIntersects reports whether a is the same as, a descendant of, or
// an ancestor of b. This is the one "does this path intersect this
// subtree" primitive rp_dt_filter.c answers for get_items filtering and
// the subscription-match predicate both need: datamanager.Filter and
// notify.MatchesSubscription both call this instead of each
// re-implementing prefix comparison.
func PathIntersects(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
