package datatree

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/sysrepo-go/core/value"
)

// xmlNode mirrors Node in a form encoding/xml can (de)serialize, matching
// the use of stdlib encoding/xml for on-disk trees
// (server/dispatcher.go, session/edit_config.go) rather than a
// third-party XML library — no example repo in the pack reaches for one
// for this concern.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Value    string     `xml:",chardata"`
	Default  bool       `xml:"default,attr,omitempty"`
	Presence bool       `xml:"presence,attr,omitempty"`
	Type     string     `xml:"type,attr,omitempty"`
	Children []xmlNode  `xml:",any"`
}

// EncodeXML writes root's subtree in the canonical on-disk XML form used
// by the datastore files.
func EncodeXML(w io.Writer, root *Node) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	x := toXML(root)
	if err := enc.Encode(x); err != nil {
		return err
	}
	return enc.Flush()
}

func toXML(n *Node) xmlNode {
	x := xmlNode{XMLName: xml.Name{Local: safeName(n.Seg.Name)}}
	for _, p := range n.Seg.Preds {
		x.Attrs = append(x.Attrs, xml.Attr{Name: xml.Name{Local: "key-" + p.Key}, Value: p.Value})
	}
	x.Default = n.Default
	x.Presence = n.Presence
	if n.Value != nil {
		x.Type = n.Value.Type.String()
		x.Value = fmt.Sprintf("%v", n.Value.Data())
	}
	for _, c := range n.Children {
		x.Children = append(x.Children, toXML(c))
	}
	return x
}

func safeName(name string) string {
	if name == "" {
		return "node"
	}
	return name
}

// DecodeXML parses the canonical on-disk XML form into a working tree
// rooted at module.
func DecodeXML(r io.Reader, module string) (*Node, error) {
	var x xmlNode
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&x); err != nil {
		if err == io.EOF {
			return NewRoot(module), nil
		}
		return nil, err
	}
	root := fromXML(x, "/"+module)
	return root, nil
}

func fromXML(x xmlNode, path string) *Node {
	n := &Node{
		Seg:      Segment{Name: x.XMLName.Local},
		Path:     path,
		Default:  x.Default,
		Presence: x.Presence,
	}
	for _, a := range x.Attrs {
		if len(a.Name.Local) > 4 && a.Name.Local[:4] == "key-" {
			n.Seg.Preds = append(n.Seg.Preds, Pred{Key: a.Name.Local[4:], Value: a.Value})
		}
	}
	if x.Type != "" {
		n.Value = value.New(path, parseValueType(x.Type), x.Value)
	}
	for _, c := range x.Children {
		childPath := path + "/" + c.XMLName.Local
		n.Children = append(n.Children, fromXML(c, childPath))
	}
	return n
}

func parseValueType(s string) value.Type {
	types := map[string]value.Type{
		"binary": value.Binary, "bits": value.Bits, "bool": value.Bool,
		"decimal64": value.Decimal64, "enum": value.Enum,
		"identityref": value.IdentityRef, "instance-id": value.InstanceID,
		"int8": value.Int8, "int16": value.Int16, "int32": value.Int32, "int64": value.Int64,
		"uint8": value.Uint8, "uint16": value.Uint16, "uint32": value.Uint32, "uint64": value.Uint64,
		"string": value.String, "empty": value.Empty,
		"container": value.Container, "container-presence": value.ContainerPresence,
		"list": value.List, "leaf-empty": value.LeafEmpty, "union": value.Union,
	}
	if t, ok := types[s]; ok {
		return t
	}
	return value.Unknown
}
