package schema

import (
	"fmt"
	"sort"
)

// NodeState is the per-node enable-state machine:
//
//	disabled --set_node_state--> enabled --set_node_state--> enabled-with-children
//	    ^------------------ disable-module ------------------------/
type NodeState int

const (
	Disabled NodeState = iota
	Enabled
	EnabledWithChildren
)

func (s NodeState) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	case EnabledWithChildren:
		return "enabled-with-children"
	default:
		return "unknown"
	}
}

// Name identifies a YANG module by name and optional revision; an empty
// Revision means "latest installed", matching load(name, revision?).
type Name struct {
	Module   string
	Revision string // empty means unspecified/latest
}

func (n Name) String() string {
	if n.Revision == "" {
		return n.Module
	}
	return fmt.Sprintf("%s@%s", n.Module, n.Revision)
}

// Submodule is a revision-stamped submodule belonging to a Module.
type Submodule struct {
	Name     string
	Revision string
}

// Module is the schema catalog's unit of ownership: a loaded
// YANG module with its enabled feature set, per-node enable state and
// submodule list. Only the Catalog holds a strong reference; every other
// component (data manager, notification processor, request processor)
// keys off Name and borrows through Catalog.Get.
type Module struct {
	Name       string
	Revision   string
	Submodules []Submodule

	// FilePaths are the on-disk schema source files (YANG text),
	// exposed for get_schema/list_schemas.
	FilePaths []string

	features map[string]bool
	nodes    map[string]NodeState
	disabled bool // soft-uninstalled: retained, not served
}

func newModule(name Name) *Module {
	return &Module{
		Name:     name.Module,
		Revision: name.Revision,
		features: make(map[string]bool),
		nodes:    make(map[string]NodeState),
	}
}

// EnabledFeatures returns the sorted set of enabled feature names.
func (m *Module) EnabledFeatures() []string {
	out := make([]string, 0, len(m.features))
	for f, on := range m.features {
		if on {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Module) featureEnabled(name string) bool {
	return m.features[name]
}

// NodeState returns the node's own enable state (not accounting for
// ancestor enabled-with-children propagation; use Catalog.EffectiveState
// for that).
func (m *Module) NodeState(path string) NodeState {
	if s, ok := m.nodes[path]; ok {
		return s
	}
	return Disabled
}

func (m *Module) setNodeState(path string, s NodeState) {
	m.nodes[path] = s
}
