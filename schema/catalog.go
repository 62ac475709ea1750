package schema

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sysrepo-go/core/mgmterror"
)

// writerPreferringRWMutex is a reader/writer lock that favours writers:
// once a writer is waiting, new readers block behind it instead of being
// able to starve it indefinitely. The standard sync.RWMutex makes no such
// guarantee. No example repo in the corpus carries a writer-preferring
// lock as a library dependency, so this stays on the standard library
// primitives (sync.Mutex + sync.RWMutex) rather than importing one.
type writerPreferringRWMutex struct {
	mu           sync.RWMutex
	writersQueue sync.Mutex
}

func (w *writerPreferringRWMutex) RLock() {
	w.writersQueue.Lock()
	w.writersQueue.Unlock()
	w.mu.RLock()
}

func (w *writerPreferringRWMutex) RUnlock() { w.mu.RUnlock() }

func (w *writerPreferringRWMutex) Lock() {
	w.writersQueue.Lock()
	w.mu.Lock()
}

func (w *writerPreferringRWMutex) Unlock() {
	w.mu.Unlock()
	w.writersQueue.Unlock()
}

// DependencyIndex resolves the import/augment targets a module must have
// loaded before itself. It is a collaborator the catalog consults but
// does not own — in a full deployment it is backed by the same schema
// source directory scan as the YANG parser.
type DependencyIndex interface {
	// Dependencies returns the modules (by name) that name imports or
	// augments, transitively resolved in load order.
	Dependencies(name string) ([]string, error)
}

// Loader parses a module's YANG sources into the in-memory form the
// catalog stores. This is the external schema/data-tree library
// boundary; Catalog only orchestrates loading, it does not parse YANG
// itself.
type Loader interface {
	Load(name Name) (*Module, error)
}

// Catalog is the Schema Catalog (C1): it loads, indexes and
// reference-counts YANG modules and tracks feature/enable state.
type Catalog struct {
	lock writerPreferringRWMutex
	deps DependencyIndex
	load Loader

	modules map[string]*Module // keyed by module name
	group   singleflight.Group // collapses concurrent load() of the same name
}

func NewCatalog(deps DependencyIndex, loader Loader) *Catalog {
	return &Catalog{
		deps:    deps,
		load:    loader,
		modules: make(map[string]*Module),
	}
}

// Load is idempotent; revision "" means "latest installed". Concurrent
// Load calls for the same name are collapsed via singleflight so the
// dependency walk only happens once.
func (c *Catalog) Load(name Name) (*Module, error) {
	c.lock.RLock()
	if m, ok := c.modules[name.Module]; ok && !m.disabled {
		c.lock.RUnlock()
		return m, nil
	}
	c.lock.RUnlock()

	v, err, _ := c.group.Do(name.Module, func() (interface{}, error) {
		return c.loadLocked(name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Module), nil
}

func (c *Catalog) loadLocked(name Name) (*Module, error) {
	if c.deps != nil {
		deps, err := c.deps.Dependencies(name.Module)
		if err != nil {
			return nil, mgmterror.NewUnknownModelError(name.Module)
		}
		for _, d := range deps {
			if _, err := c.Load(Name{Module: d}); err != nil {
				return nil, err
			}
		}
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if m, ok := c.modules[name.Module]; ok {
		m.disabled = false
		return m, nil
	}

	var m *Module
	if c.load != nil {
		loaded, err := c.load.Load(name)
		if err != nil {
			return nil, err
		}
		m = loaded
	} else {
		m = newModule(name)
	}
	c.modules[name.Module] = m
	return m, nil
}

// Get returns an already-loaded module without triggering a load,
// borrowing the catalog's strong reference the way every other
// component is required to: all other components hold weak references.
func (c *Catalog) Get(name string) (*Module, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	m, ok := c.modules[name]
	if !ok || m.disabled {
		return nil, false
	}
	return m, true
}

type ModuleInfo struct {
	Name             string
	Revision         string
	EnabledFeatures  []string
	Submodules       []Submodule
	FilePaths        []string
}

func (c *Catalog) GetInfo(name string) (ModuleInfo, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	m, ok := c.modules[name]
	if !ok {
		return ModuleInfo{}, mgmterror.NewUnknownModelError(name)
	}
	return ModuleInfo{
		Name:            m.Name,
		Revision:        m.Revision,
		EnabledFeatures: m.EnabledFeatures(),
		Submodules:      m.Submodules,
		FilePaths:       m.FilePaths,
	}, nil
}

// ListSchemas returns ModuleInfo for every installed (non-disabled)
// module, sorted by name, backing the list_schemas request.
func (c *Catalog) ListSchemas() []ModuleInfo {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make([]ModuleInfo, 0, len(c.modules))
	for _, m := range c.modules {
		if m.disabled {
			continue
		}
		out = append(out, ModuleInfo{
			Name: m.Name, Revision: m.Revision,
			EnabledFeatures: m.EnabledFeatures(),
			Submodules:      m.Submodules,
			FilePaths:       m.FilePaths,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetFeature flips a feature bit; returns BadElement if the feature is
// absent from the module's schema.
func (c *Catalog) SetFeature(name, feature string, enabled bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	m, ok := c.modules[name]
	if !ok {
		return mgmterror.NewUnknownModelError(name)
	}
	if _, known := m.features[feature]; !known {
		return mgmterror.NewUnknownElementError(feature)
	}
	m.features[feature] = enabled
	return nil
}

// Install registers a new module; the dependency graph grows to include
// its imports/augments. Uninstall is soft: the module is marked disabled
// and retained in memory, a reinstall without a restart simply clears
// the flag.
func (c *Catalog) Install(name Name) (*Module, error) {
	return c.Load(name)
}

func (c *Catalog) Uninstall(name string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	m, ok := c.modules[name]
	if !ok {
		return mgmterror.NewUnknownModelError(name)
	}
	m.disabled = true
	return nil
}

// NodeState returns the raw per-node enable state, not accounting for
// ancestor enabled-with-children propagation.
func (c *Catalog) NodeState(moduleName, path string) (NodeState, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	m, ok := c.modules[moduleName]
	if !ok {
		return Disabled, mgmterror.NewUnknownModelError(moduleName)
	}
	return m.NodeState(path), nil
}

func (c *Catalog) SetNodeState(moduleName, path string, s NodeState) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	m, ok := c.modules[moduleName]
	if !ok {
		return mgmterror.NewUnknownModelError(moduleName)
	}
	m.setNodeState(path, s)
	return nil
}

// EffectiveState reports whether a node is effectively enabled: itself
// enabled, or any ancestor enabled-with-children. ancestors must be
// ordered root-to-parent.
func (c *Catalog) EffectiveState(moduleName, path string, ancestors []string) (bool, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	m, ok := c.modules[moduleName]
	if !ok {
		return false, mgmterror.NewUnknownModelError(moduleName)
	}
	if m.NodeState(path) != Disabled {
		return true, nil
	}
	for _, a := range ancestors {
		if m.NodeState(a) == EnabledWithChildren {
			return true, nil
		}
	}
	return false, nil
}

// DisableModule resets every node in the module to Disabled, the
// counterpart transition to set_node_state called out in the state
// diagram ("disable-module").
func (c *Catalog) DisableModule(moduleName string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	m, ok := c.modules[moduleName]
	if !ok {
		return mgmterror.NewUnknownModelError(moduleName)
	}
	for p := range m.nodes {
		m.nodes[p] = Disabled
	}
	return nil
}

func (c *Catalog) String() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return fmt.Sprintf("catalog(%d modules)", len(c.modules))
}
