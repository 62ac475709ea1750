package datamanager

import (
	"os"

	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/schema"
	"github.com/sysrepo-go/core/session"
)

// RefreshResult reports, per module, whether the session's cached copy
// was already up to date (so the caller may decide whether to re-apply
// its own pending edits).
type RefreshResult struct {
	UpToDate []string
	Reloaded []string
}

// Refresh compares the session's cached version against the file's
// current version for every loaded module in ds, reloading stale
// entries. A copy loaded while its file did not exist stays up to date
// for as long as the file is still absent.
func (m *Manager) Refresh(sess *session.Session, ds datastore.Datastore) RefreshResult {
	var res RefreshResult
	target := targetDatastore(ds)
	for _, mod := range sess.LoadedModules(ds) {
		di, ok := sess.DataInfo(ds, mod)
		if !ok {
			continue
		}
		path := m.Store.Path(mod, target)
		cur, known := m.Store.Version(path)
		if known && cur == di.Version {
			res.UpToDate = append(res.UpToDate, mod)
			continue
		}
		if !known && di.Version == 0 {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				res.UpToDate = append(res.UpToDate, mod)
				continue
			}
		}
		root, version, err := m.Store.Load(mod, target)
		if err != nil {
			continue
		}
		di.Root = root
		di.Version = version
		di.Modified = false
		res.Reloaded = append(res.Reloaded, mod)
	}
	return res
}

// EnableModuleRunning marks the module's root enabled in the running
// view, optionally seeding the running tree from startup.
func (m *Manager) EnableModuleRunning(module string, seedFromStartup bool) error {
	if err := m.Catalog.SetNodeState(module, "/"+module, schema.Enabled); err != nil {
		return err
	}
	if !seedFromStartup {
		return nil
	}
	root, _, err := m.Store.Load(module, datastore.Startup)
	if err != nil {
		return err
	}
	return m.Store.Save(module, datastore.Running, root)
}

// EnableModuleSubtreeRunning enables a single subtree without enabling
// the whole module (the "enabled-with-children" state propagates to
// descendants).
func (m *Manager) EnableModuleSubtreeRunning(module, path string) error {
	return m.Catalog.SetNodeState(module, path, schema.EnabledWithChildren)
}

// CheckEnabledRunning reports whether path is effectively enabled in the
// running view: itself enabled, or any ancestor enabled-with-children.
func (m *Manager) CheckEnabledRunning(path string) (bool, error) {
	module, err := moduleOf(path)
	if err != nil {
		return false, err
	}
	segs, err := datatree.SplitPath(path)
	if err != nil {
		return false, err
	}
	ancestors := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		ancestors = append(ancestors, datatree.JoinPath(segs[:i]))
	}
	return m.Catalog.EffectiveState(module, path, ancestors)
}

// DisableModuleRunning resets the module's nodes to disabled.
// Catalog.DisableModule resets every recorded node state of the module
// directly; there is no recursive walk that picks its next step by node
// type.
func (m *Manager) DisableModuleRunning(module string) error {
	return m.Catalog.DisableModule(module)
}
