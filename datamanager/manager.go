// Package datamanager implements the Data Manager (C4): per-session
// working copies, validation, copy-on-write editing, the multi-phase
// commit pipeline and diff computation. This is the heart of the core;
// its shape follows CommitMgr (danos-configd session/commitmgr.go)
// generalized from a single running-tree committer to the full
// per-module, per-datastore commit pipeline.
package datamanager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sysrepo-go/core/commitstore"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/lockset"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/notify"
	"github.com/sysrepo-go/core/schema"
	"github.com/sysrepo-go/core/session"
	"github.com/sysrepo-go/core/value"
)

// Validator is the external schema/data-tree library boundary this core
// consumes for validation: it never inspects YANG itself, only asks the
// library to check a tree.
type Validator interface {
	// Validate runs full schema validation (mandatory, must, when,
	// leafref, uniqueness...) over module's merged tree, returning every
	// violation found.
	Validate(module string, tree *datatree.Node) []error

	// ValidateProcedure backs the three "procedure" validators (RPC,
	// action, notification): it validates args against the schema
	// operation at opPath and returns the materialized tree (defaults
	// filled in).
	ValidateProcedure(opPath string, dir Direction, args *datatree.Node) (*datatree.Node, []error)

	// Defaults returns the schema-default subtree to reinstate below an
	// enabled node after candidate enable-state stripping.
	Defaults(module, path string) *datatree.Node
}

// Direction distinguishes RPC/action input from output for
// ValidateProcedure.
type Direction int

const (
	Input Direction = iota
	Output
)

// Manager is the Data Manager (C4). One Manager is shared by every
// session in a CoreRuntime; per-session state lives on *session.Session.
type Manager struct {
	Catalog *schema.Catalog
	Store   *datastore.Store
	Locks   *lockset.Set
	Notify  *notify.Processor
	Commits *commitstore.Store
	Valid   Validator

	log zerolog.Logger

	mu           sync.Mutex
	usedCommitID map[uint32]bool
	lastCommitAt map[string]time.Time // keyed by "module.datastore"
}

func New(catalog *schema.Catalog, store *datastore.Store, locks *lockset.Set, np *notify.Processor, commits *commitstore.Store, validator Validator, log zerolog.Logger) *Manager {
	return &Manager{
		Catalog:      catalog,
		Store:        store,
		Locks:        locks,
		Notify:       np,
		Commits:      commits,
		Valid:        validator,
		log:          log.With().Str("component", "datamanager").Logger(),
		usedCommitID: make(map[uint32]bool),
		lastCommitAt: make(map[string]time.Time),
	}
}

func lastCommitKey(module string, ds datastore.Datastore) string {
	return module + "." + string(ds)
}

// GetDataInfo returns the session's working copy for module, loading
// from disk on first touch. In the candidate datastore the loader
// strips subtrees rooted at disabled schema nodes, then reinstates
// defaults below what remains enabled.
func (m *Manager) GetDataInfo(sess *session.Session, module string) (*session.DataInfo, error) {
	ds := sess.CurrentDatastore()
	if di, ok := sess.DataInfo(ds, module); ok {
		return di, nil
	}

	mod, ok := m.Catalog.Get(module)
	if !ok {
		// Catalog.Get reports false both when module was never installed
		// and when it is installed but disabled; either way the module is
		// not reachable for a working copy.
		return nil, mgmterror.NewNotFoundError("module %s", module)
	}

	root, version, err := m.Store.Load(module, ds)
	if err != nil {
		return nil, err
	}

	if ds == datastore.Candidate {
		stripDisabled(m.Catalog, mod.Name, root)
		reinstateDefaults(m.Valid, mod.Name, root)
	}

	di := &session.DataInfo{Module: module, Root: root, Version: version}
	sess.SetDataInfo(ds, di)
	return di, nil
}

func stripDisabled(cat *schema.Catalog, module string, root *datatree.Node) {
	var walk func(n *datatree.Node, ancestors []string)
	walk = func(n *datatree.Node, ancestors []string) {
		kept := n.Children[:0]
		for _, c := range n.Children {
			ok, err := cat.EffectiveState(module, c.Path, ancestors)
			if err == nil && !ok {
				continue // disabled subtrees never appear in a working copy
			}
			kept = append(kept, c)
			walk(c, append(ancestors, c.Path))
		}
		n.Children = kept
	}
	walk(root, nil)
}

func reinstateDefaults(v Validator, module string, root *datatree.Node) {
	if v == nil {
		return
	}
	root.Walk(func(n *datatree.Node) bool {
		if defaults := v.Defaults(module, n.Path); defaults != nil {
			n.Children = append(n.Children, defaults.Children...)
		}
		return true
	})
}

// SetItem mutates the session's working copy and appends to the op-log.
// val is nil when creating a presence container; otherwise it is the
// leaf's typed payload.
func (m *Manager) SetItem(sess *session.Session, path string, val *value.Value, opts datatree.EditOptions) error {
	module, err := moduleOf(path)
	if err != nil {
		return err
	}
	di, err := m.GetDataInfo(sess, module)
	if err != nil {
		return err
	}
	if err := di.Root.Set(path, val, opts); err != nil {
		return err
	}
	di.Modified = true
	ds := sess.CurrentDatastore()
	sess.AppendOp(ds, module, session.EditOp{Kind: session.OpSet, Path: path, Value: val, Opts: opts})
	return nil
}

// DeleteItem mutates the working copy and logs a Delete op.
func (m *Manager) DeleteItem(sess *session.Session, path string, opts datatree.EditOptions) error {
	module, err := moduleOf(path)
	if err != nil {
		return err
	}
	di, err := m.GetDataInfo(sess, module)
	if err != nil {
		return err
	}
	if err := di.Root.Delete(path, opts); err != nil {
		return err
	}
	di.Modified = true
	ds := sess.CurrentDatastore()
	sess.AppendOp(ds, module, session.EditOp{Kind: session.OpDelete, Path: path, Opts: opts})
	return nil
}

// MoveItem repositions a leaf-list/user-ordered-list entry and logs a
// Move op.
func (m *Manager) MoveItem(sess *session.Session, path string, pos datatree.MovePosition, relative string) error {
	module, err := moduleOf(path)
	if err != nil {
		return err
	}
	di, err := m.GetDataInfo(sess, module)
	if err != nil {
		return err
	}
	if err := di.Root.Move(path, pos, relative); err != nil {
		return err
	}
	di.Modified = true
	ds := sess.CurrentDatastore()
	sess.AppendOp(ds, module, session.EditOp{
		Kind: session.OpMove, Path: path, Position: pos, RelativePath: relative,
	})
	return nil
}

// Validate runs schema validation across every modified module in the
// session's current datastore, collecting every error with its path:
// both validate and commit report every violation rather than stopping
// at the first.
func (m *Manager) Validate(sess *session.Session) []error {
	ds := sess.CurrentDatastore()
	var errs []error
	for _, module := range sess.ModifiedModules(ds) {
		di, ok := sess.DataInfo(ds, module)
		if !ok {
			continue
		}
		if m.Valid != nil {
			errs = append(errs, m.Valid.Validate(module, di.Root)...)
		}
	}
	return errs
}

// DiscardChanges drops working copies and the op-log for the session's
// current datastore.
func (m *Manager) DiscardChanges(sess *session.Session) {
	sess.Discard(sess.CurrentDatastore())
}

func moduleOf(path string) (string, error) {
	segs, err := datatree.SplitPath(path)
	if err != nil || len(segs) == 0 || segs[0].Module == "" {
		return "", mgmterror.NewInvalidArgumentError("path %q is not module-qualified", path)
	}
	return segs[0].Module, nil
}
