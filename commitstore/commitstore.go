// Package commitstore implements the Commit Context Store (C6):
// snapshots of pre/post trees and pending diffs indexed by commit id,
// consulted by notification sessions. Grounded on
// CommitMgr.Running atomic-snapshot idiom (danos-configd
// session/commitmgr.go) generalized to a per-commit, per-module snapshot
// table instead of a single running tree.
package commitstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/notify"
)

// Context is the CommitContext: everything a notification session needs
// to answer get_item/get_changes for one commit.
type Context struct {
	ID uint32

	// SnapshotID is a random identifier for the commit's session
	// snapshot, distinct from the 32-bit commit id (drawn at random and
	// checked against the ids already used, never pointer-derived),
	// used only for log correlation.
	SnapshotID string

	Subscriptions []*notify.Subscription // cloned, sorted by descending priority

	PreTrees  map[string]*datatree.Node // by module, for non-startup commits
	PostTrees map[string]*datatree.Node

	mu       sync.RWMutex
	diffs    map[string][]datatree.ChangeRecord // by module, from the commit pipeline
	changes  map[string][]datatree.ChangeRecord // lazily materialized on first access
	pendingAckCount int
}

func newContext(id uint32) *Context {
	return &Context{
		ID:         id,
		SnapshotID: uuid.NewString(),
		PreTrees:   make(map[string]*datatree.Node),
		PostTrees:  make(map[string]*datatree.Node),
		diffs:      make(map[string][]datatree.ChangeRecord),
		changes:    make(map[string][]datatree.ChangeRecord),
	}
}

// SetDiff stores the commit pipeline's computed diff for a module.
func (c *Context) SetDiff(module string, diff []datatree.ChangeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diffs[module] = diff
}

// ChangeRecords returns the module's change list, materializing
// (copying out of diffs) on first access under the per-context rwlock.
func (c *Context) ChangeRecords(module string) []datatree.ChangeRecord {
	c.mu.RLock()
	if cached, ok := c.changes[module]; ok {
		c.mu.RUnlock()
		return cached
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.changes[module]; ok {
		return cached
	}
	materialized := append([]datatree.ChangeRecord(nil), c.diffs[module]...)
	c.changes[module] = materialized
	return materialized
}

// Window returns records[offset:offset+limit] for get_changes.
func Window(records []datatree.ChangeRecord, offset, limit int) ([]datatree.ChangeRecord, error) {
	total := len(records)
	if offset == total && total != 0 {
		return nil, mgmterror.NewNotFoundError("offset %d is past the end of %d changes", offset, total)
	}
	if offset > total {
		return nil, mgmterror.NewInvalidArgumentError("offset %d exceeds %d changes", offset, total)
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return records[offset:end], nil
}

// Store is the rwlock-guarded table keyed by commit id.
type Store struct {
	mu       sync.RWMutex
	contexts map[uint32]*Context
}

func NewStore() *Store {
	return &Store{contexts: make(map[uint32]*Context)}
}

// Begin creates a new Context ahead of the commit pipeline's final step;
// Insert publishes it once the pipeline reaches the point where
// notification sessions should see it.
func Begin(id uint32) *Context { return newContext(id) }

func (s *Store) Insert(ctx *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[ctx.ID] = ctx
}

func (s *Store) Get(id uint32) (*Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[id]
	return c, ok
}

// Release removes the context, called when the last subscriber
// acknowledges or the release timeout fires.
func (s *Store) Release(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, id)
}

// ReleaseTimeout schedules a release for id after d unless already
// released, bounding memory if an apply-subscriber never acks. Returns
// a stop function.
func (s *Store) ReleaseTimeout(id uint32, d time.Duration) (stop func()) {
	t := time.AfterFunc(d, func() { s.Release(id) })
	return func() { t.Stop() }
}
