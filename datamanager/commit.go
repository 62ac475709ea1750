package datamanager

import (
	"context"
	"math/rand"
	"time"

	"github.com/sysrepo-go/core/commitstore"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/lockset"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/session"
)

// ReleaseTimeout bounds how long a commit context survives an
// apply-subscriber that never acks.
const ReleaseTimeout = 30 * time.Second

const maxCommitIDAttempts = 64

// targetDatastore is where commit actually writes files: candidate
// commits land in running, startup/running commit in place.
func targetDatastore(ds datastore.Datastore) datastore.Datastore {
	if ds == datastore.Candidate {
		return datastore.Running
	}
	return ds
}

// Commit runs the full commit pipeline for the session's current
// datastore. A nil error with commitID==0 means the commit was a no-op.
func (m *Manager) Commit(ctx context.Context, sess *session.Session) (commitID uint32, errs []error) {
	ds := sess.CurrentDatastore()
	modified := sess.ModifiedModules(ds)
	if len(modified) == 0 && ds != datastore.Candidate {
		return 0, nil // step 1: zero ops on non-candidate is a no-op
	}

	id, err := m.allocateCommitID()
	if err != nil {
		return 0, []error{err}
	}
	cctx := commitstore.Begin(id)

	target := targetDatastore(ds)

	// step 2: lock modules (reentrant-safe for the committing session).
	// Every commit locks its write target; a candidate commit writes into
	// running, so it locks the running file and additionally its own
	// candidate file.
	lockPaths := make([]string, 0, len(modified)*2)
	for _, mod := range modified {
		lockPaths = append(lockPaths, lockset.LockFilePath(m.Store.DataDir(), mod, string(target)))
		if ds == datastore.Candidate {
			lockPaths = append(lockPaths, lockset.LockFilePath(m.Store.DataDir(), mod, string(ds)))
		}
	}
	if err := m.Locks.AcquireSet(lockPaths, sess.ID, lockset.Exclusive); err != nil {
		return 0, []error{err}
	}
	defer m.Locks.ReleaseAll(sess.ID)

	preByModule := make(map[string]*datatree.Node, len(modified))
	postByModule := make(map[string]*datatree.Node, len(modified))

	for _, mod := range modified {
		base, version, err := m.readBase(sess, ds, target, mod)
		if err != nil {
			return 0, []error{err}
		}
		// step 4: snapshot pre-state (startup's first write has no
		// meaningful pre-state distinct from an empty tree, which Clone
		// handles naturally).
		preByModule[mod] = base.Clone()

		working, ok := sess.DataInfo(ds, mod)
		if ok && version == working.Version {
			postByModule[mod] = working.Root
		} else {
			replayed := base.Clone()
			if err := replayOps(replayed, sess.EditLog(ds)); err != nil {
				return 0, []error{err}
			}
			postByModule[mod] = replayed
		}
	}

	// step 5: validate merged trees together, abort before any write.
	var validationErrs []error
	for _, mod := range modified {
		if m.Valid != nil {
			validationErrs = append(validationErrs, m.Valid.Validate(mod, postByModule[mod])...)
		}
	}
	if len(validationErrs) > 0 {
		return 0, validationErrs
	}

	// step 6: verify notifications, strict descending priority.
	for _, mod := range modified {
		changes := datatree.Diff(preByModule[mod], postByModule[mod])
		if err := m.Notify.NotifyCommitVerify(ctx, id, mod, changes); err != nil {
			return 0, []error{err}
		}
	}

	// step 7: write files; collect failures but keep writing the rest so
	// disk state stays consistent per-module.
	var writeErrs []error
	for _, mod := range modified {
		if err := m.Store.Save(mod, target, postByModule[mod]); err != nil {
			m.log.Error().Str("module", mod).Err(err).Msg("commit write failed")
			writeErrs = append(writeErrs, err)
			continue
		}
		m.mu.Lock()
		m.lastCommitAt[lastCommitKey(mod, target)] = time.Now()
		m.mu.Unlock()
	}

	// step 8: compute diffs.
	changesByModule := make(map[string][]datatree.ChangeRecord, len(modified))
	for _, mod := range modified {
		diff := datatree.Diff(preByModule[mod], postByModule[mod])
		cctx.SetDiff(mod, diff)
		changesByModule[mod] = diff
		cctx.PreTrees[mod] = preByModule[mod]
		cctx.PostTrees[mod] = postByModule[mod]
	}

	// step 9: publish, release module locks (deferred above).
	m.Commits.Insert(cctx)

	// step 10: apply notifications, fire-and-forget.
	stop := m.Commits.ReleaseTimeout(id, ReleaseTimeout)
	m.Notify.NotifyCommitApply(ctx, id, modified, changesByModule, func() {
		stop()
		m.Commits.Release(id)
	})

	for _, mod := range modified {
		if di, ok := sess.DataInfo(ds, mod); ok {
			di.Root = postByModule[mod]
			di.Modified = false
		}
	}
	sess.Discard(ds)

	if len(writeErrs) > 0 {
		return id, []error{mgmterror.NewOperationFailedError("%d module write(s) failed", len(writeErrs))}
	}
	return id, nil
}

// readBase implements step 3's freshness test. It always returns the
// module's on-disk tree, which is the commit's pre-state. The returned
// version is the session's own when the file is still fresh relative to
// both the session snapshot and the last commit (outside a >=10ms band
// after this manager's last commit of the file), and otherwise the
// version the load observed; Commit reuses the working copy as the
// post-state whenever that version equals the session's.
func (m *Manager) readBase(sess *session.Session, sourceDS, target datastore.Datastore, module string) (*datatree.Node, uint64, error) {
	path := m.Store.Path(module, target)
	working, ok := sess.DataInfo(sourceDS, module)
	if ok {
		if cur, known := m.Store.Version(path); known && cur == working.Version {
			m.mu.Lock()
			lastAt, hasLast := m.lastCommitAt[lastCommitKey(module, target)]
			m.mu.Unlock()
			if !hasLast || time.Since(lastAt) >= 10*time.Millisecond {
				root, _, err := m.Store.Load(module, target)
				if err != nil {
					return nil, 0, err
				}
				return root, working.Version, nil
			}
		}
	}
	return m.Store.Load(module, target)
}

func replayOps(root *datatree.Node, ops []session.EditOp) error {
	for _, op := range ops {
		switch op.Kind {
		case session.OpSet:
			if err := root.Set(op.Path, op.Value, op.Opts); err != nil {
				return err
			}
		case session.OpDelete:
			if err := root.Delete(op.Path, op.Opts); err != nil {
				return err
			}
		case session.OpMove:
			if err := root.Move(op.Path, op.Position, op.RelativePath); err != nil {
				return err
			}
		case session.OpReplace:
			*root = *op.Root.Clone()
		}
	}
	return nil
}

func (m *Manager) allocateCommitID() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < maxCommitIDAttempts; i++ {
		id := rand.Uint32()
		if id == 0 {
			continue
		}
		if !m.usedCommitID[id] {
			m.usedCommitID[id] = true
			return id, nil
		}
	}
	return 0, mgmterror.NewInternalError("could not allocate a free commit id after %d attempts", maxCommitIDAttempts)
}
