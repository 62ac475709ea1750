// Package lockset implements the Lock Set (C3): an in-process table of
// (path -> lock holder) backed by OS advisory file locks, the way
// zUZWqEHF-cocoon's lock/flock package pairs an in-process token with a
// flock(2) fd per acquisition.
package lockset

import (
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/sysrepo-go/core/mgmterror"
)

// Mode distinguishes the shared (read) and exclusive (write) lock modes
// a module or datastore file can be held in.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

type entry struct {
	fl     *flock.Flock
	holder string // owning session id
	mode   Mode
}

// Set is the process-wide lock table. One Set is shared by every session
// in a CoreRuntime.
type Set struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Set {
	return &Set{entries: make(map[string]*entry)}
}

// Acquire takes the lock for path on behalf of holder. mode=Exclusive is
// non-blocking (commit's module lock); mode=Shared blocks until
// available. Returns mgmterror.Locked if another session already holds
// it, mgmterror.Unauthorized on EACCES opening the lock file.
func (s *Set) Acquire(path, holder string, mode Mode) error {
	s.mu.Lock()
	if e, ok := s.entries[path]; ok {
		if e.holder == holder {
			s.mu.Unlock()
			return nil // reentrant for the same session
		}
		s.mu.Unlock()
		return mgmterror.NewLockedError(e.holder)
	}
	s.mu.Unlock()

	fl, err := openLockFile(path, holder)
	if err != nil {
		return err
	}

	var locked bool
	if mode == Exclusive {
		locked, err = fl.TryLock()
	} else {
		err = fl.RLock()
		locked = err == nil
	}
	if err != nil {
		return mgmterror.NewIoError("lock %s: %v", path, err)
	}
	if !locked {
		return mgmterror.NewLockedError("unknown")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[path]; ok {
		// Lost the race: another goroutine installed an entry first.
		fl.Unlock()
		if e.holder == holder {
			return nil
		}
		return mgmterror.NewLockedError(e.holder)
	}
	s.entries[path] = &entry{fl: fl, holder: holder, mode: mode}
	return nil
}

func openLockFile(path, holder string) (*flock.Flock, error) {
	if _, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o640); err != nil {
		if os.IsPermission(err) {
			return nil, mgmterror.NewUnauthorizedError("lock file %s: %v", path, err)
		}
		return nil, mgmterror.NewIoError("open lock file %s: %v", path, err)
	}
	return flock.New(path), nil
}

// Release drops the lock for path if held by holder. Releasing a lock
// not held by holder is a no-op, matching idempotent session teardown.
func (s *Set) Release(path, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[path]
	if !ok || e.holder != holder {
		return nil
	}
	delete(s.entries, path)
	if err := e.fl.Unlock(); err != nil {
		return mgmterror.NewIoError("unlock %s: %v", path, err)
	}
	return nil
}

// ReleaseAll drops every lock held by holder, called when a session
// terminates.
func (s *Set) ReleaseAll(holder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, e := range s.entries {
		if e.holder == holder {
			e.fl.Unlock()
			delete(s.entries, path)
		}
	}
}

// Holder reports who currently holds path's lock, if anyone.
func (s *Set) Holder(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[path]
	if !ok {
		return "", false
	}
	return e.holder, true
}

// LockFilePath is the companion lock-file naming convention for a
// datastore file, one per (module, datastore).
func LockFilePath(dataDir, module, datastore string) string {
	return fmt.Sprintf("%s/%s.%s.lock", dataDir, module, datastore)
}

// AcquireSet acquires locks for every path in paths on behalf of holder,
// unwinding everything already taken the instant one fails — the
// datastore-lock contract of locking every module known to the session.
func (s *Set) AcquireSet(paths []string, holder string, mode Mode) error {
	acquired := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := s.Acquire(p, holder, mode); err != nil {
			for _, done := range acquired {
				s.Release(done, holder)
			}
			return err
		}
		acquired = append(acquired, p)
	}
	return nil
}
