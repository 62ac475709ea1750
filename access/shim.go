// Package access implements the Access Control Shim (C8): every
// datastore-file open happens under the caller's credentials so that OS
// file permissions govern per-module read/write access, the way a
// management daemon resolves the peer's Ucred off the socket before
// touching any file on the caller's behalf.
package access

import (
	"os"
	"runtime"
	"sync"
	"syscall"

	"github.com/sysrepo-go/core/mgmterror"
)

// Identity is the caller's OS identity, resolved once per connection the
// way conn.go pulls SO_PEERCRED off the unix socket.
type Identity struct {
	UID uint32
	GID uint32
}

// Shim serializes credential swaps: only one goroutine may be running
// under a swapped effective UID/GID at a time, since Setreuid/Setregid
// are process-wide, not per-thread in the way Go's runtime schedules
// goroutines. Callers should keep the bracketed section short.
type Shim struct {
	mu sync.Mutex
}

func New() *Shim { return &Shim{} }

// WithIdentity runs fn with the process's effective UID/GID swapped to
// id, restoring the original identity (even on panic) before returning.
// The OS thread is locked for the duration so the calling goroutine
// does not migrate mid-swap; the swapped credentials are process-wide
// and visible to all threads, which is why the swap is serialized.
func (s *Shim) WithIdentity(id Identity, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origUID := syscall.Geteuid()
	origGID := syscall.Getegid()

	if err := syscall.Setregid(-1, int(id.GID)); err != nil {
		return mgmterror.NewUnauthorizedError("setregid %d: %v", id.GID, err)
	}
	if err := syscall.Setreuid(-1, int(id.UID)); err != nil {
		syscall.Setregid(-1, origGID)
		return mgmterror.NewUnauthorizedError("setreuid %d: %v", id.UID, err)
	}

	defer func() {
		syscall.Setreuid(-1, origUID)
		syscall.Setregid(-1, origGID)
	}()

	return fn()
}

// OpenAs opens path as id, translating EACCES into mgmterror.Unauthorized.
func (s *Shim) OpenAs(id Identity, path string, flag int, perm os.FileMode) (*os.File, error) {
	var f *os.File
	err := s.WithIdentity(id, func() error {
		var oerr error
		f, oerr = os.OpenFile(path, flag, perm)
		return oerr
	})
	if err != nil {
		if _, ok := err.(*mgmterror.Error); ok {
			return nil, err
		}
		if os.IsPermission(err) {
			return nil, mgmterror.NewUnauthorizedError("access denied for %s", path)
		}
		return nil, mgmterror.NewIoError("open %s: %v", path, err)
	}
	if f == nil {
		return nil, mgmterror.NewInternalError("open %s: no file and no error", path)
	}
	return f, nil
}

// CheckAccess reports whether id may access path with the given mode
// (os.O_RDONLY or os.O_RDWR) by opening the file as id and closing it
// again at once.
func (s *Shim) CheckAccess(id Identity, path string, flag int) error {
	f, err := s.OpenAs(id, path, flag, 0)
	if err != nil {
		return err
	}
	f.Close()
	return nil
}
