// Package datastore implements the Datastore Files component (C2):
// per-module, per-datastore serialized trees on disk, each guarded by a
// companion advisory lock file (lockset.Set). It is the file-level layer
// the Data Manager's commit pipeline reads/writes/truncates.
package datastore

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/mgmterror"
)

// Datastore names the three stores a core tracks per module.
type Datastore string

const (
	Startup   Datastore = "startup"
	Running   Datastore = "running"
	Candidate Datastore = "candidate"
)

// version tracks, per file, an in-process monotonic counter alongside
// the mtime/size pair. A counter is preferred over raw mtime comparison
// since two commits in the same clock tick can alias; the counter is
// authoritative. mtime/size are recorded alongside it, and only IsFresh
// consults mtime; external writes are caught by the fsnotify watch,
// which drops the entry.
type version struct {
	counter uint64
	mtime   time.Time
	size    int64
}

// Store is the per-(module,datastore) file layer.
type Store struct {
	dataDir string

	mu       sync.Mutex
	versions map[string]*version // keyed by file path
	watcher  *fsnotify.Watcher
}

func New(dataDir string) (*Store, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, mgmterror.NewInitFailedError("fsnotify: %v", err)
	}
	s := &Store{dataDir: dataDir, versions: make(map[string]*version), watcher: w}
	go s.watch()
	return s, nil
}

func (s *Store) watch() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				s.invalidate(ev.Name)
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (s *Store) invalidate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.versions, path)
}

// DataDir returns the root directory datastore files are stored under,
// used to derive companion lock-file paths.
func (s *Store) DataDir() string { return s.dataDir }

// Path returns the on-disk file for (module, datastore).
func (s *Store) Path(module string, ds Datastore) string {
	return filepath.Join(s.dataDir, module+"."+string(ds)+".xml")
}

// Version returns the current (counter, known-fresh) pair for a file, so
// DataManager.refresh can compare against a session's cached version
// without reopening the file.
func (s *Store) Version(path string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[path]
	if !ok {
		return 0, false
	}
	return v.counter, true
}

// Load parses the file at (module, datastore) into a working tree. A
// missing file yields an empty tree rooted at module, matching "create if
// missing" semantics used throughout commit.
func (s *Store) Load(module string, ds Datastore) (*datatree.Node, uint64, error) {
	path := s.Path(module, ds)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return datatree.NewRoot(module), 0, nil
	}
	if err != nil {
		return nil, 0, mgmterror.NewIoError("open %s: %v", path, err)
	}
	defer f.Close()

	root, err := datatree.DecodeXML(f, module)
	if err != nil {
		return nil, 0, mgmterror.NewIoError("parse %s: %v", path, err)
	}

	st, _ := f.Stat()
	s.mu.Lock()
	v := s.versions[path]
	if v == nil {
		v = &version{}
		s.versions[path] = v
	}
	if st != nil {
		v.mtime = st.ModTime()
		v.size = st.Size()
	}
	counter := v.counter
	s.mu.Unlock()

	s.watcher.Add(path)
	return root, counter, nil
}

// Save truncates and rewrites (module, datastore) with root, fsyncing
// before returning. Bumps the version counter on success.
func (s *Store) Save(module string, ds Datastore, root *datatree.Node) error {
	path := s.Path(module, ds)
	if err := os.MkdirAll(s.dataDir, 0o750); err != nil {
		return mgmterror.NewIoError("mkdir %s: %v", s.dataDir, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o640)
	if err != nil {
		return mgmterror.NewIoError("open %s: %v", path, err)
	}
	defer f.Close()

	if err := datatree.EncodeXML(f, root); err != nil {
		return mgmterror.NewIoError("write %s: %v", path, err)
	}
	if err := f.Sync(); err != nil {
		return mgmterror.NewIoError("fsync %s: %v", path, err)
	}

	st, _ := f.Stat()
	s.mu.Lock()
	v := s.versions[path]
	if v == nil {
		v = &version{}
		s.versions[path] = v
	}
	v.counter++
	if st != nil {
		v.mtime = st.ModTime()
		v.size = st.Size()
	}
	s.mu.Unlock()
	return nil
}

// IsFresh reports whether a cached version is still current for path,
// applying a >=10ms guard band alongside the version counter so
// same-tick external writes aren't missed.
func (s *Store) IsFresh(path string, cachedCounter uint64, cachedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[path]
	if !ok {
		return false
	}
	if v.counter != cachedCounter {
		return false
	}
	if time.Since(v.mtime) < 10*time.Millisecond && cachedAt.Before(v.mtime) {
		return false
	}
	return true
}

func (s *Store) Close() error {
	return s.watcher.Close()
}
