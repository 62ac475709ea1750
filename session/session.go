// Package session defines the Session: the per-connection state shared
// by the Data Manager and the Request Processor. Its shape and the
// commit-manager dispatch idiom below are grounded on the
// session.Session / CommitMgr split (danos-configd
// session/session.go, session/commitmgr.go), generalized from a
// YANG-CLI session to a datastore-agnostic core.
package session

import (
	"sync"

	"github.com/sysrepo-go/core/access"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/value"
)

// Options is the per-session bitset.
type Options uint32

const (
	// OptConfigOnly marks a configuration-only session —
	// client_library.c's SR_SESS_CONFIG_ONLY. It is carried in Options
	// only; no request handler reads it, so operational data is not
	// hidden from a session that sets it.
	OptConfigOnly Options = 1 << iota
)

// State is the per-session request-processor state machine.
type State int

const (
	StateNew State = iota
	Reading
	WaitingForData
	DataLoaded
	Finished
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case Reading:
		return "READING"
	case WaitingForData:
		return "WAITING_FOR_DATA"
	case DataLoaded:
		return "DATA_LOADED"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// EditOpKind tags the EditOp variant.
type EditOpKind int

const (
	OpSet EditOpKind = iota
	OpDelete
	OpMove
	// OpReplace discards whatever the replay has built up so far and
	// substitutes Root wholesale, the op copy_config logs since its
	// effect is "this module's tree is now exactly this," not a sequence
	// of incremental edits.
	OpReplace
)

// EditOp is a single logged mutation.
type EditOp struct {
	Kind         EditOpKind
	Path         string
	Value        *value.Value
	Opts         datatree.EditOptions
	Position     datatree.MovePosition
	RelativePath string
	Root         *datatree.Node // set only for OpReplace
	HasError     bool
}

// DataInfo is the per-session, per-module working copy.
type DataInfo struct {
	Module   string
	Root     *datatree.Node
	Modified bool
	ReadOnly bool
	Version  uint64 // the store's version counter at load/refresh time
}

// dsState is the per-datastore slice of Session state: working copies,
// op-log and locked files, keyed as per-datastore
// (DataInfo-set, EditOp-log, locked-files).
type dsState struct {
	dataInfos   map[string]*DataInfo
	editLog     []EditOp
	lockedFiles map[string]bool
}

func newDsState() *dsState {
	return &dsState{
		dataInfos:   make(map[string]*DataInfo),
		lockedFiles: make(map[string]bool),
	}
}

// Session is the per-connection handle.
type Session struct {
	ID         string
	Credentials access.Identity
	Options    Options

	mu              sync.Mutex
	currentDS       datastore.Datastore
	perDS           map[datastore.Datastore]*dsState
	errors          []error
	requestState    State
	commitID        *uint32 // set only for notification sessions
	oustandingTimer interface{ Stop() bool }
}

func New(id string, creds access.Identity) *Session {
	return &Session{
		ID:          id,
		Credentials: creds,
		currentDS:   datastore.Running,
		perDS:       make(map[datastore.Datastore]*dsState),
	}
}

// NewNotificationSession builds the read-only session bound to a commit
// id that subscribers use to inspect pre/post data.
func NewNotificationSession(id string, commitID uint32) *Session {
	s := New(id, access.Identity{})
	s.commitID = &commitID
	return s
}

func (s *Session) CommitID() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitID == nil {
		return 0, false
	}
	return *s.commitID, true
}

func (s *Session) CurrentDatastore() datastore.Datastore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDS
}

// SwitchDatastore changes the session's active datastore. It discards
// nothing: every datastore's working copies and op-log stay as they
// are until that datastore is discarded.
func (s *Session) SwitchDatastore(ds datastore.Datastore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDS = ds
}

func (s *Session) ds(ds datastore.Datastore) *dsState {
	st, ok := s.perDS[ds]
	if !ok {
		st = newDsState()
		s.perDS[ds] = st
	}
	return st
}

// DataInfo returns the cached working copy for module in datastore ds,
// if loaded.
func (s *Session) DataInfo(ds datastore.Datastore, module string) (*DataInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	di, ok := s.ds(ds).dataInfos[module]
	return di, ok
}

func (s *Session) SetDataInfo(ds datastore.Datastore, di *DataInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds(ds).dataInfos[di.Module] = di
}

// AppendOp appends an EditOp to ds's op-log (one log shared by every
// module of that datastore) and marks the module's working copy
// modified.
func (s *Session) AppendOp(ds datastore.Datastore, module string, op EditOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.ds(ds)
	d.editLog = append(d.editLog, op)
	if di, ok := d.dataInfos[module]; ok {
		di.Modified = true
	}
}

func (s *Session) EditLog(ds datastore.Datastore) []EditOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EditOp(nil), s.ds(ds).editLog...)
}

// LoadedModules returns every module with a cached DataInfo in ds,
// modified or not.
func (s *Session) LoadedModules(ds datastore.Datastore) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	mods := make([]string, 0, len(s.ds(ds).dataInfos))
	for name := range s.ds(ds).dataInfos {
		mods = append(mods, name)
	}
	return mods
}

func (s *Session) ModifiedModules(ds datastore.Datastore) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mods []string
	for name, di := range s.ds(ds).dataInfos {
		if di.Modified {
			mods = append(mods, name)
		}
	}
	return mods
}

// Discard drops working copies and the op-log for ds, matching
// discard_changes: after discard, DataInfo equals the last
// committed/loaded tree and the op-log is empty. Callers reload DataInfo
// afterwards; Discard itself only clears session-local state.
func (s *Session) Discard(ds datastore.Datastore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.perDS, ds)
}

// RequestState / SetRequestState implement the per-session state
// machine transitions; the mutex here is the per-session mutex
// protecting transitions between worker threads and provider-response
// arrivals.
func (s *Session) RequestState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestState
}

func (s *Session) SetRequestState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestState = st
}

// LastError clears at the start of each dispatched request; PushError
// appends to the per-session error list a given operation surfaces.
func (s *Session) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = nil
}

func (s *Session) PushError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err)
}

func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errors) == 0 {
		return nil
	}
	return s.errors[len(s.errors)-1]
}

func (s *Session) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}

var errNilSession = mgmterror.NewInternalError("nil session")
