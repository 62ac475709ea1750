package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysrepo-go/core/access"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/session"
	"github.com/sysrepo-go/core/value"
)

func TestNewSessionDefaultsToRunning(t *testing.T) {
	s := session.New("sess-1", access.Identity{UID: 1})
	assert.Equal(t, datastore.Running, s.CurrentDatastore())
	assert.Equal(t, "sess-1", s.ID)
}

func TestSwitchDatastorePreservesOtherWorkingCopies(t *testing.T) {
	s := session.New("sess-1", access.Identity{})
	s.SetDataInfo(datastore.Running, &session.DataInfo{Module: "m", Root: datatree.NewRoot("m")})

	s.SwitchDatastore(datastore.Candidate)
	assert.Equal(t, datastore.Candidate, s.CurrentDatastore())

	s.SwitchDatastore(datastore.Running)
	di, ok := s.DataInfo(datastore.Running, "m")
	require.True(t, ok)
	assert.Equal(t, "m", di.Module)
}

func TestAppendOpMarksDataInfoModified(t *testing.T) {
	s := session.New("sess-1", access.Identity{})
	s.SetDataInfo(datastore.Running, &session.DataInfo{Module: "m", Root: datatree.NewRoot("m")})

	s.AppendOp(datastore.Running, "m", session.EditOp{
		Kind: session.OpSet, Path: "/m:leaf", Value: value.NewString("x", "v"),
	})

	di, ok := s.DataInfo(datastore.Running, "m")
	require.True(t, ok)
	assert.True(t, di.Modified)
	assert.Len(t, s.EditLog(datastore.Running), 1)
}

func TestModifiedModulesOnlyReportsModified(t *testing.T) {
	s := session.New("sess-1", access.Identity{})
	s.SetDataInfo(datastore.Running, &session.DataInfo{Module: "clean", Root: datatree.NewRoot("clean")})
	s.SetDataInfo(datastore.Running, &session.DataInfo{Module: "dirty", Root: datatree.NewRoot("dirty")})
	s.AppendOp(datastore.Running, "dirty", session.EditOp{Kind: session.OpSet, Path: "/dirty:leaf"})

	mods := s.ModifiedModules(datastore.Running)
	assert.Equal(t, []string{"dirty"}, mods)
}

func TestDiscardClearsWorkingCopiesAndOpLog(t *testing.T) {
	s := session.New("sess-1", access.Identity{})
	s.SetDataInfo(datastore.Running, &session.DataInfo{Module: "m", Root: datatree.NewRoot("m")})
	s.AppendOp(datastore.Running, "m", session.EditOp{Kind: session.OpSet, Path: "/m:leaf"})

	s.Discard(datastore.Running)

	_, ok := s.DataInfo(datastore.Running, "m")
	assert.False(t, ok)
	assert.Empty(t, s.EditLog(datastore.Running))
}

func TestRequestStateTransitions(t *testing.T) {
	s := session.New("sess-1", access.Identity{})
	assert.Equal(t, session.StateNew, s.RequestState())

	s.SetRequestState(session.WaitingForData)
	assert.Equal(t, session.WaitingForData, s.RequestState())
}

func TestErrorStackClearAndPush(t *testing.T) {
	s := session.New("sess-1", access.Identity{})
	assert.Nil(t, s.LastError())

	err1 := assertError("first")
	err2 := assertError("second")
	s.PushError(err1)
	s.PushError(err2)

	assert.Equal(t, err2, s.LastError())
	assert.Len(t, s.Errors(), 2)

	s.ClearErrors()
	assert.Nil(t, s.LastError())
}

func TestNotificationSessionCarriesCommitID(t *testing.T) {
	s := session.NewNotificationSession("notif-1", 42)
	id, ok := s.CommitID()
	require.True(t, ok)
	assert.Equal(t, uint32(42), id)

	_, ok = session.New("sess-1", access.Identity{}).CommitID()
	assert.False(t, ok)
}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func assertError(msg string) error { return &testErr{msg: msg} }
