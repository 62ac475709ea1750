package datastore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/value"
)

func newStore(t *testing.T) *datastore.Store {
	t.Helper()
	s, err := datastore.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadMissingFileYieldsEmptyRoot(t *testing.T) {
	s := newStore(t)
	root, counter, err := s.Load("test-module", datastore.Running)
	require.NoError(t, err)
	assert.Equal(t, "test-module", root.Seg.Name)
	assert.Equal(t, uint64(0), counter)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	s := newStore(t)
	root := datatree.NewRoot("test-module")
	require.NoError(t, root.Set("/test-module:leaf", value.NewString("x", "hi"), 0))

	require.NoError(t, s.Save("test-module", datastore.Running, root))

	loaded, counter, err := s.Load("test-module", datastore.Running)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counter)

	segs, _ := datatree.SplitPath("/test-module:leaf")
	leaf := loaded.Find(segs)
	require.NotNil(t, leaf)
	assert.Equal(t, "hi", leaf.Value.Data())
}

func TestSaveBumpsVersionCounterEachTime(t *testing.T) {
	s := newStore(t)
	root := datatree.NewRoot("test-module")

	require.NoError(t, s.Save("test-module", datastore.Running, root))
	require.NoError(t, s.Save("test-module", datastore.Running, root))

	path := s.Path("test-module", datastore.Running)
	counter, ok := s.Version(path)
	require.True(t, ok)
	assert.Equal(t, uint64(2), counter)
}

func TestIsFreshRejectsStaleCounter(t *testing.T) {
	s := newStore(t)
	root := datatree.NewRoot("test-module")
	require.NoError(t, s.Save("test-module", datastore.Running, root))

	path := s.Path("test-module", datastore.Running)
	assert.False(t, s.IsFresh(path, 999, time.Now()))
}

func TestIsFreshUnknownPathIsNotFresh(t *testing.T) {
	s := newStore(t)
	assert.False(t, s.IsFresh("/nonexistent", 0, time.Now()))
}

func TestPathNamesFileByModuleAndDatastore(t *testing.T) {
	s := newStore(t)
	p := s.Path("interfaces", datastore.Candidate)
	assert.Contains(t, p, "interfaces.candidate.xml")
}
