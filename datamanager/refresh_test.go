package datamanager_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysrepo-go/core/access"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/schema"
	"github.com/sysrepo-go/core/session"
	"github.com/sysrepo-go/core/value"
)

func TestRefreshReportsUpToDateWhenVersionUnchanged(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	path := "/test-module:leaf"
	require.NoError(t, m.SetItem(sess, path, value.NewString(path, "v"), 0))

	res := m.Refresh(sess, datastore.Running)
	assert.Contains(t, res.UpToDate, "test-module")
	assert.Empty(t, res.Reloaded)
}

func TestRefreshReloadsAfterExternalWrite(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	path := "/test-module:leaf"
	require.NoError(t, m.SetItem(sess, path, value.NewString(path, "v"), 0))

	di, err := m.GetDataInfo(sess, "test-module")
	require.NoError(t, err)
	require.NoError(t, m.Store.Save("test-module", datastore.Running, di.Root))

	res := m.Refresh(sess, datastore.Running)
	assert.Contains(t, res.Reloaded, "test-module")
}

func TestEnableModuleRunningSeedsFromStartup(t *testing.T) {
	m := newTestManager(t, nopValidator{})

	seedSess := session.New("seed", access.Identity{})
	path := "/test-module:leaf"
	seedSess.SwitchDatastore(datastore.Startup)
	require.NoError(t, m.SetItem(seedSess, path, value.NewString(path, "seeded"), 0))
	di, err := m.GetDataInfo(seedSess, "test-module")
	require.NoError(t, err)
	require.NoError(t, m.Store.Save("test-module", datastore.Startup, di.Root))

	require.NoError(t, m.EnableModuleRunning("test-module", true))

	root, _, err := m.Store.Load("test-module", datastore.Running)
	require.NoError(t, err)
	assert.NotNil(t, root)
	segs, err := datatree.SplitPath(path)
	require.NoError(t, err)
	leaf := root.Find(segs)
	require.NotNil(t, leaf)
	assert.Equal(t, "seeded", leaf.Value.Data())

	st, err := m.Catalog.NodeState("test-module", "/test-module")
	require.NoError(t, err)
	assert.Equal(t, schema.Enabled, st)
}

func TestDisableModuleRunningResetsNodeStates(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	require.NoError(t, m.Catalog.SetNodeState("test-module", "/test-module:top", schema.Enabled))
	require.NoError(t, m.DisableModuleRunning("test-module"))

	st, err := m.Catalog.NodeState("test-module", "/test-module:top")
	require.NoError(t, err)
	assert.Equal(t, schema.Disabled, st)
}
