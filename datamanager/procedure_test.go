package datamanager_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysrepo-go/core/access"
	"github.com/sysrepo-go/core/datamanager"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/session"
)

func TestValidateProcedureRPCSkipsTargetPathCheck(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	args := datatree.NewRoot("test-module")
	materialized, errs := m.ValidateProcedure(sess, datamanager.RPCProcedure, "/test-module:ping", "", datamanager.Input, args)
	require.Empty(t, errs)
	assert.Same(t, args, materialized)
}

func TestValidateProcedureActionRequiresTargetPath(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	_, errs := m.ValidateProcedure(sess, datamanager.ActionProcedure, "/test-module:reset", "", datamanager.Input, nil)
	require.Len(t, errs, 1)
}

func TestValidateProcedureActionFailsWhenTargetMissing(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	_, errs := m.ValidateProcedure(sess, datamanager.ActionProcedure, "/test-module:reset",
		"/test-module:missing", datamanager.Input, nil)
	require.Len(t, errs, 1)
}

func TestValidateProcedureActionSucceedsWhenTargetExists(t *testing.T) {
	m := newTestManager(t, nopValidator{})

	seed := session.New("seed", access.Identity{})
	path := "/test-module:top"
	require.NoError(t, m.SetItem(seed, path, nil, 0))
	di, err := m.GetDataInfo(seed, "test-module")
	require.NoError(t, err)
	require.NoError(t, m.Store.Save("test-module", seed.CurrentDatastore(), di.Root))

	sess := session.New("sess-1", access.Identity{})
	args := datatree.NewRoot("test-module")
	materialized, errs := m.ValidateProcedure(sess, datamanager.ActionProcedure,
		"/test-module:top/reset", path, datamanager.Input, args)
	require.Empty(t, errs)
	assert.Same(t, args, materialized)
}
