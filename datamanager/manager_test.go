package datamanager_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysrepo-go/core/access"
	"github.com/sysrepo-go/core/commitstore"
	"github.com/sysrepo-go/core/datamanager"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/lockset"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/notify"
	"github.com/sysrepo-go/core/schema"
	"github.com/sysrepo-go/core/session"
	"github.com/sysrepo-go/core/value"
)

type nopValidator struct{}

func (nopValidator) Validate(string, *datatree.Node) []error { return nil }
func (nopValidator) ValidateProcedure(_ string, _ datamanager.Direction, args *datatree.Node) (*datatree.Node, []error) {
	return args, nil
}
func (nopValidator) Defaults(string, string) *datatree.Node { return nil }

type rejectingValidator struct{ err error }

func (v rejectingValidator) Validate(string, *datatree.Node) []error { return []error{v.err} }
func (rejectingValidator) ValidateProcedure(string, datamanager.Direction, *datatree.Node) (*datatree.Node, []error) {
	return nil, nil
}
func (rejectingValidator) Defaults(string, string) *datatree.Node { return nil }

func newTestManager(t *testing.T, v datamanager.Validator) *datamanager.Manager {
	t.Helper()
	log := zerolog.Nop()
	cat := schema.NewCatalog(nil, nil)
	_, err := cat.Load(schema.Name{Module: "test-module"})
	require.NoError(t, err)

	store, err := datastore.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	locks := lockset.New()
	np := notify.NewProcessor(log)
	commits := commitstore.NewStore()

	return datamanager.New(cat, store, locks, np, commits, v, log)
}

func TestSetItemThenGetDataInfoReflectsEdit(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	path := "/test-module:leaf"
	require.NoError(t, m.SetItem(sess, path, value.NewString(path, "hi"), 0))

	di, err := m.GetDataInfo(sess, "test-module")
	require.NoError(t, err)
	assert.True(t, di.Modified)

	segs, _ := datatree.SplitPath(path)
	node := di.Root.Find(segs)
	require.NotNil(t, node)
	assert.Equal(t, "hi", node.Value.Data())
}

func TestGetDataInfoUnknownModuleErrors(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})
	_, err := m.GetDataInfo(sess, "nope")
	require.Error(t, err)
	assert.Equal(t, mgmterror.NotFound, mgmterror.KindOf(err))
}

func TestGetDataInfoDisabledModuleErrorsNotFound(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	require.NoError(t, m.Catalog.Uninstall("test-module"))

	sess := session.New("sess-1", access.Identity{})
	_, err := m.GetDataInfo(sess, "test-module")
	require.Error(t, err)
	assert.Equal(t, mgmterror.NotFound, mgmterror.KindOf(err))
}

func TestDeleteItemRemovesNode(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	path := "/test-module:leaf"
	require.NoError(t, m.SetItem(sess, path, value.NewString(path, "hi"), 0))
	require.NoError(t, m.DeleteItem(sess, path, 0))

	di, err := m.GetDataInfo(sess, "test-module")
	require.NoError(t, err)
	segs, _ := datatree.SplitPath(path)
	assert.Nil(t, di.Root.Find(segs))
}

func TestMoveItemReordersListEntries(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	for _, name := range []string{"a", "b"} {
		path := "/test-module:list[name='" + name + "']"
		require.NoError(t, m.SetItem(sess, path, nil, 0))
	}
	require.NoError(t, m.MoveItem(sess, "/test-module:list[name='b']", datatree.MoveFirst, ""))

	di, err := m.GetDataInfo(sess, "test-module")
	require.NoError(t, err)
	require.Len(t, di.Root.Children, 2)
	assert.Equal(t, "b", di.Root.Children[0].Seg.Preds[0].Value)
}

func TestValidateCollectsErrorsAcrossModifiedModules(t *testing.T) {
	boom := assertError("bad")
	m := newTestManager(t, rejectingValidator{err: boom})
	sess := session.New("sess-1", access.Identity{})

	path := "/test-module:leaf"
	require.NoError(t, m.SetItem(sess, path, value.NewString(path, "hi"), 0))

	errs := m.Validate(sess)
	require.Len(t, errs, 1)
	assert.Equal(t, boom, errs[0])
}

func TestDiscardChangesDropsWorkingCopy(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	path := "/test-module:leaf"
	require.NoError(t, m.SetItem(sess, path, value.NewString(path, "hi"), 0))
	m.DiscardChanges(sess)

	_, ok := sess.DataInfo(datastore.Running, "test-module")
	assert.False(t, ok)
}

func TestCommitWithNoModificationsIsNoop(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	id, errs := m.Commit(context.Background(), sess)
	assert.Zero(t, id)
	assert.Empty(t, errs)
}

func TestCommitWritesFileAndClearsSessionState(t *testing.T) {
	m := newTestManager(t, nopValidator{})
	sess := session.New("sess-1", access.Identity{})

	path := "/test-module:leaf"
	require.NoError(t, m.SetItem(sess, path, value.NewString(path, "hi"), 0))

	id, errs := m.Commit(context.Background(), sess)
	require.Empty(t, errs)
	assert.NotZero(t, id)

	_, ok := sess.DataInfo(datastore.Running, "test-module")
	assert.False(t, ok)

	ctx, ok := m.Commits.Get(id)
	require.True(t, ok)
	recs := ctx.ChangeRecords("test-module")
	require.Len(t, recs, 1)
	assert.Equal(t, datatree.Created, recs[0].Op)
}

func TestCommitAbortsOnValidationFailure(t *testing.T) {
	boom := assertError("invalid")
	m := newTestManager(t, rejectingValidator{err: boom})
	sess := session.New("sess-1", access.Identity{})

	path := "/test-module:leaf"
	require.NoError(t, m.SetItem(sess, path, value.NewString(path, "hi"), 0))

	id, errs := m.Commit(context.Background(), sess)
	assert.Zero(t, id)
	require.Len(t, errs, 1)
	assert.Equal(t, boom, errs[0])
}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

func assertError(msg string) error { return &fakeErr{msg: msg} }
