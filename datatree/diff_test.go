package datatree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/value"
)

func TestDiffCreatedAndDeletedLeaves(t *testing.T) {
	pre := datatree.NewRoot("test-module")
	require.NoError(t, pre.Set("/test-module:old", value.NewString("x", "a"), 0))

	post := datatree.NewRoot("test-module")
	require.NoError(t, post.Set("/test-module:new", value.NewString("x", "b"), 0))

	changes := datatree.Diff(pre, post)

	var created, deleted bool
	for _, c := range changes {
		if c.Op == datatree.Created && c.Path == "/test-module:new" {
			created = true
		}
		if c.Op == datatree.Deleted && c.Path == "/test-module:old" {
			deleted = true
		}
	}
	assert.True(t, created)
	assert.True(t, deleted)
}

func TestDiffChangedLeafValue(t *testing.T) {
	pre := datatree.NewRoot("test-module")
	require.NoError(t, pre.Set("/test-module:leaf", value.NewString("x", "a"), 0))

	post := datatree.NewRoot("test-module")
	require.NoError(t, post.Set("/test-module:leaf", value.NewString("x", "b"), 0))

	changes := datatree.Diff(pre, post)
	require.Len(t, changes, 1)
	assert.Equal(t, datatree.Changed, changes[0].Op)
	assert.Equal(t, "a", changes[0].OldValue.Data())
	assert.Equal(t, "b", changes[0].NewValue.Data())
}

func TestDiffNoChangesYieldsEmpty(t *testing.T) {
	pre := datatree.NewRoot("test-module")
	require.NoError(t, pre.Set("/test-module:leaf", value.NewString("x", "a"), 0))
	post := pre.Clone()

	assert.Empty(t, datatree.Diff(pre, post))
}

func TestDiffContainerCreationExpandsToLeaves(t *testing.T) {
	pre := datatree.NewRoot("test-module")

	post := datatree.NewRoot("test-module")
	require.NoError(t, post.Set("/test-module:top/a", value.NewString("x", "1"), 0))
	require.NoError(t, post.Set("/test-module:top/b", value.NewString("x", "2"), 0))

	changes := datatree.Diff(pre, post)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, datatree.Created, c.Op)
	}
}

func TestDiffReorderEmitsMovedPair(t *testing.T) {
	pre := datatree.NewRoot("test-module")
	for _, name := range []string{"a", "b"} {
		require.NoError(t, pre.Set("/test-module:list[name='"+name+"']", nil, 0))
	}

	post := pre.Clone()
	require.NoError(t, post.Move("/test-module:list[name='a']", datatree.MoveLast, ""))

	changes := datatree.Diff(pre, post)

	var moved1, moved2 bool
	for _, c := range changes {
		if c.Op == datatree.MovedAfter1 {
			moved1 = true
		}
		if c.Op == datatree.MovedAfter2 {
			moved2 = true
		}
	}
	assert.True(t, moved1)
	assert.True(t, moved2)
}
