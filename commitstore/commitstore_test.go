package commitstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysrepo-go/core/commitstore"
	"github.com/sysrepo-go/core/datatree"
)

func TestBeginInsertGet(t *testing.T) {
	s := commitstore.NewStore()
	ctx := commitstore.Begin(1)
	s.Insert(ctx)

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Same(t, ctx, got)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	s := commitstore.NewStore()
	_, ok := s.Get(99)
	assert.False(t, ok)
}

func TestReleaseRemovesContext(t *testing.T) {
	s := commitstore.NewStore()
	s.Insert(commitstore.Begin(1))
	s.Release(1)

	_, ok := s.Get(1)
	assert.False(t, ok)
}

func TestReleaseTimeoutFiresAfterDelay(t *testing.T) {
	s := commitstore.NewStore()
	s.Insert(commitstore.Begin(1))

	stop := s.ReleaseTimeout(1, 20*time.Millisecond)
	defer stop()

	time.Sleep(60 * time.Millisecond)
	_, ok := s.Get(1)
	assert.False(t, ok)
}

func TestReleaseTimeoutStopPreventsRelease(t *testing.T) {
	s := commitstore.NewStore()
	s.Insert(commitstore.Begin(1))

	stop := s.ReleaseTimeout(1, 20*time.Millisecond)
	stop()

	time.Sleep(60 * time.Millisecond)
	_, ok := s.Get(1)
	assert.True(t, ok)
}

func TestChangeRecordsMaterializesFromDiffOnce(t *testing.T) {
	ctx := commitstore.Begin(1)
	ctx.SetDiff("m", []datatree.ChangeRecord{{Op: datatree.Created, Path: "/m:leaf"}})

	recs := ctx.ChangeRecords("m")
	require.Len(t, recs, 1)
	assert.Equal(t, "/m:leaf", recs[0].Path)

	// second call returns the cached slice, not a fresh materialization.
	recs2 := ctx.ChangeRecords("m")
	assert.Equal(t, recs, recs2)
}

func TestWindowBasicSlicing(t *testing.T) {
	recs := []datatree.ChangeRecord{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}}

	got, err := commitstore.Window(recs, 1, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/b", got[0].Path)
}

func TestWindowZeroLimitReturnsRemainder(t *testing.T) {
	recs := []datatree.ChangeRecord{{Path: "/a"}, {Path: "/b"}}
	got, err := commitstore.Window(recs, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, recs[1:], got)
}

func TestWindowOffsetAtEndOfNonEmptyFails(t *testing.T) {
	recs := []datatree.ChangeRecord{{Path: "/a"}}
	_, err := commitstore.Window(recs, 1, 1)
	assert.Error(t, err)
}

func TestWindowOffsetBeyondEndFails(t *testing.T) {
	recs := []datatree.ChangeRecord{{Path: "/a"}}
	_, err := commitstore.Window(recs, 5, 1)
	assert.Error(t, err)
}

func TestWindowEmptyRecordsWithZeroOffsetSucceeds(t *testing.T) {
	got, err := commitstore.Window(nil, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}
