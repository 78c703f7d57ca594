package storage

import (
	"testing"

	"github.com/emberdb/ember/core/xct"
	"github.com/stretchr/testify/require"
)

func TestIndexLookupMissingKeyIsEmpty(t *testing.T) {
	x := NewIndex("by_bucket")
	mgr := xct.NewManager(xct.NewEpochManager())
	rec := beginRecord(t, mgr)

	ids, err := x.Lookup(rec, 42)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIndexAddIDThenCommitIsVisible(t *testing.T) {
	x := NewIndex("by_bucket")
	mgr := xct.NewManager(xct.NewEpochManager())

	rec := beginRecord(t, mgr)
	require.NoError(t, x.AddID(rec, 1, 100))
	_, err := mgr.PrecommitXct(rec)
	require.NoError(t, err)

	rec2 := beginRecord(t, mgr)
	ids, err := x.Lookup(rec2, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{100}, ids)
}

func TestIndexAddIDIsIdempotent(t *testing.T) {
	x := NewIndex("by_bucket")
	mgr := xct.NewManager(xct.NewEpochManager())

	rec := beginRecord(t, mgr)
	require.NoError(t, x.AddID(rec, 1, 100))
	require.NoError(t, x.AddID(rec, 1, 100))
	_, err := mgr.PrecommitXct(rec)
	require.NoError(t, err)

	rec2 := beginRecord(t, mgr)
	ids, err := x.Lookup(rec2, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{100}, ids)
}

func TestIndexAndArrayCommitTogetherOrNotAtAll(t *testing.T) {
	a := NewArray("primary", 8, 4)
	x := NewIndex("by_bucket")
	mgr := xct.NewManager(xct.NewEpochManager())

	recA := beginRecord(t, mgr)
	recB := beginRecord(t, mgr)

	_, err := a.GetRecord(recA, 0)
	require.NoError(t, err)
	_, err = a.GetRecord(recB, 0)
	require.NoError(t, err)

	require.NoError(t, a.OverwriteRecord(recA, 0, []byte("aaaaaaaa")))
	require.NoError(t, x.AddID(recA, 7, 0))
	_, err = mgr.PrecommitXct(recA)
	require.NoError(t, err)

	// recB raced against recA's primary write; its index write must never
	// have landed either, since both belong to the same write-set.
	require.NoError(t, a.OverwriteRecord(recB, 0, []byte("bbbbbbbb")))
	require.NoError(t, x.AddID(recB, 9, 0))
	_, err = mgr.PrecommitXct(recB)
	require.ErrorIs(t, err, xct.ErrRaceAbort)

	rec3 := beginRecord(t, mgr)
	ids9, err := x.Lookup(rec3, 9)
	require.NoError(t, err)
	require.Empty(t, ids9, "aborted transaction's index write must not be visible")
}
