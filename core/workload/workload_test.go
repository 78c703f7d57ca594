package workload

import (
	"testing"

	"github.com/emberdb/ember/core/memory"
	"github.com/emberdb/ember/core/storage"
	"github.com/emberdb/ember/core/threadid"
	"github.com/emberdb/ember/core/xct"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// minimalContext is the smallest thread.Context a task needs to run
// against a bare Record and Manager, without spinning up a real worker or
// NUMA memory.
type minimalContext struct {
	mgr *xct.Manager
	rec *xct.Record
}

func (c *minimalContext) ThreadID() threadid.ID            { return threadid.Compose(0, 0) }
func (c *minimalContext) CoreMemory() *memory.CoreMemory   { return nil }
func (c *minimalContext) XctRecord() *xct.Record           { return c.rec }
func (c *minimalContext) TransactionManager() *xct.Manager { return c.mgr }
func (c *minimalContext) Logger() *zap.Logger              { return zap.NewNop() }

func newMinimalContext(mgr *xct.Manager) *minimalContext {
	return &minimalContext{mgr: mgr, rec: &xct.Record{}}
}

func TestInitTaskZeroesEveryRecord(t *testing.T) {
	primary := storage.NewArray("primary", 8, 4)
	mgr := xct.NewManager(xct.NewEpochManager())

	task := &InitTask{Primary: primary}
	require.NoError(t, task.Run(newMinimalContext(mgr)))

	out := make([]uint64, 4)
	readAll := &ReadAllTask{Primary: primary, Output: out}
	require.NoError(t, readAll.Run(newMinimalContext(mgr)))
	require.Equal(t, []uint64{0, 0, 0, 0}, out)
}

func TestIncrementTaskUpdatesPrimaryAndIndexTogether(t *testing.T) {
	primary := storage.NewArray("primary", 8, 4)
	secondary := storage.NewIndex("by_bucket")
	mgr := xct.NewManager(xct.NewEpochManager())

	require.NoError(t, (&InitTask{Primary: primary}).Run(newMinimalContext(mgr)))
	require.NoError(t, (&IncrementTask{
		Primary: primary, Secondary: secondary, Buckets: 4, Offset: 2, Amount: 9,
	}).Run(newMinimalContext(mgr)))

	out := make([]uint64, 4)
	require.NoError(t, (&ReadAllTask{Primary: primary, Output: out}).Run(newMinimalContext(mgr)))
	require.Equal(t, uint64(9), out[2])

	lookupCtx := newMinimalContext(mgr)
	require.NoError(t, mgr.BeginXct(lookupCtx.rec, xct.Serializable))
	ids, err := secondary.Lookup(lookupCtx.rec, 9%4)
	require.NoError(t, err)
	require.Contains(t, ids, uint64(2))
	_, err = mgr.PrecommitXct(lookupCtx.rec)
	require.NoError(t, err)
}

func TestIncrementTaskRunsOnceStartGateIsOpen(t *testing.T) {
	primary := storage.NewArray("primary", 8, 1)
	mgr := xct.NewManager(xct.NewEpochManager())
	require.NoError(t, (&InitTask{Primary: primary}).Run(newMinimalContext(mgr)))

	gate := make(chan struct{})
	close(gate)
	task := &IncrementTask{Primary: primary, Offset: 0, Amount: 5, StartGate: gate}
	require.NoError(t, task.Run(newMinimalContext(mgr)))

	out := make([]uint64, 1)
	require.NoError(t, (&ReadAllTask{Primary: primary, Output: out}).Run(newMinimalContext(mgr)))
	require.Equal(t, uint64(5), out[0])
}
