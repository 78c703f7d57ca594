package engine

import (
	"context"
	"testing"

	"github.com/emberdb/ember/core/config"
	"github.com/emberdb/ember/core/storage"
	"github.com/emberdb/ember/core/thread"
	"github.com/emberdb/ember/core/workload"
	"github.com/emberdb/ember/core/xct"
	"github.com/stretchr/testify/require"
)

const (
	testRecords = 10
	testThreads = 10
)

func newTestEngine(t *testing.T, threadsPerGroup int) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Options = config.Options{
		GroupCount:          1,
		ThreadCountPerGroup: threadsPerGroup,
		PagePoolSizePerNode: 1 << 20,
		PrivateInitialGrab:  4,
	}
	eng := New(cfg)
	require.NoError(t, eng.Initialize())
	t.Cleanup(func() { require.NoError(t, eng.Uninitialize()) })
	return eng
}

// runConflictScenario is the engine-level analogue of the original
// commit-conflict fixture's run_test: it spins up testThreads concurrent
// increment tasks, gated on one shared start signal, assigns each to a
// primary record via assign, and checks every record ends up with exactly
// the sum of the increments that landed on it.
func runConflictScenario(t *testing.T, assign func(i int) uint64) {
	t.Helper()
	eng := newTestEngine(t, testThreads)

	primary := storage.NewArray("primary", 8, testRecords)
	secondary := storage.NewIndex("by_value_bucket")

	require.NoError(t, eng.Run(context.Background(), &workload.InitTask{Primary: primary}))

	gate := make(chan struct{})
	sessions := make([]thread.Session, testThreads)
	for i := 0; i < testThreads; i++ {
		task := &workload.IncrementTask{
			Primary:   primary,
			Secondary: secondary,
			Buckets:   4,
			Offset:    assign(i),
			Amount:    uint64(i*20 + 4),
			StartGate: gate,
		}
		session := eng.Pool().Impersonate(task)
		require.True(t, session.Valid())
		sessions[i] = session
	}
	close(gate)
	for i, session := range sessions {
		require.NoError(t, session.GetResult(), "task %d", i)
	}

	want := make([]uint64, testRecords)
	for i := 0; i < testThreads; i++ {
		want[assign(i)] += uint64(i*20 + 4)
	}

	got := make([]uint64, testRecords)
	require.NoError(t, eng.Run(context.Background(), &workload.ReadAllTask{Primary: primary, Output: got}))
	require.Equal(t, want, got)
}

func TestEngineNoConflict(t *testing.T) {
	runConflictScenario(t, func(i int) uint64 { return uint64(i) })
}

func TestEngineLightConflict(t *testing.T) {
	runConflictScenario(t, func(i int) uint64 { return uint64(i) / 2 })
}

func TestEngineHeavyConflict(t *testing.T) {
	runConflictScenario(t, func(i int) uint64 { return uint64(i) / 5 })
}

func TestEngineExtremeConflict(t *testing.T) {
	runConflictScenario(t, func(i int) uint64 { return 0 })
}

func TestEngineShutdownDuringIdleIsClean(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options = config.Options{
		GroupCount:          1,
		ThreadCountPerGroup: 2,
		PagePoolSizePerNode: 1 << 20,
		PrivateInitialGrab:  4,
	}
	eng := New(cfg)
	require.NoError(t, eng.Initialize())
	require.NoError(t, eng.Uninitialize())
}

func TestEngineSingleWriterAtomicityAcrossPrimaryAndIndex(t *testing.T) {
	eng := newTestEngine(t, 2)
	primary := storage.NewArray("primary", 8, 1)
	secondary := storage.NewIndex("by_value_bucket")

	require.NoError(t, eng.Run(context.Background(), &workload.InitTask{Primary: primary}))
	require.NoError(t, eng.Run(context.Background(), &workload.IncrementTask{
		Primary: primary, Secondary: secondary, Buckets: 4, Offset: 0, Amount: 7,
	}))

	got := make([]uint64, 1)
	require.NoError(t, eng.Run(context.Background(), &workload.ReadAllTask{Primary: primary, Output: got}))
	require.Equal(t, uint64(7), got[0])

	var ids []uint64
	require.NoError(t, eng.Run(context.Background(), thread.TaskFunc(func(ctx thread.Context) error {
		mgr := ctx.TransactionManager()
		rec := ctx.XctRecord()
		if err := mgr.BeginXct(rec, xct.Serializable); err != nil {
			return err
		}
		var err error
		ids, err = secondary.Lookup(rec, 7%4)
		if err != nil {
			return err
		}
		_, err = mgr.PrecommitXct(rec)
		return err
	})))
	require.Contains(t, ids, uint64(0), "the record's id must be filed under its value's bucket in the same transaction that updated it")
}
