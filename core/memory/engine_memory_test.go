package memory

import (
	"testing"

	"github.com/emberdb/ember/core/config"
	"github.com/emberdb/ember/core/threadid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type alwaysUp struct{}

func (alwaysUp) IsInitialized() bool { return true }

type neverUp struct{}

func (neverUp) IsInitialized() bool { return false }

func singleNodeOptions() config.Options {
	return config.Options{
		GroupCount:          1,
		ThreadCountPerGroup: 2,
		PagePoolSizePerNode: 1 << 20,
		PrivateInitialGrab:  4,
	}
}

func TestEngineMemoryInitializeAndUninitialize(t *testing.T) {
	em := NewEngineMemory(alwaysUp{}, singleNodeOptions(), zap.NewNop())
	require.NoError(t, em.Initialize())
	defer func() { require.NoError(t, em.Uninitialize()) }()

	id := threadid.Compose(0, 0)
	cm, err := em.GetCoreMemory(id)
	require.NoError(t, err)
	require.Equal(t, id, cm.ThreadID)
	require.NotEmpty(t, cm.PrivateOffsets())

	resolver := em.GlobalResolver()
	require.Less(t, uint32(resolver.Begin()), uint32(resolver.End()))
}

func TestEngineMemoryInitializeFailsWithoutDebugModule(t *testing.T) {
	em := NewEngineMemory(neverUp{}, singleNodeOptions(), zap.NewNop())
	require.ErrorIs(t, em.Initialize(), ErrDependentModuleUnavailableInit)
}

func TestEngineMemoryInitializeFailsWhenPagePoolTooSmall(t *testing.T) {
	opts := singleNodeOptions()
	opts.PagePoolSizePerNode = int64(PageSize) // far too small for 2 threads * 4 pages each
	em := NewEngineMemory(alwaysUp{}, opts, zap.NewNop())
	require.ErrorIs(t, em.Initialize(), ErrPagePoolTooSmall)
}

func TestEngineMemoryPinCurrentThreadOutOfRange(t *testing.T) {
	em := NewEngineMemory(alwaysUp{}, singleNodeOptions(), zap.NewNop())
	require.NoError(t, em.Initialize())
	defer func() { require.NoError(t, em.Uninitialize()) }()

	require.Error(t, em.PinCurrentThread(threadid.NodeID(5)))
}
