package memory

import (
	"testing"

	"github.com/emberdb/ember/core/threadid"
	"github.com/stretchr/testify/require"
)

func TestPagePoolGrabAndRelease(t *testing.T) {
	arena := make(Base, 8*PageSize)
	pool := newPagePool(arena, 8) // offsets [1, 8) free, 0 reserved

	var chunk OffsetChunk
	require.NoError(t, pool.Grab(3, &chunk))
	require.Equal(t, 3, chunk.Len())

	pool.Release(3, &chunk)
	require.True(t, chunk.Empty())

	var chunk2 OffsetChunk
	require.NoError(t, pool.Grab(10, &chunk2))
	require.Equal(t, 7, chunk2.Len(), "grab must cap at what's actually free, not error")
}

func TestPagePoolGrabExhausted(t *testing.T) {
	arena := make(Base, 2*PageSize)
	pool := newPagePool(arena, 2) // only offset 1 is free

	var chunk OffsetChunk
	require.NoError(t, pool.Grab(1, &chunk))
	require.Equal(t, 1, chunk.Len())

	var chunk2 OffsetChunk
	err := pool.Grab(1, &chunk2)
	require.ErrorIs(t, err, ErrNoFreePages)
}

func TestPagePoolResolverBounds(t *testing.T) {
	arena := make(Base, 4*PageSize)
	pool := newPagePool(arena, 4)
	r := pool.Resolver()
	require.Equal(t, PageOffset(0), r.Begin)
	require.Equal(t, PageOffset(4), r.End)

	page, err := r.Resolve(1)
	require.NoError(t, err)
	require.Len(t, page, PageSize)

	_, err = r.Resolve(4)
	require.Error(t, err, "end is exclusive")
}

func newTestEngineMemoryForBatching(t *testing.T, nodeCount int, pagesPerNode PageOffset) *EngineMemory {
	t.Helper()
	em := &EngineMemory{}
	for node := 0; node < nodeCount; node++ {
		nm := &NodeMemory{node: threadid.NodeID(node)}
		arena := make(Base, int(pagesPerNode)*PageSize)
		nm.pagePool = newPagePool(arena, pagesPerNode)
		em.nodeMemories = append(em.nodeMemories, nm)
	}
	return em
}

func TestRoundRobinGrabBatchSpreadsAcrossNodes(t *testing.T) {
	em := newTestEngineMemoryForBatching(t, 2, 4) // 3 free pages per node
	b := NewRoundRobinGrabBatch(em)

	seen := map[int]int{}
	for i := 0; i < 6; i++ {
		node, _, err := b.Grab()
		require.NoError(t, err)
		seen[node]++
	}
	require.Equal(t, 3, seen[0])
	require.Equal(t, 3, seen[1])

	_, _, err := b.Grab()
	require.ErrorIs(t, err, ErrNoFreePages)
}

func TestRoundRobinGrabBatchReleaseAllReturnsLocalChunk(t *testing.T) {
	em := newTestEngineMemoryForBatching(t, 1, 4)
	b := NewRoundRobinGrabBatch(em)

	_, _, err := b.Grab()
	require.NoError(t, err)
	require.False(t, b.chunk.Empty())

	b.ReleaseAll()
	require.True(t, b.chunk.Empty())

	var probe OffsetChunk
	require.NoError(t, em.nodeMemories[0].pagePool.Grab(3, &probe))
	require.Equal(t, 2, probe.Len(), "the one offset consumed by Grab stays out; the rest comes back via ReleaseAll")
}

func TestReleaseBatchFlushesPerNodeAtChunkSize(t *testing.T) {
	em := newTestEngineMemoryForBatching(t, 1, 300)
	b := NewReleaseBatch(em)

	for off := PageOffset(1); off < 1+releaseChunkSize; off++ {
		b.Release(0, off)
	}
	require.True(t, b.chunks[0].Empty(), "release must flush once the chunk hits releaseChunkSize")

	b.Release(0, PageOffset(1+releaseChunkSize))
	require.Equal(t, 1, b.chunks[0].Len())
	b.ReleaseAll()
	require.True(t, b.chunks[0].Empty())
}
