package memory

import (
	"errors"
	"sync"
)

// ErrNoFreePages is returned by PagePool.Grab when a node's pool has
// nothing left to hand out.
var ErrNoFreePages = errors.New("memory: no free pages in pool")

// OffsetChunk is a small batch of page offsets moving between a pool and a
// caller, grounded on the page-pool's own chunked grab/release batching.
// It intentionally has no pin/dirty bookkeeping: those belong to whatever
// storage structure owns the page's contents, not to the pool.
type OffsetChunk struct {
	offsets []PageOffset
}

// Len reports how many offsets the chunk currently holds.
func (c *OffsetChunk) Len() int { return len(c.offsets) }

// Empty reports whether the chunk holds no offsets.
func (c *OffsetChunk) Empty() bool { return len(c.offsets) == 0 }

// PushBack appends offsets onto the chunk.
func (c *OffsetChunk) PushBack(offsets ...PageOffset) {
	c.offsets = append(c.offsets, offsets...)
}

// PopBack removes and returns the most recently pushed offset.
func (c *OffsetChunk) PopBack() (PageOffset, bool) {
	if len(c.offsets) == 0 {
		return 0, false
	}
	last := c.offsets[len(c.offsets)-1]
	c.offsets = c.offsets[:len(c.offsets)-1]
	return last, true
}

// PagePool is the free-list allocator backing one node's arena. It is
// shared by every core on the node, guarded by a single mutex: contention
// here is expected to be rare (pages are grabbed in private chunks up
// front, not one at a time per record write).
type PagePool struct {
	mu       sync.Mutex
	resolver LocalPageResolver
	free     []PageOffset
}

// newPagePool creates a pool over arena, with pages [1, pageCount) free
// (offset 0 is reserved, see PageOffset).
func newPagePool(arena Base, pageCount PageOffset) *PagePool {
	free := make([]PageOffset, 0, pageCount-1)
	for off := PageOffset(1); off < pageCount; off++ {
		free = append(free, off)
	}
	return &PagePool{
		resolver: LocalPageResolver{Base: arena, Begin: 0, End: pageCount},
		free:     free,
	}
}

// Resolver returns the pool's (base, begin, end) triple.
func (p *PagePool) Resolver() LocalPageResolver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolver
}

// Grab moves up to desiredCount offsets from the pool's free list into
// chunk. It fails with ErrNoFreePages, never blocks, and never partially
// fills short of what's actually free when some pages remain.
func (p *PagePool) Grab(desiredCount int, chunk *OffsetChunk) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return ErrNoFreePages
	}
	n := desiredCount
	if n > len(p.free) {
		n = len(p.free)
	}
	chunk.PushBack(p.free[len(p.free)-n:]...)
	p.free = p.free[:len(p.free)-n]
	return nil
}

// Release returns up to desiredCount offsets from chunk back to the pool's
// free list.
func (p *PagePool) Release(desiredCount int, chunk *OffsetChunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := desiredCount
	if n > chunk.Len() {
		n = chunk.Len()
	}
	for i := 0; i < n; i++ {
		off, ok := chunk.PopBack()
		if !ok {
			break
		}
		p.free = append(p.free, off)
	}
}

// ReleaseBatch accumulates single-page releases per NUMA node and flushes
// them to the owning node's pool in chunks, instead of taking the pool
// mutex once per page. Grounded on the original engine's PageReleaseBatch.
type ReleaseBatch struct {
	engine *EngineMemory
	chunks []OffsetChunk
}

// NewReleaseBatch creates a release batch over every node engine owns.
func NewReleaseBatch(engine *EngineMemory) *ReleaseBatch {
	return &ReleaseBatch{engine: engine, chunks: make([]OffsetChunk, len(engine.nodeMemories))}
}

// Release queues offset for release back to node's pool.
func (b *ReleaseBatch) Release(node int, offset PageOffset) {
	b.chunks[node].PushBack(offset)
	if b.chunks[node].Len() >= releaseChunkSize {
		b.flush(node)
	}
}

// ReleaseAll flushes every node's queued releases.
func (b *ReleaseBatch) ReleaseAll() {
	for node := range b.chunks {
		b.flush(node)
	}
}

func (b *ReleaseBatch) flush(node int) {
	chunk := &b.chunks[node]
	if chunk.Empty() {
		return
	}
	b.engine.nodeMemories[node].pagePool.Release(chunk.Len(), chunk)
}

const releaseChunkSize = 256

// RoundRobinGrabBatch spreads page grabs evenly across nodes, falling
// through to the next node when one runs dry instead of failing outright.
// Grounded on the original engine's RoundRobinPageGrabBatch.
type RoundRobinGrabBatch struct {
	engine      *EngineMemory
	currentNode int
	chunk       OffsetChunk
}

// NewRoundRobinGrabBatch creates a batch grabber over every node engine owns.
func NewRoundRobinGrabBatch(engine *EngineMemory) *RoundRobinGrabBatch {
	return &RoundRobinGrabBatch{engine: engine}
}

// grabChunkSize is how many offsets RoundRobinGrabBatch asks the
// underlying pool for whenever its local chunk runs dry.
const grabChunkSize = 64

// Grab returns one (node, offset) pair, refilling from whichever node has
// free pages if its local chunk is empty.
func (b *RoundRobinGrabBatch) Grab() (int, PageOffset, error) {
	if b.chunk.Empty() {
		start := b.currentNode
		for {
			b.currentNode = (b.currentNode + 1) % len(b.engine.nodeMemories)
			err := b.engine.nodeMemories[b.currentNode].pagePool.Grab(grabChunkSize, &b.chunk)
			if err == nil {
				break
			}
			if !errors.Is(err, ErrNoFreePages) {
				return 0, 0, err
			}
			if b.currentNode == start {
				return 0, 0, ErrNoFreePages
			}
		}
	}
	off, _ := b.chunk.PopBack()
	return b.currentNode, off, nil
}

// ReleaseAll returns every offset still held in the batch's local chunk to
// its node's pool.
func (b *RoundRobinGrabBatch) ReleaseAll() {
	if b.chunk.Empty() {
		return
	}
	b.engine.nodeMemories[b.currentNode].pagePool.Release(b.chunk.Len(), &b.chunk)
}
