package memory

import (
	"fmt"
	"runtime"

	"github.com/emberdb/ember/core/config"
	"github.com/emberdb/ember/core/threadid"
	"go.uber.org/zap"
)

// CoreMemory is the per-core slice of a node's memory that a single worker
// is allowed to touch directly: its thread id and a private chunk of pages
// grabbed from the node's pool at startup. Only the owning worker thread
// ever reads or writes a CoreMemory's chunk; that's the whole point of it.
type CoreMemory struct {
	ThreadID threadid.ID
	chunk    OffsetChunk
}

// PrivateOffsets returns the page offsets this core grabbed for itself at
// initialization.
func (c *CoreMemory) PrivateOffsets() []PageOffset {
	cp := make([]PageOffset, len(c.chunk.offsets))
	copy(cp, c.chunk.offsets)
	return cp
}

// NodeMemory owns one NUMA node's page pool and the per-core slivers carved
// out of it. It is C1: everything it does happens on memory local (or, on
// platforms without true NUMA allocation control, affinity-steered) to its
// node.
type NodeMemory struct {
	node      threadid.NodeID
	log       *zap.Logger
	pagePool  *PagePool
	cores     []*CoreMemory
	pageCount PageOffset
}

// newNodeMemory constructs a NodeMemory in an uninitialized state; no
// allocation happens until Initialize.
func newNodeMemory(node threadid.NodeID, log *zap.Logger) *NodeMemory {
	return &NodeMemory{node: node, log: log}
}

// Initialize allocates the node's page pool, steering the allocating
// goroutine's OS thread onto the node's CPUs first so the runtime's
// allocator (best-effort, absent true NUMA malloc control from pure Go)
// prefers node-local memory. It then grabs each core's private initial
// chunk of pages.
func (m *NodeMemory) Initialize(topo *Topology, opts config.Options) error {
	cpus := topo.CPUsForNode(int(m.node))
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := bindCurrentThreadToCPUs(cpus); err != nil {
		m.log.Warn("failed to steer allocation to numa node; continuing best-effort",
			zap.Uint16("node", uint16(m.node)), zap.Error(err))
	}

	pageCount := PageOffset(opts.PagePoolSizePerNode / PageSize)
	arena := make(Base, int(pageCount)*PageSize)
	m.pageCount = pageCount
	m.pagePool = newPagePool(arena, pageCount)

	m.cores = make([]*CoreMemory, opts.ThreadCountPerGroup)
	for core := 0; core < opts.ThreadCountPerGroup; core++ {
		id := threadid.Compose(m.node, threadid.CoreID(core))
		cm := &CoreMemory{ThreadID: id}
		if err := m.pagePool.Grab(opts.PrivateInitialGrab, &cm.chunk); err != nil {
			return fmt.Errorf("node %d core %d: initial page grab: %w", m.node, core, err)
		}
		m.cores[core] = cm
	}

	m.log.Info("numa node memory initialized",
		zap.Uint16("node", uint16(m.node)),
		zap.Int("page_count", int(pageCount)),
		zap.Int("cores", len(m.cores)))
	return nil
}

// Uninitialize releases the node's page pool. There is nothing to return
// to the OS explicitly: Go's GC reclaims the arena once the NodeMemory
// itself is dropped.
func (m *NodeMemory) Uninitialize() error {
	m.pagePool = nil
	m.cores = nil
	return nil
}

// GetCoreMemory returns the CoreMemory for id. id's node component must
// equal this node's id.
func (m *NodeMemory) GetCoreMemory(id threadid.ID) (*CoreMemory, error) {
	node, core := threadid.Decompose(id)
	if node != m.node {
		return nil, fmt.Errorf("thread %s does not belong to node %d", id, m.node)
	}
	if int(core) >= len(m.cores) {
		return nil, fmt.Errorf("thread %s: core %d out of range (have %d)", id, core, len(m.cores))
	}
	return m.cores[core], nil
}

// PagePool exposes the node's pool, e.g. for a batch grabber/releaser.
func (m *NodeMemory) PagePool() *PagePool { return m.pagePool }

// NodeID returns which NUMA node this memory belongs to.
func (m *NodeMemory) NodeID() threadid.NodeID { return m.node }
