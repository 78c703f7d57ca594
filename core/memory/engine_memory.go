package memory

import (
	"errors"
	"fmt"

	"github.com/emberdb/ember/core/config"
	"github.com/emberdb/ember/core/threadid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrDependentModuleUnavailableInit is returned when EngineMemory.Initialize
// is called before its debugging-subsystem dependency has started.
var ErrDependentModuleUnavailableInit = errors.New("memory: dependent module (debug) not initialized")

// ErrDependentModuleUnavailableUninit is appended to the shutdown batch
// when the debugging subsystem has already torn down by the time
// EngineMemory.Uninitialize runs.
var ErrDependentModuleUnavailableUninit = errors.New("memory: dependent module (debug) unavailable at uninit")

// ErrPagePoolTooSmall is returned when the configured page pool, in bytes
// across all nodes, is smaller than total threads × PrivateInitialGrab ×
// PageSize. The check does not account for the reserved offset 0, so at
// exactly that size the last core on a node gets one page fewer.
var ErrPagePoolTooSmall = errors.New("memory: page pool too small for configured thread count")

// DebugModule is the "debugging subsystem" collaborator spec.md's startup
// algorithm depends on. EngineMemory only needs to know whether it's up.
type DebugModule interface {
	IsInitialized() bool
}

// EngineMemory is C2: it builds one NodeMemory per NUMA node and assembles
// the GlobalPageResolver every worker and storage collaborator resolves
// pages through.
type EngineMemory struct {
	log            *zap.Logger
	debug          DebugModule
	opts           config.Options
	topo           *Topology
	nodeMemories   []*NodeMemory
	globalResolver GlobalPageResolver
}

// NewEngineMemory constructs an uninitialized EngineMemory.
func NewEngineMemory(debug DebugModule, opts config.Options, log *zap.Logger) *EngineMemory {
	return &EngineMemory{debug: debug, opts: opts, log: log}
}

// Initialize runs spec.md §4.2's five-step startup algorithm: verify
// dependencies, verify topology, size-check the page pool, build one
// NodeMemory per node while checking every node agrees on [begin, end),
// then assemble the GlobalPageResolver.
func (e *EngineMemory) Initialize() error {
	e.log.Info("initializing engine memory")
	if !e.debug.IsInitialized() {
		return ErrDependentModuleUnavailableInit
	}

	topo, err := DetectTopology()
	if err != nil {
		return err
	}
	if err := topo.validateGroupCount(e.opts.GroupCount); err != nil {
		return fmt.Errorf("%w: %v", ErrNUMAUnavailable, err)
	}
	e.topo = topo

	totalThreads := int64(e.opts.TotalThreads())
	minimalPagePool := totalThreads * int64(e.opts.PrivateInitialGrab) * PageSize
	if e.opts.PagePoolSizePerNode*int64(e.opts.GroupCount) < minimalPagePool {
		return fmt.Errorf("%w: have %d bytes total, need at least %d",
			ErrPagePoolTooSmall, e.opts.PagePoolSizePerNode*int64(e.opts.GroupCount), minimalPagePool)
	}

	bases := make([]Base, e.opts.GroupCount)
	var begin, end PageOffset
	for node := 0; node < e.opts.GroupCount; node++ {
		nm := newNodeMemory(threadid.NodeID(node), e.log)
		if err := nm.Initialize(topo, e.opts); err != nil {
			return fmt.Errorf("node %d: %w", node, err)
		}
		e.nodeMemories = append(e.nodeMemories, nm)

		resolver := nm.PagePool().Resolver()
		bases[node] = resolver.Base
		if node == 0 {
			begin, end = resolver.Begin, resolver.End
		} else if resolver.Begin != begin || resolver.End != end {
			return fmt.Errorf("memory: node %d resolver bounds [%d,%d) disagree with node 0's [%d,%d)",
				node, resolver.Begin, resolver.End, begin, end)
		}
	}

	e.globalResolver = NewGlobalPageResolver(bases, begin, end)
	e.log.Info("engine memory initialized",
		zap.Int("nodes", len(e.nodeMemories)), zap.Int("threads_per_node", e.opts.ThreadCountPerGroup))
	return nil
}

// Uninitialize tears down every node's memory, aggregating any failures
// into a single batched error, and flags a dependent-module error if the
// debugging subsystem has already gone away by the time this runs.
func (e *EngineMemory) Uninitialize() error {
	e.log.Info("uninitializing engine memory")
	var batch error
	if !e.debug.IsInitialized() {
		batch = multierr.Append(batch, ErrDependentModuleUnavailableUninit)
	}
	for _, nm := range e.nodeMemories {
		if err := nm.Uninitialize(); err != nil {
			batch = multierr.Append(batch, fmt.Errorf("node %d: %w", nm.NodeID(), err))
		}
	}
	e.nodeMemories = nil
	return batch
}

// GetCoreMemory resolves the CoreMemory for id, looking up the owning node
// first.
func (e *EngineMemory) GetCoreMemory(id threadid.ID) (*CoreMemory, error) {
	node := id.Node()
	if int(node) >= len(e.nodeMemories) {
		return nil, fmt.Errorf("thread %s: node %d out of range (have %d nodes)", id, node, len(e.nodeMemories))
	}
	return e.nodeMemories[node].GetCoreMemory(id)
}

// GetNodeMemory returns the NodeMemory for a node id, or nil if out of range.
func (e *EngineMemory) GetNodeMemory(node threadid.NodeID) *NodeMemory {
	if int(node) >= len(e.nodeMemories) {
		return nil
	}
	return e.nodeMemories[node]
}

// GlobalResolver returns the engine's immutable global page resolver.
func (e *EngineMemory) GlobalResolver() GlobalPageResolver { return e.globalResolver }

// PinCurrentThread steers the calling OS thread's affinity onto node's CPUs.
// Workers call this once, right after LockOSThread, before entering their
// run loop, exactly the way the original engine pins affinity inside the
// worker thread after spawn rather than from the spawning thread.
func (e *EngineMemory) PinCurrentThread(node threadid.NodeID) error {
	if e.topo == nil {
		return fmt.Errorf("memory: topology not detected yet")
	}
	if int(node) >= len(e.nodeMemories) {
		return fmt.Errorf("memory: node %d out of range (have %d nodes)", node, len(e.nodeMemories))
	}
	return bindCurrentThreadToCPUs(e.topo.CPUsForNode(int(node)))
}
