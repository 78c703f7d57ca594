// Package config holds the engine's recognized startup options: the only
// four knobs spec.md names (group_count, thread_count_per_group,
// page_pool_size_per_node, private_initial_grab), validated the way the
// teacher validates its own option structs.
package config

import "fmt"

// Options is the engine's startup configuration.
type Options struct {
	// GroupCount is the number of NUMA nodes to bind. Must be <= MaxGroups.
	GroupCount int
	// ThreadCountPerGroup is the number of workers spawned per node.
	ThreadCountPerGroup int
	// PagePoolSizePerNode is the byte size of one node's page pool.
	PagePoolSizePerNode int64
	// PrivateInitialGrab is how many pages each worker grabs from its
	// node's pool at initialization.
	PrivateInitialGrab int
}

// DefaultOptions returns a small, single-node configuration suitable for
// tests and the CLI's default profile.
func DefaultOptions() Options {
	return Options{
		GroupCount:          1,
		ThreadCountPerGroup: 4,
		PagePoolSizePerNode: 16 << 20, // 16 MiB
		PrivateInitialGrab:  32,
	}
}

// TotalThreads returns GroupCount * ThreadCountPerGroup.
func (o Options) TotalThreads() int {
	return o.GroupCount * o.ThreadCountPerGroup
}

// Validate checks the struct for internally-consistent values. It does not
// check page-pool sizing against total thread count: that check needs
// PageSize, which only the memory package knows about, so EngineMemory
// performs it as part of its own startup algorithm.
func (o Options) Validate() error {
	if o.GroupCount <= 0 {
		return fmt.Errorf("config: group_count must be positive, got %d", o.GroupCount)
	}
	if o.GroupCount > 256 {
		return fmt.Errorf("config: group_count must be <= 256, got %d", o.GroupCount)
	}
	if o.ThreadCountPerGroup <= 0 {
		return fmt.Errorf("config: thread_count_per_group must be positive, got %d", o.ThreadCountPerGroup)
	}
	if o.PagePoolSizePerNode <= 0 {
		return fmt.Errorf("config: page_pool_size_per_node must be positive, got %d", o.PagePoolSizePerNode)
	}
	if o.PrivateInitialGrab <= 0 {
		return fmt.Errorf("config: private_initial_grab must be positive, got %d", o.PrivateInitialGrab)
	}
	return nil
}
