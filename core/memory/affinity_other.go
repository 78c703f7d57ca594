//go:build !linux

package memory

// bindCurrentThreadToCPUs is a no-op on platforms without sched_setaffinity:
// threads are not steered onto a node's CPUs. It does not make the engine
// start on such hosts: EngineMemory.Initialize still fails with
// ErrNUMAUnavailable when DetectTopology finds no sysfs NUMA topology.
func bindCurrentThreadToCPUs(cpus []int) error {
	return nil
}
