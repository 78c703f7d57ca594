//go:build linux

package memory

import "golang.org/x/sys/unix"

// bindCurrentThreadToCPUs pins the calling OS thread's CPU affinity mask to
// exactly cpus. The caller must have already called runtime.LockOSThread.
func bindCurrentThreadToCPUs(cpus []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	return unix.SchedSetaffinity(0, &set)
}
