//go:build linux && !tinygo

// affinity_linux.go
//
// Linux binding for sched_setaffinity(2) that pins the calling OS thread
// to one logical CPU.  Pinned workers are the point of the lab: a thread
// that migrates mid-run smears its cache traffic and makes contention
// numbers incomparable between runs.
//
//   - cpuMasks pre-defines one single-word bitmask per logical CPU 0-63,
//     so the call path allocates nothing and the kernel reads a plain
//     8-byte buffer.
//   - CPUs beyond 63 are ignored; the first 64 cores are plenty for a
//     lab arena that fits in L2.
//   - Errors are swallowed. Under cgroup or container policy the call
//     may return EPERM, and the worker simply runs unpinned.

package caslab

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Pre-computed one-word affinity masks for logical CPUs 0-63.
var cpuMasks = [...][1]uintptr{
	{1 << 0}, {1 << 1}, {1 << 2}, {1 << 3}, {1 << 4}, {1 << 5}, {1 << 6}, {1 << 7},
	{1 << 8}, {1 << 9}, {1 << 10}, {1 << 11}, {1 << 12}, {1 << 13}, {1 << 14}, {1 << 15},
	{1 << 16}, {1 << 17}, {1 << 18}, {1 << 19}, {1 << 20}, {1 << 21}, {1 << 22}, {1 << 23},
	{1 << 24}, {1 << 25}, {1 << 26}, {1 << 27}, {1 << 28}, {1 << 29}, {1 << 30}, {1 << 31},
	{1 << 32}, {1 << 33}, {1 << 34}, {1 << 35}, {1 << 36}, {1 << 37}, {1 << 38}, {1 << 39},
	{1 << 40}, {1 << 41}, {1 << 42}, {1 << 43}, {1 << 44}, {1 << 45}, {1 << 46}, {1 << 47},
	{1 << 48}, {1 << 49}, {1 << 50}, {1 << 51}, {1 << 52}, {1 << 53}, {1 << 54}, {1 << 55},
	{1 << 56}, {1 << 57}, {1 << 58}, {1 << 59}, {1 << 60}, {1 << 61}, {1 << 62}, {1 << 63},
}

// setAffinity pins the current thread to cpu (0-based). Out-of-range
// indices are ignored.
func setAffinity(cpu int) {
	if cpu < 0 || cpu >= len(cpuMasks) {
		return
	}
	mask := &cpuMasks[cpu]
	_, _, _ = unix.RawSyscall(
		unix.SYS_SCHED_SETAFFINITY,
		0, // pid 0 means current thread
		uintptr(unsafe.Sizeof(mask[0])),
		uintptr(unsafe.Pointer(mask)),
	)
}
