//go:build !linux || tinygo

// affinity_stub.go
//
// No-op affinity for platforms without sched_setaffinity(2). Workers
// still lock their OS thread; they just run wherever the scheduler
// puts them.

package caslab

// setAffinity is a no-op on unsupported targets.
func setAffinity(cpu int) {}
