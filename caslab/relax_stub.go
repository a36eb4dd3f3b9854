//go:build !amd64 || noasm

// relax_stub.go
//
// Portable fall-back when the PAUSE stub is unavailable. Spin loops
// simply iterate; correctness does not depend on the hint.

package caslab

// cpuRelax is a no-op on unsupported targets.
func cpuRelax() {}
