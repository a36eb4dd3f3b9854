// control.go — Global run-state flags for pinned lab workers
// ============================================================================
// RUN CONTROL ORCHESTRATION
// ============================================================================
//
// Control provides the two words every pinned worker polls: an arm flag
// that releases the start line, and a stop flag that requests shutdown.
// Workers receive raw pointers and poll with plain atomic loads, so a
// whole run carries zero channel or mutex traffic for coordination.
//
// Threading model:
//   • The run driver arms the flags once the arena and workers stand.
//   • A signal handler (or the run deadline) raises stop.
//   • Workers poll both pointers between operation batches and exit on
//     stop; the driver joins them through their done channels.
//
// One run owns these words at a time. Reset rearms them between runs in
// the same process, which is how the tests reuse the package.

package control

import "sync/atomic"

// ============================================================================
// GLOBAL STATE
// ============================================================================

var (
	hot  uint32 // 1 = workers released from the start line
	stop uint32 // 1 = shutdown requested
)

// ============================================================================
// RUN LIFECYCLE
// ============================================================================

// Arm releases the workers. Until it is called, every worker holds in its
// start-line spin so the hammering begins on all cores together.
//
//go:nosplit
//go:inline
func Arm() {
	atomic.StoreUint32(&hot, 1)
}

// Shutdown requests termination. Workers observe the flag between batches
// and drain out; the call itself never blocks.
//
//go:nosplit
//go:inline
func Shutdown() {
	atomic.StoreUint32(&stop, 1)
}

// Hot reports whether the start line has been released.
//
//go:nosplit
//go:inline
func Hot() bool {
	return atomic.LoadUint32(&hot) != 0
}

// Stopping reports whether Shutdown has been requested.
//
//go:nosplit
//go:inline
func Stopping() bool {
	return atomic.LoadUint32(&stop) != 0
}

// Reset rearms both words for the next run. Callers must have joined all
// workers first; nothing may be polling the flags while they clear.
//
//go:nosplit
//go:inline
func Reset() {
	atomic.StoreUint32(&hot, 0)
	atomic.StoreUint32(&stop, 0)
}

// ============================================================================
// WORKER INTEGRATION
// ============================================================================

// Flags returns direct pointers to the coordination words for
// zero-overhead polling inside worker spin loops.
//
// Return order is (stop, hot), matching the worker launch signature.
// The pointers stay valid for the life of the process.
//
//go:nosplit
//go:inline
func Flags() (*uint32, *uint32) {
	return &stop, &hot
}
