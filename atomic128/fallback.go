// fallback.go
//
// Striped-lock emulation for targets without a usable native 16-byte
// primitive: other architectures, amd64 parts without CX16, and noasm
// builds.  Each operation takes the stripe guarding its cell, does plain
// two-word accesses inside, and releases.  Seq-cst is a conservative
// superset of the required order.
//
// The table is global and fixed so cells in caller-owned memory need no
// per-cell state.  Stripes are padded to a cache line apiece, and the
// odd stripe count keeps power-of-two cell strides from piling onto one
// stripe.

package atomic128

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

const lockStripes = 57 // odd, coprime to every power-of-two stride

var lockTab [lockStripes]struct {
	v uint32
	_ [60]byte // pad each stripe to its own cache line
}

// stripeFor picks the spin word guarding addr.  Cells 16 bytes apart
// land on distinct stripes until the table wraps.
//
//go:nosplit
func stripeFor(addr *Pair) *uint32 {
	h := uintptr(unsafe.Pointer(addr)) >> 4
	return &lockTab[h%lockStripes].v
}

func lockStripe(v *uint32) {
	for !atomic.CompareAndSwapUint32(v, 0, 1) {
		runtime.Gosched()
	}
}

//go:nosplit
func unlockStripe(v *uint32) {
	atomic.StoreUint32(v, 0)
}

func lockedLoad(addr *Pair) Pair {
	s := stripeFor(addr)
	lockStripe(s)
	v := *addr
	unlockStripe(s)
	return v
}

func lockedStore(addr *Pair, v Pair) {
	s := stripeFor(addr)
	lockStripe(s)
	*addr = v
	unlockStripe(s)
}

func lockedSwap(addr *Pair, v Pair) Pair {
	s := stripeFor(addr)
	lockStripe(s)
	old := *addr
	*addr = v
	unlockStripe(s)
	return old
}

func lockedCompareExchange(addr *Pair, old, new Pair) (Pair, bool) {
	s := stripeFor(addr)
	lockStripe(s)
	got := *addr
	if got == old {
		*addr = new
		unlockStripe(s)
		return got, true
	}
	unlockStripe(s)
	return got, false
}
