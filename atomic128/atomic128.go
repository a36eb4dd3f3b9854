// atomic128.go
//
// Atomic operations on 128-bit cells: a pair of 64-bit words loaded,
// stored, swapped and compare-exchanged as one unit.  amd64 rides LOCK
// CMPXCHG16B, arm64 rides LDAXP/STLXP; everything else (including amd64
// parts without the CX16 feature) falls back to a striped-lock emulation
// with identical observable semantics.
//
// Alignment is the one hard contract: the hardware paths require the two
// words to start on a 16-byte boundary.  Uint128 buys that alignment
// itself; the raw *Pair functions inherit it from the caller.

package atomic128

import "unsafe"

// Pair is a 128-bit value as two 64-bit words.  Lo occupies the first
// eight bytes of a cell, Hi the second eight.
type Pair struct {
	Lo uint64
	Hi uint64
}

// Uint128 is an atomically accessible 128-bit cell.
//
// The zero value holds Pair{0, 0} and is ready to use.  A Uint128 must
// not be copied after first use: the copy and the original would be
// distinct cells sharing no atomicity.
//
// Methods without an Ordering parameter are sequentially consistent.
type Uint128 struct {
	d [3]uint64
}

// addr returns the 16-byte aligned two-word window inside the backing
// array.  Go guarantees only 8-byte alignment for d, so the cell carries
// one spare word and picks whichever of d[0], d[1] starts a 16-byte
// boundary.  A shared cell lives on the heap, where its address, and so
// the chosen window, cannot change.
//
//go:nosplit
func (u *Uint128) addr() *Pair {
	if uintptr(unsafe.Pointer(&u.d[0]))&15 == 0 {
		return (*Pair)(unsafe.Pointer(&u.d[0]))
	}
	return (*Pair)(unsafe.Pointer(&u.d[1]))
}

// The active back end installs these at init.  All four stay nil when no
// native 16-byte primitive is usable, and the striped-lock emulation in
// fallback.go runs instead.  Back ends may promote the requested
// ordering; seq-cst is a conservative superset of the required order.
var (
	casPairFn   func(addr *Pair, old, new Pair) (got Pair, ok bool)
	loadPairFn  func(addr *Pair) (v Pair)
	storePairFn func(addr *Pair, v Pair)
	swapPairFn  func(addr *Pair, v Pair) (old Pair)
)

// Native reports whether the 16-byte operations execute as single
// hardware instruction sequences.  False means the striped-lock
// emulation is active: semantics are identical, progress is not
// lock-free.
func Native() bool { return casPairFn != nil }

// casPair routes one exchange attempt to the active back end.
//
//go:nosplit
func casPair(addr *Pair, old, new Pair) (Pair, bool) {
	if casPairFn != nil {
		return casPairFn(addr, old, new)
	}
	return lockedCompareExchange(addr, old, new)
}

// LoadPair atomically reads the pair at addr.
//
// addr must reference 16-byte aligned storage.  The raw functions do not
// check; a misaligned cell faults or loses atomicity on the hardware
// paths.
func LoadPair(addr *Pair) Pair {
	if loadPairFn != nil {
		return loadPairFn(addr)
	}
	return lockedLoad(addr)
}

// StorePair atomically writes v to the pair at addr.  Alignment contract
// as in LoadPair.
func StorePair(addr *Pair, v Pair) {
	if storePairFn != nil {
		storePairFn(addr, v)
		return
	}
	lockedStore(addr, v)
}

// SwapPair atomically replaces the pair at addr with v and returns the
// previous value.  Alignment contract as in LoadPair.
func SwapPair(addr *Pair, v Pair) Pair {
	if swapPairFn != nil {
		return swapPairFn(addr, v)
	}
	return lockedSwap(addr, v)
}

// CompareExchangePair performs a strong compare-and-exchange on the pair
// at addr.
//
// If the cell holds *expected it is set to desired, *expected is left
// untouched and the result is true.  Otherwise the cell is unchanged,
// *expected is overwritten with the pair the attempt observed, and the
// result is false.  The observed pair is read atomically: it is a value
// the cell actually held, never a mix of halves from different writes.
// There are no spurious failures, so repeating a failed exchange with the
// refreshed *expected against an otherwise idle cell succeeds.
//
// success and failure bound the memory orders of the two outcomes; the
// failure order covers the load that produced the observed pair.  Either
// may be promoted.  desired is captured before *expected is written, so
// the two may alias.
//
// Alignment contract as in LoadPair.
func CompareExchangePair(addr, expected *Pair, desired Pair, success, failure Ordering) bool {
	got, ok := casPair(addr, *expected, desired)
	if !ok {
		*expected = got
	}
	return ok
}

// Load returns the current value of the cell.
func (u *Uint128) Load() Pair { return LoadPair(u.addr()) }

// Store sets the cell to v.
func (u *Uint128) Store(v Pair) { StorePair(u.addr(), v) }

// Swap sets the cell to v and returns the previous value.
func (u *Uint128) Swap(v Pair) Pair { return SwapPair(u.addr(), v) }

// CompareAndSwap executes the compare-and-swap operation for the cell:
// if it holds old it is set to new.  Callers that need the observed
// value on failure use CompareExchange instead.
func (u *Uint128) CompareAndSwap(old, new Pair) bool {
	_, ok := casPair(u.addr(), old, new)
	return ok
}

// CompareExchange performs the strong exchange of CompareExchangePair on
// the cell.
func (u *Uint128) CompareExchange(expected *Pair, desired Pair, success, failure Ordering) bool {
	return CompareExchangePair(u.addr(), expected, desired, success, failure)
}
