// atomicptr.go
//
// Atomic cells for tagged pointers.  Atomic is the single-word cell a
// CAS-based structure updates pointer and tag together through; Stamped
// widens to the double-word primitive so a full-width pointer can travel
// with a 64-bit stamp that never sacrifices pointer bits.
//
// Both cells store their words as integers, so the same liveness contract
// as Ptr applies: the collector does not trace them, and referents must
// be kept alive through other references or placed off the Go heap.

package tagptr

import (
	"sync/atomic"
	"unsafe"

	"github.com/pemensik/tagptr/atomic128"
)

// Atomic is an atomic Ptr cell.  The zero value holds the null Ptr.
// All methods are sequentially consistent.
type Atomic[T any] struct {
	w atomic.Uintptr
}

// Load returns the current packed pointer.
func (a *Atomic[T]) Load() Ptr[T] {
	return FromWord[T](a.w.Load())
}

// Store replaces the cell with p.
func (a *Atomic[T]) Store(p Ptr[T]) {
	a.w.Store(p.Word())
}

// Swap stores p and returns the previous packed pointer.
func (a *Atomic[T]) Swap(p Ptr[T]) Ptr[T] {
	return FromWord[T](a.w.Swap(p.Word()))
}

// CompareAndSwap installs new if the cell holds old.  Pointer and tag
// compare as one word, so a matching pointer with a stale tag fails.
func (a *Atomic[T]) CompareAndSwap(old, new Ptr[T]) bool {
	return a.w.CompareAndSwap(old.Word(), new.Word())
}

// Stamped is an atomic pair of a *T and a 64-bit stamp, updated as one
// 128-bit unit.  Where a Ptr tag offers a handful of bits, the stamp is
// a full word, wide enough for a version counter that never wraps in
// practice, which is the usual ABA defence.
//
// The zero value holds (nil, 0).  Must not be copied after first use.
type Stamped[T any] struct {
	c atomic128.Uint128
}

// Load returns the current pointer and stamp.
func (s *Stamped[T]) Load() (*T, uint64) {
	v := s.c.Load()
	return wordToPtr[T](v.Lo), v.Hi
}

// Store replaces pointer and stamp together.
func (s *Stamped[T]) Store(p *T, stamp uint64) {
	s.c.Store(pack(p, stamp))
}

// Swap installs p and stamp, returning the previous pair.
func (s *Stamped[T]) Swap(p *T, stamp uint64) (*T, uint64) {
	old := s.c.Swap(pack(p, stamp))
	return wordToPtr[T](old.Lo), old.Hi
}

// CompareAndSwap installs (newP, newStamp) if the cell holds exactly
// (oldP, oldStamp).  A recycled pointer with a moved-on stamp fails,
// which is the point.
func (s *Stamped[T]) CompareAndSwap(oldP *T, oldStamp uint64, newP *T, newStamp uint64) bool {
	return s.c.CompareAndSwap(pack(oldP, oldStamp), pack(newP, newStamp))
}

func pack[T any](p *T, stamp uint64) atomic128.Pair {
	return atomic128.Pair{Lo: uint64(uintptr(unsafe.Pointer(p))), Hi: stamp}
}

func wordToPtr[T any](w uint64) *T {
	return (*T)(unsafe.Pointer(uintptr(w)))
}
