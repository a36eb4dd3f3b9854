// tagptr.go
//
// Tagged pointers: a *T and a small integer packed into one word, the tag
// riding in the pointer's alignment bits.  The arithmetic is raw: tags
// truncate silently to the bits the alignment affords, and the add/sub
// operations wrap across the whole word like untyped integer arithmetic.
// Callers building lock-free schemes on top get the representation, not
// guard rails.
//
// The word holds the pointer as an integer.  The garbage collector does
// not see it: referents must stay reachable through ordinary references,
// or live outside the Go heap altogether (an mmap arena, C memory).

package tagptr

import (
	"fmt"
	"math/bits"
	"unsafe"
)

// TagBits returns how many low bits of a *T are available for a tag:
// log2 of T's alignment.  Types aligned to one byte carry no tag at all.
func TagBits[T any]() uint {
	var z T
	return uint(bits.TrailingZeros64(uint64(unsafe.Alignof(z))))
}

// TagMask returns the word mask covering the tag bits of a *T.  The
// complement covers the pointer bits.
func TagMask[T any]() uintptr {
	var z T
	return unsafe.Alignof(z) - 1
}

// Ptr is one word holding a *T and a tag in the low alignment bits.
// The zero value is the null pointer with tag zero.  Ptr is a plain
// value: copy it, pass it, compare it with ==.
type Ptr[T any] struct {
	w uintptr
}

// New packs p with a zero tag.
func New[T any](p *T) Ptr[T] {
	return Ptr[T]{w: uintptr(unsafe.Pointer(p))}
}

// Compose packs p and tag into one word.  Tag bits beyond TagMask are
// dropped silently.
func Compose[T any](p *T, tag uintptr) Ptr[T] {
	return Ptr[T]{w: uintptr(unsafe.Pointer(p)) | tag&TagMask[T]()}
}

// FromWord reinterprets a packed word as a Ptr.  The inverse of Word.
func FromWord[T any](w uintptr) Ptr[T] {
	return Ptr[T]{w: w}
}

// Word returns the packed word.
func (p Ptr[T]) Word() uintptr { return p.w }

// Pointer returns the pointer half, tag cleared.
func (p Ptr[T]) Pointer() *T {
	return (*T)(unsafe.Pointer(p.w &^ TagMask[T]()))
}

// Tag returns the tag half.
func (p Ptr[T]) Tag() uintptr { return p.w & TagMask[T]() }

// Decompose splits the word into its pointer and tag halves.
func (p Ptr[T]) Decompose() (*T, uintptr) { return p.Pointer(), p.Tag() }

// WithTag returns p carrying tag instead of its current tag, truncated
// like Compose.
func (p Ptr[T]) WithTag(tag uintptr) Ptr[T] {
	return Ptr[T]{w: p.w&^TagMask[T]() | tag&TagMask[T]()}
}

// MapTag returns p with f applied to its tag.  The result truncates into
// the tag bits; the pointer half is untouched.
func (p Ptr[T]) MapTag(f func(uintptr) uintptr) Ptr[T] {
	return p.WithTag(f(p.Tag()))
}

// AddTag adds n to the whole word with wrapping arithmetic.  When the
// tag bits overflow, the carry walks into the pointer half; callers
// bounding a counter tag mask it themselves via MapTag.
func (p Ptr[T]) AddTag(n uintptr) Ptr[T] {
	return Ptr[T]{w: p.w + n}
}

// SubTag subtracts n from the whole word with wrapping arithmetic.
// Underflow borrows from the pointer half, mirroring AddTag.
func (p Ptr[T]) SubTag(n uintptr) Ptr[T] {
	return Ptr[T]{w: p.w - n}
}

// ClearTag returns p with a zero tag.
func (p Ptr[T]) ClearTag() Ptr[T] {
	return Ptr[T]{w: p.w &^ TagMask[T]()}
}

// SplitTag returns p with the tag cleared, alongside the tag it carried.
func (p Ptr[T]) SplitTag() (Ptr[T], uintptr) {
	return p.ClearTag(), p.Tag()
}

// IsNull reports whether the pointer half is null.  The tag does not
// count: a tagged null is still null.
func (p Ptr[T]) IsNull() bool {
	return p.w&^TagMask[T]() == 0
}

// Cast reinterprets the packed word as pointing to U.  The raw word is
// kept bit for bit; the tag boundary moves to U's alignment.
func Cast[U, T any](p Ptr[T]) Ptr[U] {
	return Ptr[U]{w: p.w}
}

// String renders the pointer and tag halves for diagnostics.
func (p Ptr[T]) String() string {
	return fmt.Sprintf("%#x@%d", p.w&^TagMask[T](), p.Tag())
}
