// ════════════════════════════════════════════════════════════════════════════════════════════════
// Tagged Pointer Runtime - C Export Surface
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: 128-bit Atomic Tagged Pointer Runtime
// Component: Shared Library Entry Point (-buildmode=c-shared)
//
// Description:
//   Exports the double-word compare-exchange primitive as a single C symbol.
//   Foreign callers hand in a 16-byte aligned cell, an expected pair that is
//   rewritten on failure, a desired pair, and two raw ordering code bytes.
//   Everything past the pointer casts runs in pkg atomic128; no logic lives
//   at this boundary.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

/*
#include <stdbool.h>
#include <stdint.h>

// The 16-byte cell the exported call operates on. The caller owns
// placement: the struct must start on a 16-byte boundary or the
// primitive loses atomicity.
typedef struct {
	uint64_t lo;
	uint64_t hi;
} tagptr_pair128_t;
*/
import "C"

import (
	"unsafe"

	"github.com/pemensik/tagptr/atomic128"
)

// tagptr_compare_exchange_128 performs one strong 128-bit compare-exchange
// on *dst. On success *dst becomes desired[0..1] and the call returns true;
// on failure *dst is untouched, expected[0..1] is overwritten with the pair
// the cell held, and the call returns false. The two code bytes select
// memory orderings: 0 relaxed, 1 acquire, 2 release, 3 acq-rel, anything
// else seq-cst.
//
//export tagptr_compare_exchange_128
func tagptr_compare_exchange_128(dst *C.tagptr_pair128_t, expected *C.uint64_t, desired *C.uint64_t, success C.uint8_t, failure C.uint8_t) C.bool {
	return C.bool(atomic128.CompareExchangePair(
		(*atomic128.Pair)(unsafe.Pointer(dst)),
		(*atomic128.Pair)(unsafe.Pointer(expected)),
		*(*atomic128.Pair)(unsafe.Pointer(desired)),
		atomic128.OrderingFromCode(uint8(success)),
		atomic128.OrderingFromCode(uint8(failure)),
	))
}

// main is required by buildmode=c-shared and never runs.
func main() {}
