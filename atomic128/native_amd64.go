//go:build amd64 && !noasm

// native_amd64.go
//
// Declarations for the x86-64 back end in atomic128_amd64.s.  All four
// ride LOCK CMPXCHG16B, which pre-2006 parts lack: the CX16 feature bit
// gates installation, and absent it the dispatch variables stay nil so
// the striped-lock emulation runs.

package atomic128

import "github.com/klauspost/cpuid/v2"

//go:noescape
func casPairAsm(addr *Pair, old, new Pair) (got Pair, ok bool)

//go:noescape
func loadPairAsm(addr *Pair) (v Pair)

//go:noescape
func storePairAsm(addr *Pair, v Pair)

//go:noescape
func swapPairAsm(addr *Pair, v Pair) (old Pair)

func init() {
	if !cpuid.CPU.Supports(cpuid.CX16) {
		return
	}
	casPairFn = casPairAsm
	loadPairFn = loadPairAsm
	storePairFn = storePairAsm
	swapPairFn = swapPairAsm
}
