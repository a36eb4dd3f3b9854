//go:build arm64 && !noasm

// native_arm64.go
//
// Declarations for the arm64 back end in atomic128_arm64.s.  Exclusive
// load/store pairs exist on every ARMv8 part, so installation is
// unconditional.

package atomic128

//go:noescape
func casPairAsm(addr *Pair, old, new Pair) (got Pair, ok bool)

//go:noescape
func loadPairAsm(addr *Pair) (v Pair)

//go:noescape
func storePairAsm(addr *Pair, v Pair)

//go:noescape
func swapPairAsm(addr *Pair, v Pair) (old Pair)

func init() {
	casPairFn = casPairAsm
	loadPairFn = loadPairAsm
	storePairFn = storePairAsm
	swapPairFn = swapPairAsm
}
