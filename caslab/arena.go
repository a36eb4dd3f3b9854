// arena.go
//
// Off-heap cell storage for lab runs.  The arena is one anonymous
// private mapping carved into 16-byte cells: page granularity means
// every cell lands on the boundary the pair primitives demand, and the
// collector never traces or moves the memory while workers and foreign
// callers poke at it.

package caslab

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/pemensik/tagptr/atomic128"
	"github.com/pemensik/tagptr/constants"
)

var (
	// ErrArenaSize rejects arenas without at least one cell.
	ErrArenaSize = errors.New("caslab: arena needs a positive cell count")

	// ErrArenaAlign reports a mapping that violates cell alignment.
	ErrArenaAlign = errors.New("caslab: mapping is not 16-byte aligned")
)

// Arena owns an anonymous mapping divided into 16-byte cells.
type Arena struct {
	mem   []byte
	cells int
}

// NewArena maps storage for n cells, rounded up to whole pages.
func NewArena(n int) (*Arena, error) {
	if n <= 0 {
		return nil, ErrArenaSize
	}
	size := n * constants.CellSize
	page := os.Getpagesize()
	size = (size + page - 1) &^ (page - 1)

	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("caslab: mmap arena: %w", err)
	}

	// mmap hands back page-aligned memory; anything else means the cell
	// layout below would silently lose atomicity.
	if uintptr(unsafe.Pointer(&mem[0]))&(constants.CellAlign-1) != 0 {
		_ = unix.Munmap(mem)
		return nil, ErrArenaAlign
	}
	return &Arena{mem: mem, cells: n}, nil
}

// Cells returns the cell count requested at creation.
func (a *Arena) Cells() int { return a.cells }

// Cell returns the i-th cell. Indexing past the arena panics.
func (a *Arena) Cell(i int) *atomic128.Pair {
	if i < 0 || i >= a.cells {
		panic("caslab: cell index out of range")
	}
	return (*atomic128.Pair)(unsafe.Pointer(&a.mem[i*constants.CellSize]))
}

// Zero clears every cell. Not safe while workers run.
func (a *Arena) Zero() {
	clear(a.mem)
}

// Close unmaps the arena. Cells obtained earlier must not be touched
// afterwards.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	mem := a.mem
	a.mem = nil
	a.cells = 0
	return unix.Munmap(mem)
}
