// worker.go
//
// Pinned lab workers.
//
//   - Each worker owns a dedicated OS thread pinned to one core.
//   - Workers spin at the start line until the run is armed, so the
//     hammering begins on all cores in the same few cycles.
//   - The operation mix is drawn from a per-worker xorshift stream:
//     mostly contended exchanges on the counted cells, with swap churn,
//     audit loads and stamped-slot rotation mixed in.
//   - Every iteration polls the stop word; a worker exits only on stop
//     and closes its done channel exactly once.
//
// Counters live in per-worker cache-line padded tallies. The driver
// reads them after joining the done channels, so the hot loop never
// shares a written line with anyone.

package caslab

import (
	"runtime"
	"sync/atomic"

	"github.com/pemensik/tagptr/atomic128"
	"github.com/pemensik/tagptr/constants"
	"github.com/pemensik/tagptr/debug"
	"github.com/pemensik/tagptr/utils"
)

// tally is one worker's counters, padded so neighbours never share a
// cache line.
type tally struct {
	ops         uint64
	wins        uint64
	misses      uint64
	stampedWins uint64
	violations  uint64
	_           [constants.CacheLine - 40]byte
}

// startWorker launches worker id on core. The goroutine locks its OS
// thread, pins it, waits for the start line and hammers until *stop.
func (l *lab) startWorker(id, core int, stop, hot *uint32, done chan<- struct{}) {
	go func() {
		runtime.LockOSThread()
		setAffinity(core) // stub on non-Linux
		defer func() {
			runtime.UnlockOSThread()
			close(done)
		}()

		t := &l.tallies[id]
		rng := seedStream(l.seed, id)

		// start line: hold until armed, bail if the run tears down first
		for atomic.LoadUint32(hot) == 0 {
			if atomic.LoadUint32(stop) != 0 {
				return
			}
			cpuRelax()
		}

		for {
			if atomic.LoadUint32(stop) != 0 {
				return
			}

			rng ^= rng << 13
			rng ^= rng >> 7
			rng ^= rng << 17
			r := rng

			t.ops++
			switch r & 15 {
			case 0:
				l.churnSwap(t, r)
			case 1:
				l.auditLoad(t, r)
			case 2, 3:
				l.rotateStamped(t, r)
			default:
				l.raceExchange(t, id, r)
			}
		}
	}()
}

// seedStream derives a non-zero xorshift state for worker id.
func seedStream(seed uint64, id int) uint64 {
	s := utils.Mix64(seed ^ uint64(id+1))
	if s == 0 {
		s = uint64(id) + 0x9e3779b97f4a7c15
	}
	return s
}

// raceExchange contends for one counted cell. A win must raise the
// cell's generation by exactly one and brand it with this worker's id;
// settle closes the books on that.
func (l *lab) raceExchange(t *tally, id int, r uint64) {
	cell := l.arena.Cell(int((r >> 4) % uint64(l.counted)))

	cur := atomic128.LoadPair(cell)
	if !validPair(cur) {
		l.flagViolation(t, "load observed a torn pair")
		return
	}

	gen := cur.Lo >> 8
	next := sealPair((gen+1)<<8 | uint64(id+1))

	// Ordering codes come straight off the random stream. The mapping
	// is total, so any byte is a legal request.
	success := atomic128.OrderingFromCode(uint8(r >> 40))
	failure := atomic128.OrderingFromCode(uint8(r >> 48))

	expected := cur
	if atomic128.CompareExchangePair(cell, &expected, next, success, failure) {
		t.wins++
		return
	}
	t.misses++
	if !validPair(expected) {
		l.flagViolation(t, "failed exchange reported a torn pair")
	}
}

// churnSwap hammers the churn cell with unconditional swaps. Whatever
// pair comes back was published by some earlier swap or is the zero
// state, so it must carry a checksum like everything else.
func (l *lab) churnSwap(t *tally, r uint64) {
	if old := atomic128.SwapPair(l.churn, sealPair(r)); !validPair(old) {
		l.flagViolation(t, "swap returned a torn pair")
	}
}

// auditLoad reads an arbitrary cell and checks the checksum.
func (l *lab) auditLoad(t *tally, r uint64) {
	cell := l.arena.Cell(int((r >> 4) % uint64(l.arena.Cells())))
	if p := atomic128.LoadPair(cell); !validPair(p) {
		l.flagViolation(t, "audit load observed a torn pair")
	}
}

// rotateStamped advances one stamped slot along the target ring. Each
// win bumps the stamp by one and moves the pointer to the next target,
// so a slot's final state is a pure function of its win count.
func (l *lab) rotateStamped(t *tally, r uint64) {
	slot := &l.stamped[int((r>>4)%uint64(len(l.stamped)))]
	p, stamp := slot.Load()
	next := &l.targets[(stamp+1)%uint64(len(l.targets))]
	if slot.CompareAndSwap(p, stamp, next, stamp+1) {
		t.stampedWins++
	}
}

// flagViolation counts a contract breach. The first one per worker
// drops detail to stderr; the rest only count, so a systematic failure
// cannot flood the console from the hot loop.
func (l *lab) flagViolation(t *tally, what string) {
	if t.violations == 0 {
		debug.DropMessage("caslab", what)
	}
	t.violations++
}
