// checks.go
//
// Validity predicate and sequential probes.  Workers keep every pair
// they publish self-certifying: the high word is always Mix64 of the
// low word, so a torn read or half-applied store breaks the checksum
// no matter which operation exposed it.  The probes replay the
// documented exchange scenarios on a quiet cell, separating "the
// primitive is broken on this host" from "the storm found a race".

package caslab

import (
	"fmt"

	"github.com/pemensik/tagptr/atomic128"
	"github.com/pemensik/tagptr/utils"
)

// validPair reports whether p carries its own checksum. Mix64(0) == 0,
// so the zero pair of a fresh cell passes.
func validPair(p atomic128.Pair) bool {
	return p.Hi == utils.Mix64(p.Lo)
}

// sealPair builds a checksummed pair around lo.
func sealPair(lo uint64) atomic128.Pair {
	return atomic128.Pair{Lo: lo, Hi: utils.Mix64(lo)}
}

// scenarioProbe drives one win-then-stale exchange sequence on cell and
// checks every observable the call contract promises: a win installs
// the desired pair and leaves expected alone; a stale attempt fails,
// leaves the cell alone and hands back what the cell really held; and
// repeating the failed attempt changes nothing.  The cell must be
// quiescent and is left zeroed.
func scenarioProbe(cell *atomic128.Pair) error {
	atomic128.StorePair(cell, atomic128.Pair{})

	won := atomic128.Pair{Lo: 42, Hi: 7}
	exp := atomic128.Pair{}
	if !atomic128.CompareExchangePair(cell, &exp, won, atomic128.AcqRel, atomic128.Relaxed) {
		return fmt.Errorf("caslab: exchange against a matching cell failed")
	}
	if exp != (atomic128.Pair{}) {
		return fmt.Errorf("caslab: winning exchange rewrote expected to (%d, %d)", exp.Lo, exp.Hi)
	}
	if got := atomic128.LoadPair(cell); got != won {
		return fmt.Errorf("caslab: cell after winning exchange holds (%d, %d)", got.Lo, got.Hi)
	}

	for i := 0; i < 3; i++ {
		stale := atomic128.Pair{}
		if atomic128.CompareExchangePair(cell, &stale, atomic128.Pair{Lo: 99, Hi: 1}, atomic128.SeqCst, atomic128.Acquire) {
			return fmt.Errorf("caslab: exchange with stale expected succeeded")
		}
		if stale != won {
			return fmt.Errorf("caslab: failed exchange reported (%d, %d), want (%d, %d)", stale.Lo, stale.Hi, won.Lo, won.Hi)
		}
		if got := atomic128.LoadPair(cell); got != won {
			return fmt.Errorf("caslab: failed exchange disturbed the cell: (%d, %d)", got.Lo, got.Hi)
		}
	}

	atomic128.StorePair(cell, atomic128.Pair{})
	return nil
}

// orderingProbe sweeps every raw ordering code byte through a winning
// and a failing exchange. The code mapping is total, so whatever byte
// arrives the data contract must hold unchanged.
func orderingProbe(cell *atomic128.Pair) error {
	for code := 0; code < 256; code++ {
		ord := atomic128.OrderingFromCode(uint8(code))
		atomic128.StorePair(cell, atomic128.Pair{})

		des := sealPair(uint64(code)<<8 | 1)
		exp := atomic128.Pair{}
		if !atomic128.CompareExchangePair(cell, &exp, des, ord, ord) {
			return fmt.Errorf("caslab: code %d: winning exchange failed", code)
		}

		stale := atomic128.Pair{}
		if atomic128.CompareExchangePair(cell, &stale, sealPair(uint64(code)<<8|2), ord, ord) {
			return fmt.Errorf("caslab: code %d: stale exchange succeeded", code)
		}
		if stale != des {
			return fmt.Errorf("caslab: code %d: failed exchange reported (%d, %d)", code, stale.Lo, stale.Hi)
		}
	}

	atomic128.StorePair(cell, atomic128.Pair{})
	return nil
}

// preflight proves the primitive honors its contract on this host
// before any load is applied.
func preflight(a *Arena) error {
	cell := a.Cell(0)
	if err := scenarioProbe(cell); err != nil {
		return err
	}
	return orderingProbe(cell)
}
