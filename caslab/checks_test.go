package caslab

import (
	"testing"

	"github.com/pemensik/tagptr/atomic128"
	"github.com/pemensik/tagptr/utils"
)

func TestValidPair(t *testing.T) {
	if !validPair(atomic128.Pair{}) {
		t.Fatal("zero pair must be valid")
	}
	for _, lo := range []uint64{1, 42, 1 << 40, ^uint64(0)} {
		if !validPair(sealPair(lo)) {
			t.Fatalf("sealPair(%d) rejected", lo)
		}
		if validPair(atomic128.Pair{Lo: lo, Hi: utils.Mix64(lo) + 1}) {
			t.Fatalf("broken checksum for lo=%d accepted", lo)
		}
	}
}

func TestScenarioProbe(t *testing.T) {
	a, err := NewArena(2)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	if err := scenarioProbe(a.Cell(0)); err != nil {
		t.Fatalf("scenarioProbe: %v", err)
	}
	if p := atomic128.LoadPair(a.Cell(0)); p != (atomic128.Pair{}) {
		t.Fatalf("probe left the cell dirty: (%d, %d)", p.Lo, p.Hi)
	}
}

func TestOrderingProbe(t *testing.T) {
	a, err := NewArena(2)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	if err := orderingProbe(a.Cell(0)); err != nil {
		t.Fatalf("orderingProbe: %v", err)
	}
}

func TestPreflight(t *testing.T) {
	a, err := NewArena(4)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	if err := preflight(a); err != nil {
		t.Fatalf("preflight: %v", err)
	}
}
