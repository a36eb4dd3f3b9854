package atomic128

import (
	"sync"
	"testing"
	"unsafe"
)

// withEmulation reruns fn with the dispatch variables cleared, forcing the
// striped-lock path even on hardware with a native primitive.  Callers run
// sequentially; nothing else may touch the cells while the natives are
// detached.
func withEmulation(fn func()) {
	cas, ld, st, sw := casPairFn, loadPairFn, storePairFn, swapPairFn
	casPairFn, loadPairFn, storePairFn, swapPairFn = nil, nil, nil, nil
	defer func() {
		casPairFn, loadPairFn, storePairFn, swapPairFn = cas, ld, st, sw
	}()
	fn()
}

// eachBackend runs the sub-test once on the platform back end and once on
// the emulation, so every semantic assertion holds on both paths.
func eachBackend(t *testing.T, name string, fn func(t *testing.T)) {
	t.Run(name, fn)
	t.Run(name+"_emulated", func(t *testing.T) {
		withEmulation(func() { fn(t) })
	})
}

// TestWindowAlignment allocates cells in several placements and confirms
// the two-word window always starts on a 16-byte boundary inside the
// backing array.
func TestWindowAlignment(t *testing.T) {
	cells := make([]Uint128, 64)
	for i := range cells {
		p := cells[i].addr()
		if uintptr(unsafe.Pointer(p))&15 != 0 {
			t.Fatalf("cell %d window at %p is not 16-byte aligned", i, p)
		}
		base := uintptr(unsafe.Pointer(&cells[i].d[0]))
		w := uintptr(unsafe.Pointer(p))
		if w != base && w != base+8 {
			t.Fatalf("cell %d window escaped its backing array", i)
		}
	}
	one := new(Uint128)
	if uintptr(unsafe.Pointer(one.addr()))&15 != 0 {
		t.Fatal("heap cell window is not 16-byte aligned")
	}
}

func TestZeroValue(t *testing.T) {
	eachBackend(t, "load", func(t *testing.T) {
		var u Uint128
		if got := u.Load(); got != (Pair{}) {
			t.Fatalf("zero cell reads %+v, want {0 0}", got)
		}
	})
}

func TestStoreLoadRoundTrip(t *testing.T) {
	eachBackend(t, "roundtrip", func(t *testing.T) {
		u := new(Uint128)
		want := Pair{Lo: 0xdeadbeefcafef00d, Hi: 0x0123456789abcdef}
		u.Store(want)
		if got := u.Load(); got != want {
			t.Fatalf("Load() = %+v, want %+v", got, want)
		}
	})
}

func TestSwapReturnsPrevious(t *testing.T) {
	eachBackend(t, "swap", func(t *testing.T) {
		u := new(Uint128)
		first := Pair{Lo: 1, Hi: 2}
		second := Pair{Lo: 3, Hi: 4}
		if got := u.Swap(first); got != (Pair{}) {
			t.Fatalf("first Swap returned %+v, want zero", got)
		}
		if got := u.Swap(second); got != first {
			t.Fatalf("second Swap returned %+v, want %+v", got, first)
		}
		if got := u.Load(); got != second {
			t.Fatalf("cell holds %+v after swaps, want %+v", got, second)
		}
	})
}

func TestCompareAndSwap(t *testing.T) {
	eachBackend(t, "cas", func(t *testing.T) {
		u := new(Uint128)
		a := Pair{Lo: 10, Hi: 20}
		b := Pair{Lo: 30, Hi: 40}

		if !u.CompareAndSwap(Pair{}, a) {
			t.Fatal("CAS from zero must succeed on a fresh cell")
		}
		if u.CompareAndSwap(Pair{}, b) {
			t.Fatal("CAS with a stale comparand must fail")
		}
		if got := u.Load(); got != a {
			t.Fatalf("failed CAS modified the cell: %+v", got)
		}
		if !u.CompareAndSwap(a, b) {
			t.Fatal("CAS with the current value must succeed")
		}
		if got := u.Load(); got != b {
			t.Fatalf("cell holds %+v, want %+v", got, b)
		}
	})
}

// TestCompareExchangeWinThenStale drives the canonical two-step flow: a
// fresh cell is claimed, then a second attempt with the stale comparand
// fails and brings back the value the winner installed.
func TestCompareExchangeWinThenStale(t *testing.T) {
	eachBackend(t, "exchange", func(t *testing.T) {
		u := new(Uint128)

		expected := Pair{Lo: 0, Hi: 0}
		if !u.CompareExchange(&expected, Pair{Lo: 42, Hi: 7}, AcqRel, Relaxed) {
			t.Fatal("exchange against a fresh cell must succeed")
		}
		if expected != (Pair{}) {
			t.Fatalf("success overwrote the expected buffer: %+v", expected)
		}
		if got := u.Load(); got != (Pair{Lo: 42, Hi: 7}) {
			t.Fatalf("cell holds %+v, want {42 7}", got)
		}

		stale := Pair{Lo: 0, Hi: 0}
		if u.CompareExchange(&stale, Pair{Lo: 99, Hi: 1}, AcqRel, Relaxed) {
			t.Fatal("exchange with a stale comparand must fail")
		}
		if got := u.Load(); got != (Pair{Lo: 42, Hi: 7}) {
			t.Fatalf("failed exchange modified the cell: %+v", got)
		}
		if stale != (Pair{Lo: 42, Hi: 7}) {
			t.Fatalf("failure must write the observed pair: got %+v", stale)
		}
	})
}

// TestCompareExchangeFailureRepeatable confirms a failure leaves no hidden
// state: rerunning with the refreshed comparand against the idle cell
// succeeds.
func TestCompareExchangeFailureRepeatable(t *testing.T) {
	eachBackend(t, "repeat", func(t *testing.T) {
		u := new(Uint128)
		u.Store(Pair{Lo: 5, Hi: 6})

		expected := Pair{} // deliberately stale
		desired := Pair{Lo: 7, Hi: 8}
		if u.CompareExchange(&expected, desired, SeqCst, SeqCst) {
			t.Fatal("stale exchange unexpectedly succeeded")
		}
		if expected != (Pair{Lo: 5, Hi: 6}) {
			t.Fatalf("observed pair %+v, want {5 6}", expected)
		}
		if !u.CompareExchange(&expected, desired, SeqCst, SeqCst) {
			t.Fatal("refreshed exchange must succeed on an idle cell")
		}
		if got := u.Load(); got != desired {
			t.Fatalf("cell holds %+v, want %+v", got, desired)
		}
	})
}

// TestCompareExchangeAliased passes the expected buffer's value as the
// desired value.  The exchange must capture desired before writing the
// buffer, so the store lands even though the two alias.
func TestCompareExchangeAliased(t *testing.T) {
	eachBackend(t, "alias", func(t *testing.T) {
		u := new(Uint128)
		u.Store(Pair{Lo: 11, Hi: 12})

		e := u.Load()
		if !u.CompareExchange(&e, e, SeqCst, SeqCst) {
			t.Fatal("self-exchange must succeed")
		}
		if got := u.Load(); got != (Pair{Lo: 11, Hi: 12}) {
			t.Fatalf("self-exchange corrupted the cell: %+v", got)
		}
	})
}

// TestCompareExchangeOrderingSweep pushes every ordering combination the
// byte mapping can produce through a live exchange.  Each iteration
// succeeds with fresh state, so the sweep proves no code is rejected on
// either the success or the failure leg.
func TestCompareExchangeOrderingSweep(t *testing.T) {
	eachBackend(t, "sweep", func(t *testing.T) {
		u := new(Uint128)
		for c := 0; c < 256; c++ {
			succ := OrderingFromCode(uint8(c))
			fail := OrderingFromCode(uint8(255 - c))

			expected := u.Load()
			desired := Pair{Lo: uint64(c) + 1, Hi: uint64(c) * 3}
			if !u.CompareExchange(&expected, desired, succ, fail) {
				t.Fatalf("code %d: exchange with fresh comparand failed", c)
			}

			stale := Pair{Lo: ^uint64(0), Hi: ^uint64(0)}
			if u.CompareExchange(&stale, Pair{}, succ, fail) {
				t.Fatalf("code %d: exchange with poisoned comparand succeeded", c)
			}
			if stale != desired {
				t.Fatalf("code %d: failure observed %+v, want %+v", c, stale, desired)
			}
		}
	})
}

// TestRawPairFunctions exercises the caller-owned-memory path on a cell
// carved out of a plain word array, the way foreign callers hold cells.
func TestRawPairFunctions(t *testing.T) {
	eachBackend(t, "raw", func(t *testing.T) {
		// Three words guarantee a 16-byte boundary at word 0 or word 1.
		backing := new([3]uint64)
		addr := (*Pair)(unsafe.Pointer(&backing[0]))
		if uintptr(unsafe.Pointer(addr))&15 != 0 {
			addr = (*Pair)(unsafe.Pointer(&backing[1]))
		}

		if got := LoadPair(addr); got != (Pair{}) {
			t.Fatalf("fresh cell reads %+v", got)
		}
		StorePair(addr, Pair{Lo: 1, Hi: 2})
		if got := SwapPair(addr, Pair{Lo: 3, Hi: 4}); got != (Pair{Lo: 1, Hi: 2}) {
			t.Fatalf("SwapPair returned %+v, want {1 2}", got)
		}

		expected := Pair{Lo: 3, Hi: 4}
		if !CompareExchangePair(addr, &expected, Pair{Lo: 5, Hi: 6}, Release, Acquire) {
			t.Fatal("raw exchange with current value failed")
		}
		if got := LoadPair(addr); got != (Pair{Lo: 5, Hi: 6}) {
			t.Fatalf("cell holds %+v, want {5 6}", got)
		}
	})
}

// TestEmulationMatchesNative mirrors one operation sequence through both
// back ends and compares every result.  On hosts without a native
// primitive the two runs both use the emulation and the test degenerates
// to a self-check.
func TestEmulationMatchesNative(t *testing.T) {
	type result struct {
		loads []Pair
		swaps []Pair
		oks   []bool
		obs   []Pair
	}

	script := func(u *Uint128) result {
		var r result
		u.Store(Pair{Lo: 1, Hi: 1})
		r.loads = append(r.loads, u.Load())
		r.swaps = append(r.swaps, u.Swap(Pair{Lo: 2, Hi: 3}))

		e := Pair{Lo: 2, Hi: 3}
		ok := u.CompareExchange(&e, Pair{Lo: 4, Hi: 5}, AcqRel, Acquire)
		r.oks, r.obs = append(r.oks, ok), append(r.obs, e)

		e = Pair{Lo: 9, Hi: 9} // stale on purpose
		ok = u.CompareExchange(&e, Pair{Lo: 6, Hi: 7}, SeqCst, Relaxed)
		r.oks, r.obs = append(r.oks, ok), append(r.obs, e)

		r.loads = append(r.loads, u.Load())
		return r
	}

	native := script(new(Uint128))
	var emulated result
	withEmulation(func() { emulated = script(new(Uint128)) })

	for i := range native.loads {
		if native.loads[i] != emulated.loads[i] {
			t.Errorf("load %d: native %+v, emulated %+v", i, native.loads[i], emulated.loads[i])
		}
	}
	for i := range native.swaps {
		if native.swaps[i] != emulated.swaps[i] {
			t.Errorf("swap %d: native %+v, emulated %+v", i, native.swaps[i], emulated.swaps[i])
		}
	}
	for i := range native.oks {
		if native.oks[i] != emulated.oks[i] || native.obs[i] != emulated.obs[i] {
			t.Errorf("exchange %d: native (%v %+v), emulated (%v %+v)",
				i, native.oks[i], native.obs[i], emulated.oks[i], emulated.obs[i])
		}
	}
}

// TestConcurrentSingleWinner races a herd at one cell from a shared
// snapshot.  Strong semantics demand exactly one success per round, and
// every loser must come back with a value some winner actually installed.
func TestConcurrentSingleWinner(t *testing.T) {
	const (
		goroutines = 8
		rounds     = 200
	)
	u := new(Uint128)

	for round := 0; round < rounds; round++ {
		base := Pair{Lo: uint64(round) << 8, Hi: uint64(round)}
		u.Store(base)

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			wins   int
			losers []Pair
		)
		start := make(chan struct{})
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				<-start
				expected := base
				desired := Pair{Lo: base.Lo | uint64(id+1), Hi: ^uint64(id)}
				ok := u.CompareExchange(&expected, desired, AcqRel, Acquire)
				mu.Lock()
				if ok {
					wins++
				} else {
					losers = append(losers, expected)
				}
				mu.Unlock()
			}(g)
		}
		close(start)
		wg.Wait()

		if wins != 1 {
			t.Fatalf("round %d: %d winners, want exactly 1", round, wins)
		}
		final := u.Load()
		for _, obs := range losers {
			if obs != final {
				t.Fatalf("round %d: loser observed %+v, final value %+v", round, obs, final)
			}
		}
	}
}

// TestConcurrentCounterHammer drives a CAS-retry counter from several
// goroutines.  The Hi word always carries the complement of Lo, so a
// torn access (half an increment) would surface as a checksum break
// long before the final count check.
func TestConcurrentCounterHammer(t *testing.T) {
	const (
		goroutines = 8
		increments = 2000
	)
	u := new(Uint128)
	u.Store(Pair{Lo: 0, Hi: ^uint64(0)})

	var wg sync.WaitGroup
	var torn sync.Once
	var tornPair Pair
	var sawTorn bool
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				expected := u.Load()
				for {
					if expected.Hi != ^expected.Lo {
						torn.Do(func() { tornPair, sawTorn = expected, true })
						return
					}
					next := Pair{Lo: expected.Lo + 1, Hi: ^(expected.Lo + 1)}
					if u.CompareExchange(&expected, next, AcqRel, Acquire) {
						break
					}
				}
			}
		}()
	}
	wg.Wait()

	if sawTorn {
		t.Fatalf("observed torn pair %+v", tornPair)
	}
	final := u.Load()
	if final.Lo != goroutines*increments {
		t.Fatalf("count = %d, want %d", final.Lo, goroutines*increments)
	}
	if final.Hi != ^final.Lo {
		t.Fatalf("final checksum broken: %+v", final)
	}
}

// TestConcurrentStoreLoadNoTearing splits goroutines into writers that
// publish self-checking pairs and readers that verify every observation.
func TestConcurrentStoreLoadNoTearing(t *testing.T) {
	const (
		writers = 4
		readers = 4
		iters   = 5000
	)
	u := new(Uint128)
	u.Store(Pair{Lo: 0, Hi: ^uint64(0)})

	var writerWG sync.WaitGroup
	for w := 0; w < writers; w++ {
		writerWG.Add(1)
		go func(id int) {
			defer writerWG.Done()
			for i := 0; i < iters; i++ {
				v := uint64(id)<<32 | uint64(i)
				u.Store(Pair{Lo: v, Hi: ^v})
			}
		}(w)
	}

	stop := make(chan struct{})
	errc := make(chan Pair, 1)
	var readerWG sync.WaitGroup
	for r := 0; r < readers; r++ {
		readerWG.Add(1)
		go func() {
			defer readerWG.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := u.Load()
				if got.Hi != ^got.Lo {
					select {
					case errc <- got:
					default:
					}
					return
				}
			}
		}()
	}

	writerWG.Wait()
	close(stop)
	readerWG.Wait()

	select {
	case bad := <-errc:
		t.Fatalf("reader observed torn pair %+v", bad)
	default:
	}
}
