// control_test.go
//
// Covers the flag lifecycle (arm → stop → reset), pointer identity of the
// Flags view, and concurrent raise/poll traffic under the race detector.

package control

import (
	"sync"
	"sync/atomic"
	"testing"
)

// resetState restores the package globals between tests.
func resetState() {
	Reset()
}

func TestLifecycle(t *testing.T) {
	resetState()

	stopFlag, hotFlag := Flags()
	if atomic.LoadUint32(hotFlag) != 0 || atomic.LoadUint32(stopFlag) != 0 {
		t.Fatal("fresh state must hold both flags low")
	}
	if Hot() {
		t.Fatal("Hot() true before Arm")
	}
	if Stopping() {
		t.Fatal("Stopping() true before Shutdown")
	}

	Arm()
	if !Hot() {
		t.Fatal("Hot() false after Arm")
	}
	if atomic.LoadUint32(hotFlag) != 1 {
		t.Fatal("Arm() did not raise the hot flag")
	}
	if atomic.LoadUint32(stopFlag) != 0 {
		t.Fatal("Arm() must not touch the stop flag")
	}

	Shutdown()
	if !Stopping() {
		t.Fatal("Stopping() false after Shutdown")
	}
	if atomic.LoadUint32(hotFlag) != 1 {
		t.Fatal("Shutdown() must not clear the hot flag")
	}

	Reset()
	if atomic.LoadUint32(hotFlag) != 0 || atomic.LoadUint32(stopFlag) != 0 {
		t.Fatal("Reset() must clear both flags")
	}
}

func TestFlagsPointerIdentity(t *testing.T) {
	resetState()

	s1, h1 := Flags()
	s2, h2 := Flags()
	if s1 != s2 || h1 != h2 {
		t.Fatal("Flags() must hand out the same words every call")
	}

	// A write through the returned pointer is the package's own state.
	atomic.StoreUint32(s1, 1)
	if !Stopping() {
		t.Fatal("store through Flags() pointer not visible to Stopping()")
	}
	resetState()
}

// TestConcurrentPolling spins reader goroutines on the flag words while the
// main goroutine walks the lifecycle. The assertion is monotonicity: once a
// reader has seen stop high, it never sees it low again before Reset.
func TestConcurrentPolling(t *testing.T) {
	resetState()

	const readers = 8
	stopFlag, _ := Flags()

	var wg sync.WaitGroup
	var violations atomic.Uint32
	release := make(chan struct{})

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-release
			seenStop := false
			for n := 0; n < 100000; n++ {
				v := atomic.LoadUint32(stopFlag) != 0
				if seenStop && !v {
					violations.Add(1)
					return
				}
				seenStop = seenStop || v
			}
		}()
	}

	close(release)
	Arm()
	Shutdown()
	wg.Wait()

	if violations.Load() != 0 {
		t.Fatalf("%d readers saw the stop flag drop without Reset", violations.Load())
	}
	resetState()
}

func BenchmarkStopping(b *testing.B) {
	resetState()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if Stopping() {
			b.Fatal("unexpected stop")
		}
	}
}

func BenchmarkFlagPoll(b *testing.B) {
	resetState()
	stopFlag, _ := Flags()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if atomic.LoadUint32(stopFlag) != 0 {
			b.Fatal("unexpected stop")
		}
	}
}
