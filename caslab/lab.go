// lab.go
//
// Run orchestration for the CAS lab.
//
// A run maps an arena, proves the primitive's contract on a quiet cell,
// then releases pinned workers against it for a fixed window.  All but
// one cell form the counted lane, where only exchanges mutate state and
// every win raises a cell generation by exactly one; the last cell
// takes unconditional swap churn.  On the side, workers rotate stamped
// pointer slots through a fixed target ring.  When the window closes
// the driver joins the workers and settles the books: generations
// against wins, stamps against stamped wins, checksums everywhere.
//
// A clean settle means the double-word primitive never tore, never
// spuriously failed and never let two winners through one exchange.

package caslab

import (
	"runtime"
	rtdebug "runtime/debug"
	"time"

	"github.com/pemensik/tagptr"
	"github.com/pemensik/tagptr/atomic128"
	"github.com/pemensik/tagptr/constants"
	"github.com/pemensik/tagptr/control"
	"github.com/pemensik/tagptr/debug"
)

// stampedTargets is the size of the pointer ring the stamped slots
// rotate through.
const stampedTargets = 16

// Config selects the shape of one run. The zero value means defaults.
type Config struct {
	Cells        int           `json:"cells"`
	Workers      int           `json:"workers"`
	Duration     time.Duration `json:"duration_ns"`
	Seed         uint64        `json:"seed"`
	StampedSlots int           `json:"stamped_slots"`
}

// withDefaults fills unset fields. The counted lane needs at least one
// cell beside the churn cell, and worker ids must fit the brand byte.
func (c Config) withDefaults() Config {
	if c.Cells <= 0 {
		c.Cells = constants.DefaultCells
	}
	if c.Cells < 2 {
		c.Cells = 2
	}
	if c.Workers <= 0 {
		c.Workers = constants.DefaultWorkers
	}
	if c.Workers > 255 {
		c.Workers = 255
	}
	if c.Duration <= 0 {
		c.Duration = constants.DefaultDurationMs * time.Millisecond
	}
	if c.StampedSlots <= 0 {
		c.StampedSlots = constants.DefaultStampedSlots
	}
	return c
}

// Result aggregates one finished run.
type Result struct {
	Cells       int           `json:"cells"`
	Workers     int           `json:"workers"`
	Seed        uint64        `json:"seed"`
	Arch        string        `json:"arch"`
	Native      bool          `json:"native"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Ops         uint64        `json:"ops"`
	Wins        uint64        `json:"wins"`
	Misses      uint64        `json:"misses"`
	StampedWins uint64        `json:"stamped_wins"`
	Violations  uint64        `json:"violations"`
	Generations uint64        `json:"generations"`
}

// Clean reports whether the run settled without a single contract
// breach.
func (r *Result) Clean() bool { return r.Violations == 0 }

// Verdict is the one-word summary stores and reports carry.
func (r *Result) Verdict() string {
	if r.Clean() {
		return "clean"
	}
	return "violated"
}

// OpsPerSecond normalizes throughput over the measured window.
func (r *Result) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// lab is the shared state of one run.
type lab struct {
	arena   *Arena
	counted int
	churn   *atomic128.Pair
	seed    uint64
	stamped []tagptr.Stamped[uint64]
	targets []uint64
	tallies []tally
}

// Run drives one full run and returns its accounting. The error path
// covers setup and preflight; contract breaches under load are counted
// in Result.Violations, not returned.
func Run(cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if cfg.Seed == 0 {
		cfg.Seed = deriveSeed(cfg)
	}

	arena, err := NewArena(cfg.Cells)
	if err != nil {
		return nil, err
	}
	defer arena.Close()

	if err := preflight(arena); err != nil {
		return nil, err
	}
	arena.Zero()

	l := &lab{
		arena:   arena,
		counted: cfg.Cells - 1,
		churn:   arena.Cell(cfg.Cells - 1),
		seed:    cfg.Seed,
		stamped: make([]tagptr.Stamped[uint64], cfg.StampedSlots),
		targets: make([]uint64, stampedTargets),
		tallies: make([]tally, cfg.Workers),
	}
	for i := range l.stamped {
		l.stamped[i].Store(&l.targets[0], 0)
	}

	control.Reset()
	stop, hot := control.Flags()

	done := make([]chan struct{}, cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		done[w] = make(chan struct{})
		l.startWorker(w, w%runtime.NumCPU(), stop, hot, done[w])
	}

	// The hot loops allocate nothing and the arena lives off-heap, so a
	// collection during the window only adds pauses to the sample.
	prevGC := rtdebug.SetGCPercent(-1)
	defer rtdebug.SetGCPercent(prevGC)

	started := time.Now()
	control.Arm()

	joined := make(chan struct{})
	go func() {
		for _, d := range done {
			<-d
		}
		close(joined)
	}()

	window := time.NewTimer(cfg.Duration)
	select {
	case <-window.C:
		control.Shutdown()
	case <-joined: // stopped early, e.g. by a signal handler
		window.Stop()
	}
	<-joined
	elapsed := time.Since(started)

	res := &Result{
		Cells:     cfg.Cells,
		Workers:   cfg.Workers,
		Seed:      cfg.Seed,
		Arch:      runtime.GOARCH,
		Native:    atomic128.Native(),
		StartedAt: started.UTC(),
		Elapsed:   elapsed,
	}
	l.settle(res)
	return res, nil
}

// settle folds the worker tallies into res and audits the final arena
// and slot state against the books.
func (l *lab) settle(res *Result) {
	for i := range l.tallies {
		t := &l.tallies[i]
		res.Ops += t.ops
		res.Wins += t.wins
		res.Misses += t.misses
		res.StampedWins += t.stampedWins
		res.Violations += t.violations
	}

	// Every win raised exactly one generation, so the counted lane must
	// sum back to the win count, and no cell may name a worker that
	// never existed.
	var gens uint64
	for i := 0; i < l.counted; i++ {
		p := atomic128.LoadPair(l.arena.Cell(i))
		if !validPair(p) {
			res.Violations++
			debug.DropMessage("caslab", "settled cell holds a torn pair")
			continue
		}
		if owner := p.Lo & 0xff; owner > uint64(len(l.tallies)) {
			res.Violations++
			debug.DropMessage("caslab", "settled cell names an unknown worker")
		}
		gens += p.Lo >> 8
	}
	res.Generations = gens
	if gens != res.Wins {
		res.Violations++
		debug.DropMessage("caslab", "generation books do not close")
	}

	if p := atomic128.LoadPair(l.churn); !validPair(p) {
		res.Violations++
		debug.DropMessage("caslab", "churn cell holds a torn pair")
	}

	// Each stamped slot's stamp counts its wins and pins its position
	// on the target ring.
	var stamps uint64
	for i := range l.stamped {
		p, stamp := l.stamped[i].Load()
		stamps += stamp
		if p != &l.targets[stamp%uint64(len(l.targets))] {
			res.Violations++
			debug.DropMessage("caslab", "stamped slot points off its ring")
		}
	}
	if stamps != res.StampedWins {
		res.Violations++
		debug.DropMessage("caslab", "stamp books do not close")
	}
}
