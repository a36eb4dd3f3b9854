// ════════════════════════════════════════════════════════════════════════════════════════════════
// CAS Laboratory - Run Driver
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: 128-bit Atomic Tagged Pointer Runtime
// Component: Lab Entry Point & Run Orchestration
//
// Description:
//   Drives one adversarial run against the double-word primitives and settles
//   the books. Storm → History → Report. A run that settles with violations
//   exits nonzero; an interrupt settles early instead of dying, so even an
//   aborted run leaves a comparable row behind.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pemensik/tagptr/atomic128"
	"github.com/pemensik/tagptr/caslab"
	"github.com/pemensik/tagptr/constants"
	"github.com/pemensik/tagptr/control"
	"github.com/pemensik/tagptr/debug"
	"github.com/pemensik/tagptr/utils"
)

func main() {
	var (
		cells   = flag.Int("cells", constants.DefaultCells, "arena cells; the last one takes swap churn")
		workers = flag.Int("workers", constants.DefaultWorkers, "pinned workers, capped at 255")
		window  = flag.Duration("dur", constants.DefaultDurationMs*time.Millisecond, "run window")
		seed    = flag.Uint64("seed", 0, "operation stream seed; 0 derives one")
		slots   = flag.Int("slots", constants.DefaultStampedSlots, "stamped pointer slots")
		dbPath  = flag.String("db", constants.DefaultDBPath, "run history database; empty disables history")
		outPath = flag.String("report", "", "report JSON path; empty dumps the report to stderr")
	)
	flag.Parse()

	setupSignalHandling()

	cfg := caslab.Config{
		Cells:        *cells,
		Workers:      *workers,
		Duration:     *window,
		Seed:         *seed,
		StampedSlots: *slots,
	}

	// PHASE 1: the storm itself
	backend := "emulated"
	if atomic128.Native() {
		backend = "native"
	}
	debug.DropMessage("INIT", "arming "+utils.Itoa(*workers)+" workers on "+
		utils.Itoa(*cells)+" cells, "+backend+" backend")

	res, err := caslab.Run(cfg)
	if err != nil {
		debug.DropError("RUN", err)
		os.Exit(1)
	}

	debug.DropMessage("SETTLE", utils.Itoa(int(res.Ops))+" ops, "+
		utils.Itoa(int(res.Wins))+" wins, "+
		utils.Itoa(int(res.Misses))+" misses, "+
		utils.Itoa(int(res.Violations))+" violations")

	// PHASE 2: run history and regression check
	fingerprint := caslab.Fingerprint(cfg)
	if *dbPath != "" {
		recordHistory(*dbPath, fingerprint, res)
	}

	// PHASE 3: report
	rep := caslab.BuildReport(cfg, res)
	if *outPath != "" {
		if err := caslab.WriteReport(*outPath, rep); err != nil {
			debug.DropError("REPORT", err)
		}
	} else if b, err := rep.Encode(); err == nil {
		debug.DropMessage("REPORT", utils.B2s(b))
	}

	if !res.Clean() {
		debug.DropMessage("VERDICT", "violated")
		os.Exit(1)
	}
	debug.DropMessage("VERDICT", "clean")
}

// recordHistory appends the run to the store and compares it against
// the previous run of the same experiment shape.
func recordHistory(path, fingerprint string, res *caslab.Result) {
	store, err := caslab.OpenStore(path)
	if err != nil {
		debug.DropError("STORE", err)
		return
	}
	defer store.Close()

	id, err := store.SaveRun(fingerprint, res)
	if err != nil {
		debug.DropError("STORE", err)
		return
	}

	prior, err := store.LastBefore(fingerprint, id)
	if errors.Is(err, caslab.ErrNoPriorRun) {
		debug.DropMessage("STORE", "first run for this experiment")
		return
	}
	if err != nil {
		debug.DropError("STORE", err)
		return
	}

	priorRate := 0
	if ms := prior.Elapsed.Milliseconds(); ms > 0 {
		priorRate = int(prior.Ops * 1000 / uint64(ms))
	}
	debug.DropMessage("STORE", "throughput "+utils.Itoa(int(res.OpsPerSecond()))+
		" ops/s, prior "+utils.Itoa(priorRate)+" ops/s")

	if prior.Verdict == "clean" && !res.Clean() {
		utils.PrintWarning("caslab: verdict regressed against the prior run\n")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SYSTEM LIFECYCLE MANAGEMENT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// setupSignalHandling ends the run window early on interrupt. Workers
// drain on the stop flag and the driver settles as usual, so the row
// written for an interrupted run is still comparable.
func setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		debug.DropMessage("SIGNAL", "interrupt received, settling early")
		control.Shutdown()
	}()
}
