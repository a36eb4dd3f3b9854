// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Shared tunables for the double-word CAS lab
//
// Purpose:
//   - Defines cell geometry shared by the arena, the workers and the stores.
//   - Holds the harness defaults the caslab binary starts from.
//
// Notes:
//   - Cell geometry mirrors what the hardware demands: CMPXCHG16B and
//     LDAXP/STLXP fault or lose atomicity on cells that straddle a 16-byte
//     boundary.
//   - Worker-visible values are sized so one arena fits in L2 by default.
//
// ⚠️ No runtime logic here — all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Cell Geometry ──────────────────────────────

const (
	// CellSize is the footprint of one double-word cell in bytes.
	CellSize = 16

	// CellAlign is the alignment the exchange instructions require.
	// Arena carving checks it once per mapping; the raw call path trusts it.
	CellAlign = 16

	// CacheLine is the coherency granule the paddings below assume.
	// 64 bytes covers every amd64 and arm64 part the lab targets.
	CacheLine = 64
)

// ───────────────────────────── Harness Defaults ────────────────────────────

const (
	// DefaultCells keeps the arena at 4 KiB (one page, fully L1-resident)
	// so contention rather than memory bandwidth dominates a default run.
	DefaultCells = 256

	// DefaultWorkers matches the core count of the small boxes the lab
	// usually runs on. Workers beyond the physical core count only add
	// scheduler noise, never contention coverage.
	DefaultWorkers = 4

	// DefaultDurationMs bounds an unattended run to two seconds. Long
	// soaks are opted into on the command line.
	DefaultDurationMs = 2000

	// DefaultStampedSlots sizes the rotation set for the stamped-pointer
	// traffic. Eight slots keep the pointer check table trivially small
	// while still forcing slot reuse (the ABA shape) within microseconds.
	DefaultStampedSlots = 8

	// DefaultDBPath is where run rows land when no path is given.
	DefaultDBPath = "caslab_runs.db"
)
