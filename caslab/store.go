// store.go
//
// SQLite persistence for run history.  One row per settled run, keyed
// by experiment fingerprint, so a fresh result lines up against the
// last run of the same shape and regressions in throughput or verdict
// have something to show against.

package caslab

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoPriorRun reports that the store holds no earlier run with the
// requested fingerprint.
var ErrNoPriorRun = errors.New("caslab: no prior run for this fingerprint")

const runsSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	fingerprint  TEXT    NOT NULL,
	started_at   TEXT    NOT NULL,
	cells        INTEGER NOT NULL,
	workers      INTEGER NOT NULL,
	elapsed_ns   INTEGER NOT NULL,
	ops          INTEGER NOT NULL,
	wins         INTEGER NOT NULL,
	misses       INTEGER NOT NULL,
	stamped_wins INTEGER NOT NULL,
	violations   INTEGER NOT NULL,
	native       INTEGER NOT NULL,
	verdict      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_fingerprint ON runs(fingerprint, id);
`

// Store records settled runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens the run database at path, creating the schema on
// first use.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("caslab: open run store %s: %w", path, err)
	}
	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("caslab: init run store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts one settled run and returns its row id.
func (s *Store) SaveRun(fingerprint string, res *Result) (int64, error) {
	r, err := s.db.Exec(`
		INSERT INTO runs (fingerprint, started_at, cells, workers, elapsed_ns,
		                  ops, wins, misses, stamped_wins, violations, native,
		                  verdict)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fingerprint,
		res.StartedAt.UTC().Format(time.RFC3339Nano),
		res.Cells,
		res.Workers,
		res.Elapsed.Nanoseconds(),
		int64(res.Ops),
		int64(res.Wins),
		int64(res.Misses),
		int64(res.StampedWins),
		int64(res.Violations),
		res.Native,
		res.Verdict(),
	)
	if err != nil {
		return 0, fmt.Errorf("caslab: save run: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("caslab: save run id: %w", err)
	}
	return id, nil
}

// RunCount reports the number of stored runs.
func (s *Store) RunCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("caslab: count runs: %w", err)
	}
	return n, nil
}

// RunRow is one stored run.
type RunRow struct {
	ID          int64
	Fingerprint string
	StartedAt   time.Time
	Cells       int
	Workers     int
	Elapsed     time.Duration
	Ops         uint64
	Wins        uint64
	Misses      uint64
	StampedWins uint64
	Violations  uint64
	Native      bool
	Verdict     string
}

// LastBefore returns the most recent run with the given fingerprint and
// a row id below before. Saving the current run first and passing its
// id yields the previous run of the same experiment. Returns
// ErrNoPriorRun when the history is empty.
func (s *Store) LastBefore(fingerprint string, before int64) (*RunRow, error) {
	row := s.db.QueryRow(`
		SELECT id, fingerprint, started_at, cells, workers, elapsed_ns,
		       ops, wins, misses, stamped_wins, violations, native, verdict
		FROM runs
		WHERE fingerprint = ? AND id < ?
		ORDER BY id DESC
		LIMIT 1`, fingerprint, before)

	var (
		rr        RunRow
		startedAt string
		elapsedNs int64
		ops       int64
		wins      int64
		misses    int64
		stamped   int64
		violate   int64
	)
	err := row.Scan(&rr.ID, &rr.Fingerprint, &startedAt, &rr.Cells,
		&rr.Workers, &elapsedNs, &ops, &wins, &misses, &stamped, &violate,
		&rr.Native, &rr.Verdict)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPriorRun
	}
	if err != nil {
		return nil, fmt.Errorf("caslab: load prior run: %w", err)
	}

	rr.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("caslab: stored run timestamp: %w", err)
	}
	rr.Elapsed = time.Duration(elapsedNs)
	rr.Ops = uint64(ops)
	rr.Wins = uint64(wins)
	rr.Misses = uint64(misses)
	rr.StampedWins = uint64(stamped)
	rr.Violations = uint64(violate)
	return &rr, nil
}
