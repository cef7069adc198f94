// ABOUTME: SQLite-backed archive of runs, per-step results, and attempt records.
// ABOUTME: SaveAttempt is the live insert path; SaveRun upserts the full run snapshot.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/2389-research/gauntlet/solver"
	_ "github.com/mattn/go-sqlite3"
)

// timeFormat is RFC 3339 so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// RunSummary is a runs-table row for list queries.
type RunSummary struct {
	RunID          string
	TargetURL      string
	StartedAt      time.Time
	Duration       time.Duration
	TotalSteps     int
	StepsSucceeded int
	Outcome        string
}

// Store is a SQLite archive of runs. It implements solver.RunStore: attempts
// are inserted live as the run produces them, and the run row plus step
// results are upserted whenever the engine checkpoints. Every write is an
// upsert keyed on its natural id, so replaying a snapshot is harmless.
type Store struct {
	db *sql.DB
}

// Open opens or creates the run database at the given path and migrates the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			target_url TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			total_steps INTEGER NOT NULL,
			steps_succeeded INTEGER NOT NULL,
			outcome TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS step_results (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			tier_used INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, step),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);

		CREATE TABLE IF NOT EXISTS attempts (
			attempt_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			attempt INTEGER NOT NULL,
			tier INTEGER NOT NULL,
			actions TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			wall_ms INTEGER NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun upserts the run row, its step results, and any attempt rows the
// live path missed. Called with in-progress snapshots during the run and the
// final report at the end.
func (s *Store) SaveRun(rep *solver.RunReport) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, target_url, started_at, duration_ms, total_steps, steps_succeeded, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			duration_ms = excluded.duration_ms,
			steps_succeeded = excluded.steps_succeeded,
			outcome = excluded.outcome`,
		rep.RunID,
		rep.TargetURL,
		rep.StartedAt.UTC().Format(timeFormat),
		rep.Duration.Milliseconds(),
		rep.TotalSteps,
		rep.StepsSucceeded,
		rep.Outcome,
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	for _, r := range rep.Results {
		_, err := s.db.Exec(
			`INSERT INTO step_results (run_id, step, outcome, attempts, tier_used, duration_ms, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(run_id, step) DO UPDATE SET
				outcome = excluded.outcome,
				attempts = excluded.attempts,
				tier_used = excluded.tier_used,
				duration_ms = excluded.duration_ms,
				error = excluded.error`,
			rep.RunID, r.Step, string(r.Outcome), r.Attempts, int(r.TierUsed),
			r.Duration.Milliseconds(), r.Error,
		)
		if err != nil {
			return fmt.Errorf("upsert step result %d: %w", r.Step, err)
		}
	}

	for _, a := range rep.Attempts {
		if err := s.insertAttempt(rep.RunID, a, true); err != nil {
			return err
		}
	}
	return nil
}

// SaveAttempt inserts one attempt record as the run produces it.
func (s *Store) SaveAttempt(runID string, a solver.StepAttempt) error {
	return s.insertAttempt(runID, a, false)
}

// insertAttempt writes an attempt row. Attempt records are immutable, so a
// conflicting id means the row is already present and the snapshot path
// ignores it.
func (s *Store) insertAttempt(runID string, a solver.StepAttempt, ignoreDup bool) error {
	clause := ""
	if ignoreDup {
		clause = " ON CONFLICT(attempt_id) DO NOTHING"
	}
	_, err := s.db.Exec(
		`INSERT INTO attempts (attempt_id, run_id, step, attempt, tier, actions, outcome, detail, wall_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`+clause,
		a.ID, runID, a.Step, a.Attempt, int(a.Tier), a.Actions,
		string(a.Outcome), a.Detail, a.Wall.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert attempt %s: %w", a.ID, err)
	}
	return nil
}

// RecentRuns returns the newest runs first, at most limit rows.
func (s *Store) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT run_id, target_url, started_at, duration_ms, total_steps, steps_succeeded, outcome
		 FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunSummary
	for rows.Next() {
		var (
			r          RunSummary
			started    string
			durationMS int64
		)
		if err := rows.Scan(&r.RunID, &r.TargetURL, &started, &durationMS,
			&r.TotalSteps, &r.StepsSucceeded, &r.Outcome); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.StartedAt, err = time.Parse(timeFormat, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunByID reconstructs a full report from the archive. Returns ok=false when
// no such run exists.
func (s *Store) RunByID(runID string) (*solver.RunReport, bool, error) {
	var (
		rep        solver.RunReport
		started    string
		durationMS int64
	)
	err := s.db.QueryRow(
		`SELECT run_id, target_url, started_at, duration_ms, total_steps, steps_succeeded, outcome
		 FROM runs WHERE run_id = ?`, runID).
		Scan(&rep.RunID, &rep.TargetURL, &started, &durationMS,
			&rep.TotalSteps, &rep.StepsSucceeded, &rep.Outcome)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query run: %w", err)
	}
	rep.StartedAt, err = time.Parse(timeFormat, started)
	if err != nil {
		return nil, false, fmt.Errorf("parse started_at: %w", err)
	}
	rep.Duration = time.Duration(durationMS) * time.Millisecond

	if err := s.loadResults(&rep); err != nil {
		return nil, false, err
	}
	if err := s.loadAttempts(&rep); err != nil {
		return nil, false, err
	}
	return &rep, true, nil
}

// loadResults fills Results plus the solved/skipped/abandoned step lists.
func (s *Store) loadResults(rep *solver.RunReport) error {
	rows, err := s.db.Query(
		`SELECT step, outcome, attempts, tier_used, duration_ms, error
		 FROM step_results WHERE run_id = ? ORDER BY step ASC`, rep.RunID)
	if err != nil {
		return fmt.Errorf("query step results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			r          solver.StepResult
			outcome    string
			tier       int
			durationMS int64
		)
		if err := rows.Scan(&r.Step, &outcome, &r.Attempts, &tier, &durationMS, &r.Error); err != nil {
			return fmt.Errorf("scan step result row: %w", err)
		}
		r.Outcome = solver.Outcome(outcome)
		r.TierUsed = solver.Tier(tier)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		rep.Results = append(rep.Results, r)

		switch r.Outcome {
		case solver.OutcomeSolved:
			rep.Solved = append(rep.Solved, r.Step)
		case solver.OutcomeSkipped:
			rep.Skipped = append(rep.Skipped, r.Step)
		case solver.OutcomeAbandoned:
			rep.Abandoned = append(rep.Abandoned, r.Step)
		}
	}
	return rows.Err()
}

// loadAttempts fills Attempts in id order; ULID ids sort chronologically.
func (s *Store) loadAttempts(rep *solver.RunReport) error {
	rows, err := s.db.Query(
		`SELECT attempt_id, step, attempt, tier, actions, outcome, detail, wall_ms
		 FROM attempts WHERE run_id = ? ORDER BY attempt_id ASC`, rep.RunID)
	if err != nil {
		return fmt.Errorf("query attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			a       solver.StepAttempt
			tier    int
			outcome string
			wallMS  int64
		)
		if err := rows.Scan(&a.ID, &a.Step, &a.Attempt, &tier, &a.Actions, &outcome, &a.Detail, &wallMS); err != nil {
			return fmt.Errorf("scan attempt row: %w", err)
		}
		a.Tier = solver.Tier(tier)
		a.Outcome = solver.Outcome(outcome)
		a.Wall = time.Duration(wallMS) * time.Millisecond
		rep.Attempts = append(rep.Attempts, a)
	}
	return rows.Err()
}
