// ABOUTME: Tests for the SQLite run archive against a real temp database.
// ABOUTME: Covers snapshot upserts, the live attempt path, reconstruction, and list queries.
package store_test

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/2389-research/gauntlet/solver"
	"github.com/2389-research/gauntlet/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeReport(runID string, startedAt time.Time) *solver.RunReport {
	return &solver.RunReport{
		RunID:          runID,
		TargetURL:      "http://gauntlet.test",
		StartedAt:      startedAt,
		Duration:       90 * time.Second,
		TotalSteps:     30,
		StepsSucceeded: 2,
		Solved:         []int{1, 2},
		Skipped:        []int{3},
		Results: []solver.StepResult{
			{Step: 1, Outcome: solver.OutcomeSolved, Attempts: 1, TierUsed: solver.TierRules, Duration: 4 * time.Second},
			{Step: 2, Outcome: solver.OutcomeSolved, Attempts: 2, TierUsed: solver.TierModel, Duration: 11 * time.Second},
			{Step: 3, Outcome: solver.OutcomeSkipped, Attempts: 3, TierUsed: solver.TierVision, Duration: 40 * time.Second, Error: "stuck after 3 attempts, advanced to step 4"},
		},
		Attempts: []solver.StepAttempt{
			{ID: "01J00000000000000000000001", Step: 1, Attempt: 0, Tier: solver.TierRules, Actions: "click ref=e1", Outcome: solver.OutcomeSolved, Wall: 4 * time.Second},
			{ID: "01J00000000000000000000002", Step: 2, Attempt: 0, Tier: solver.TierRules, Outcome: solver.OutcomeTierMiss, Detail: "no proposal", Wall: time.Second},
			{ID: "01J00000000000000000000003", Step: 2, Attempt: 1, Tier: solver.TierModel, Actions: "type ref=e5", Outcome: solver.OutcomeSolved, Wall: 10 * time.Second},
		},
		Outcome: solver.RunOutcomeIncomplete,
	}
}

func TestStoreRoundTripsRun(t *testing.T) {
	s := openStore(t)
	started := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	rep := makeReport("run-a", started)
	if err := s.SaveRun(rep); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, ok, err := s.RunByID("run-a")
	if err != nil {
		t.Fatalf("RunByID: %v", err)
	}
	if !ok {
		t.Fatal("RunByID reported the run missing")
	}

	if got.RunID != rep.RunID || got.TargetURL != rep.TargetURL {
		t.Errorf("identity = (%q, %q), want (%q, %q)", got.RunID, got.TargetURL, rep.RunID, rep.TargetURL)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if got.Duration != rep.Duration {
		t.Errorf("duration = %v, want %v", got.Duration, rep.Duration)
	}
	if got.TotalSteps != 30 || got.StepsSucceeded != 2 || got.Outcome != solver.RunOutcomeIncomplete {
		t.Errorf("totals = (%d, %d, %q)", got.TotalSteps, got.StepsSucceeded, got.Outcome)
	}
	if !reflect.DeepEqual(got.Results, rep.Results) {
		t.Errorf("results = %+v, want %+v", got.Results, rep.Results)
	}
	if !reflect.DeepEqual(got.Attempts, rep.Attempts) {
		t.Errorf("attempts = %+v, want %+v", got.Attempts, rep.Attempts)
	}
	if !reflect.DeepEqual(got.Solved, []int{1, 2}) || !reflect.DeepEqual(got.Skipped, []int{3}) || got.Abandoned != nil {
		t.Errorf("outcome lists = %v / %v / %v", got.Solved, got.Skipped, got.Abandoned)
	}
}

func TestStoreUpsertsProgressSnapshots(t *testing.T) {
	s := openStore(t)
	started := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)

	early := makeReport("run-b", started)
	early.Outcome = solver.RunOutcomeRunning
	early.Results = early.Results[:1]
	early.Attempts = early.Attempts[:1]
	early.StepsSucceeded = 1
	if err := s.SaveRun(early); err != nil {
		t.Fatalf("SaveRun (snapshot): %v", err)
	}

	final := makeReport("run-b", started)
	final.Outcome = solver.RunOutcomeSuccess
	final.StepsSucceeded = 3
	final.Duration = 2 * time.Minute
	if err := s.SaveRun(final); err != nil {
		t.Fatalf("SaveRun (final): %v", err)
	}

	got, ok, err := s.RunByID("run-b")
	if err != nil || !ok {
		t.Fatalf("RunByID = (%t, %v)", ok, err)
	}
	if got.Outcome != solver.RunOutcomeSuccess || got.StepsSucceeded != 3 || got.Duration != 2*time.Minute {
		t.Errorf("final row = (%q, %d, %v)", got.Outcome, got.StepsSucceeded, got.Duration)
	}
	if len(got.Results) != 3 {
		t.Errorf("results = %d rows, want 3 with no duplicates", len(got.Results))
	}
	if len(got.Attempts) != 3 {
		t.Errorf("attempts = %d rows, want 3 with no duplicates", len(got.Attempts))
	}

	runs, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d rows, want the upsert to keep one", len(runs))
	}
}

func TestSaveAttemptInsertsLive(t *testing.T) {
	s := openStore(t)
	started := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	rep := makeReport("run-c", started)
	rep.Results = nil
	rep.Attempts = nil
	rep.Outcome = solver.RunOutcomeRunning
	if err := s.SaveRun(rep); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	first := solver.StepAttempt{ID: "01J00000000000000000000010", Step: 1, Attempt: 0, Tier: solver.TierRules, Outcome: solver.OutcomeNoToken, Wall: 2 * time.Second}
	second := solver.StepAttempt{ID: "01J00000000000000000000011", Step: 1, Attempt: 1, Tier: solver.TierModel, Actions: "click ref=e1", Outcome: solver.OutcomeSolved, Detail: "token AB12CD", Wall: 6 * time.Second}
	if err := s.SaveAttempt("run-c", first); err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}
	if err := s.SaveAttempt("run-c", second); err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}

	got, ok, err := s.RunByID("run-c")
	if err != nil || !ok {
		t.Fatalf("RunByID = (%t, %v)", ok, err)
	}
	if !reflect.DeepEqual(got.Attempts, []solver.StepAttempt{first, second}) {
		t.Errorf("attempts = %+v", got.Attempts)
	}

	// The final snapshot carries the same attempts; ids already present are
	// left alone.
	rep.Attempts = []solver.StepAttempt{first, second}
	rep.Outcome = solver.RunOutcomeIncomplete
	if err := s.SaveRun(rep); err != nil {
		t.Fatalf("SaveRun (final): %v", err)
	}
	got, _, _ = s.RunByID("run-c")
	if len(got.Attempts) != 2 {
		t.Errorf("attempts after snapshot = %d rows, want 2", len(got.Attempts))
	}
}

func TestSaveAttemptRequiresRunRow(t *testing.T) {
	s := openStore(t)
	a := solver.StepAttempt{ID: "01J00000000000000000000020", Step: 1, Outcome: solver.OutcomeFault}
	if err := s.SaveAttempt("no-such-run", a); err == nil {
		t.Fatal("SaveAttempt accepted an attempt for an unknown run")
	}
}

func TestRunByIDMissing(t *testing.T) {
	s := openStore(t)
	rep, ok, err := s.RunByID("ghost")
	if err != nil {
		t.Fatalf("RunByID: %v", err)
	}
	if ok || rep != nil {
		t.Fatalf("RunByID = (%+v, %t), want a clean miss", rep, ok)
	}
}

func TestRecentRunsOrdersNewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		rep := makeReport(id, base.Add(time.Duration(i)*time.Hour))
		rep.Results = nil
		rep.Attempts = nil
		if err := s.SaveRun(rep); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	runs, err := s.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns = %d rows, want limit applied", len(runs))
	}
	if runs[0].RunID != "run-new" || runs[1].RunID != "run-mid" {
		t.Errorf("order = [%s, %s], want newest first", runs[0].RunID, runs[1].RunID)
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("started_at = %v", runs[0].StartedAt)
	}
	if runs[0].Duration != 90*time.Second {
		t.Errorf("duration = %v", runs[0].Duration)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")

	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rep := makeReport("run-d", time.Date(2026, 8, 25, 13, 0, 0, 0, time.UTC))
	if err := s.SaveRun(rep); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, ok, err := reopened.RunByID("run-d")
	if err != nil || !ok {
		t.Fatalf("RunByID after reopen = (%t, %v)", ok, err)
	}
	if len(got.Results) != 3 || len(got.Attempts) != 3 {
		t.Errorf("reopened run = %d results, %d attempts", len(got.Results), len(got.Attempts))
	}
}
