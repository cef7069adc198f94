// ABOUTME: Tests for the top-level AppModel covering event routing, quit handling, and rendering.
// ABOUTME: Uses the stub engine from the bridge tests; no real run is driven through Update.
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/gauntlet/solver"
)

// testAppModel builds an AppModel plus the run context it would cancel.
func testAppModel(t *testing.T) (AppModel, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := solver.DefaultConfig()
	cfg.TargetURL = "http://gauntlet.test"
	return NewAppModel(cfg, finishedEngine(t), ctx, cancel), ctx
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewAppModel(t *testing.T) {
	m, _ := testAppModel(t)

	if m.grid.total != 30 {
		t.Errorf("grid total = %d, want 30", m.grid.total)
	}
	if m.engine == nil {
		t.Error("engine is nil")
	}
	if m.done {
		t.Error("done should be false initially")
	}
	if m.Report() != nil {
		t.Error("report should be nil initially")
	}
}

func TestAppInitReturnsCommands(t *testing.T) {
	m, _ := testAppModel(t)
	if m.Init() == nil {
		t.Error("Init returned no commands")
	}
}

func TestAppRoutesEngineEvents(t *testing.T) {
	m, _ := testAppModel(t)

	events := []solver.Event{
		{Type: solver.EventRunStart, Message: "http://gauntlet.test"},
		{Type: solver.EventStepObserved, Step: 1},
		{Type: solver.EventAttemptStart, Step: 1, Attempt: 1},
		{Type: solver.EventTierSelected, Step: 1, Attempt: 1, Tier: solver.TierVision},
		{Type: solver.EventStepSolved, Step: 1, Tier: solver.TierVision},
		{Type: solver.EventStepSkipped, Step: 2},
		{Type: solver.EventStepAbandoned, Step: 3},
	}
	for _, ev := range events {
		updated, _ := m.Update(EngineEventMsg{Event: ev})
		m = updated.(AppModel)
	}

	if got := m.grid.Status(1); got != StepSolved {
		t.Errorf("grid step 1 = %v, want solved", got)
	}
	if got := m.grid.Status(2); got != StepSkipped {
		t.Errorf("grid step 2 = %v, want skipped", got)
	}
	if got := m.grid.Status(3); got != StepAbandoned {
		t.Errorf("grid step 3 = %v, want abandoned", got)
	}
	if m.statusBar.solved != 1 {
		t.Errorf("solved count = %d, want 1", m.statusBar.solved)
	}
	if m.statusBar.tier != "vision" {
		t.Errorf("tier = %q, want vision", m.statusBar.tier)
	}
	if m.log.Len() != len(events) {
		t.Errorf("log entries = %d, want %d", m.log.Len(), len(events))
	}
	if m.statusBar.startTime.IsZero() {
		t.Error("run.start did not start the clock")
	}
}

func TestAppStepObservedResetsPosition(t *testing.T) {
	m, _ := testAppModel(t)

	for _, ev := range []solver.Event{
		{Type: solver.EventAttemptStart, Step: 4, Attempt: 2},
		{Type: solver.EventTierSelected, Step: 4, Tier: solver.TierVision},
		{Type: solver.EventStepObserved, Step: 5},
	} {
		updated, _ := m.Update(EngineEventMsg{Event: ev})
		m = updated.(AppModel)
	}

	if m.statusBar.step != 5 || m.statusBar.attempt != 0 || m.statusBar.tier != "" {
		t.Errorf("position = step %d attempt %d tier %q", m.statusBar.step, m.statusBar.attempt, m.statusBar.tier)
	}
	if m.grid.Current() != 5 {
		t.Errorf("grid current = %d, want 5", m.grid.Current())
	}
}

func TestAppRunResultMarksDone(t *testing.T) {
	m, _ := testAppModel(t)

	rep := &solver.RunReport{RunID: "run-a", StepsSucceeded: 12, Outcome: solver.RunOutcomeIncomplete}
	updated, cmd := m.Update(RunResultMsg{Report: rep, Err: errors.New("context canceled")})
	m = updated.(AppModel)

	if !m.done {
		t.Error("not marked done")
	}
	if m.Report() != rep {
		t.Errorf("Report() = %+v", m.Report())
	}
	if m.Err() == nil {
		t.Error("Err() lost the run error")
	}
	if m.statusBar.solved != 12 {
		t.Errorf("solved = %d, want report value", m.statusBar.solved)
	}
	if m.grid.Current() != 0 {
		t.Errorf("grid current = %d, want cleared", m.grid.Current())
	}
	if cmd != nil {
		t.Error("uncancelled finish should keep the dashboard open")
	}
}

func TestAppQuitAfterDone(t *testing.T) {
	m, _ := testAppModel(t)
	updated, _ := m.Update(RunResultMsg{Report: &solver.RunReport{}})
	m = updated.(AppModel)

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q after done returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q after done did not quit")
	}
}

func TestAppQuitBeforeDoneCancelsRun(t *testing.T) {
	m, ctx := testAppModel(t)

	updated, cmd := m.Update(keyMsg("q"))
	m = updated.(AppModel)

	if cmd != nil {
		t.Error("first quit key should wait for the engine to wind down")
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Error("run context not cancelled")
	}
	if !m.cancelled {
		t.Error("cancelled flag not set")
	}

	// The engine's result now closes the dashboard.
	_, cmd = m.Update(RunResultMsg{Report: &solver.RunReport{}, Err: ctx.Err()})
	if cmd == nil {
		t.Fatal("result after cancel returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("result after cancel did not quit")
	}
}

func TestAppTickRefreshesGauge(t *testing.T) {
	m, _ := testAppModel(t)
	updated, _ := m.Update(EngineEventMsg{Event: solver.Event{Type: solver.EventRunStart}})
	m = updated.(AppModel)

	updated, cmd := m.Update(TickMsg{})
	m = updated.(AppModel)
	if cmd == nil {
		t.Error("tick while running should reschedule")
	}

	updated, _ = m.Update(RunResultMsg{Report: &solver.RunReport{}})
	m = updated.(AppModel)
	_, cmd = m.Update(TickMsg{})
	if cmd != nil {
		t.Error("tick after done should not reschedule")
	}
}

func TestAppViewGuards(t *testing.T) {
	m, _ := testAppModel(t)

	if got := m.View(); got != "Initializing..." {
		t.Errorf("zero-size view = %q", got)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 50, Height: 10})
	m = updated.(AppModel)
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Error("small terminal guard missing")
	}
}

func TestAppViewRendersPanels(t *testing.T) {
	m, _ := testAppModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(AppModel)

	view := m.View()
	for _, want := range []string{"STEPS", "BUDGET", "EVENT LOG", "Target: http://gauntlet.test"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	updated, _ = m.Update(RunResultMsg{Report: &solver.RunReport{StepsSucceeded: 28, Outcome: solver.RunOutcomeSuccess}})
	m = updated.(AppModel)
	if !strings.Contains(m.View(), "DONE") {
		t.Error("finished view missing DONE marker")
	}
}
