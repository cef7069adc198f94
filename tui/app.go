// ABOUTME: Top-level Bubble Tea AppModel composing the step grid, budget gauge, event log, and status bar.
// ABOUTME: Implements tea.Model (Init, Update, View) and routes engine events to the sub-panels.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/gauntlet/solver"
)

// tickInterval drives the elapsed clock and budget gauge refresh.
const tickInterval = 100 * time.Millisecond

// AppModel is the top-level Bubble Tea model for the run dashboard.
type AppModel struct {
	grid      GridPanelModel
	gauge     BudgetGaugeModel
	log       LogPanelModel
	statusBar StatusBarModel
	spinner   spinner.Model

	engine *solver.Engine
	ctx    context.Context    // run context handed to the engine
	cancel context.CancelFunc // cancels the run when the user quits early

	done      bool
	cancelled bool
	report    *solver.RunReport
	err       error
	solved    int
	width     int
	height    int
}

// NewAppModel creates an AppModel with all sub-models sized from the config.
func NewAppModel(cfg solver.Config, engine *solver.Engine, ctx context.Context, cancel context.CancelFunc) AppModel {
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(ActiveStyle))
	return AppModel{
		grid:      NewGridPanelModel(cfg.TotalSteps),
		gauge:     NewBudgetGaugeModel(cfg.RunBudget),
		log:       NewLogPanelModel(200),
		statusBar: NewStatusBarModel(cfg.TargetURL, cfg.TotalSteps),
		spinner:   sp,
		engine:    engine,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Report returns the final run report once the run has finished.
func (m AppModel) Report() *solver.RunReport {
	return m.report
}

// Err returns the run error, if any.
func (m AppModel) Err() error {
	return m.err
}

// Done reports whether the run has finished.
func (m AppModel) Done() bool {
	return m.done
}

// Init implements tea.Model. Starts the run, the spinner, and the tick loop.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		RunCmd(m.ctx, m.engine),
		m.spinner.Tick,
		TickCmd(tickInterval),
	)
}

// Update implements tea.Model. Routes incoming messages to the sub-panels and
// returns the updated model with any follow-up commands.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EngineEventMsg:
		return m.handleEngineEvent(msg)

	case RunResultMsg:
		return m.handleRunResult(msg)

	case TickMsg:
		return m.handleTick(msg)

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.statusBar.SetFrame(m.spinner.View())
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// View implements tea.Model. Renders the full dashboard layout.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Minimum terminal size guard to prevent layout overflow
	if m.width < 60 || m.height < 14 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 60x14.", m.width, m.height)
	}

	rows := (m.grid.total + stepsPerRow - 1) / stepsPerRow
	gridHeight := rows + 3
	logHeight := m.height - gridHeight - 2
	if logHeight < 4 {
		logHeight = 4
	}

	m.grid.SetWidth(m.width)
	m.gauge.SetWidth(m.width)
	m.log.SetSize(m.width, logHeight)
	m.statusBar.SetWidth(m.width)

	var statusView string
	switch {
	case m.done && m.err != nil:
		statusView = m.statusBar.View() + " " + AbandonedStyle.Render(fmt.Sprintf("FAILED: %v", m.err))
	case m.done:
		statusView = m.statusBar.View() + " " + SolvedStyle.Render("DONE (q to exit)")
	default:
		statusView = m.statusBar.View()
	}

	var b strings.Builder
	b.WriteString(m.grid.View())
	b.WriteString("\n")
	b.WriteString(m.gauge.View())
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")
	b.WriteString(statusView)

	return b.String()
}

// handleEngineEvent routes engine lifecycle events to the sub-panels.
func (m AppModel) handleEngineEvent(msg EngineEventMsg) (tea.Model, tea.Cmd) {
	ev := msg.Event

	m.log.Append(ev)

	switch ev.Type {
	case solver.EventRunStart:
		m.statusBar.Start()

	case solver.EventStepObserved:
		m.grid.SetCurrent(ev.Step)
		m.statusBar.SetPosition(ev.Step, 0)
		m.statusBar.SetTier("")

	case solver.EventAttemptStart:
		m.statusBar.SetPosition(ev.Step, ev.Attempt)

	case solver.EventTierSelected:
		m.statusBar.SetTier(ev.Tier.String())

	case solver.EventStepSolved:
		m.grid.SetStatus(ev.Step, StepSolved)
		m.solved++
		m.statusBar.SetSolved(m.solved)

	case solver.EventStepSkipped:
		m.grid.SetStatus(ev.Step, StepSkipped)

	case solver.EventStepAbandoned:
		m.grid.SetStatus(ev.Step, StepAbandoned)
	}

	return m, nil
}

// handleRunResult marks the run as done and stores the report and error.
func (m AppModel) handleRunResult(msg RunResultMsg) (tea.Model, tea.Cmd) {
	m.done = true
	m.report = msg.Report
	m.err = msg.Err
	m.grid.SetCurrent(0)
	m.statusBar.SetFrame("")
	if msg.Report != nil {
		m.solved = msg.Report.StepsSucceeded
		m.statusBar.SetSolved(m.solved)
	}
	if m.cancelled {
		return m, tea.Quit
	}
	return m, nil
}

// handleTick refreshes the budget gauge and reschedules while running.
func (m AppModel) handleTick(_ TickMsg) (tea.Model, tea.Cmd) {
	m.gauge.SetElapsed(m.statusBar.Elapsed())
	if m.done {
		return m, nil
	}
	return m, TickCmd(tickInterval)
}

// handleKeyMsg processes keyboard input. The first quit key cancels the run
// context; the dashboard closes when the engine winds down and reports.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.done {
			return m, tea.Quit
		}
		m.cancel()
		m.cancelled = true
		return m, nil
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}
