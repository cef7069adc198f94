// ABOUTME: Defines the StepStatus enum representing per-step outcomes in the dashboard grid.
// ABOUTME: Provides String/Icon methods used by the grid panel and styles.
package tui

// StepStatus represents the display state of one step in the sequence.
type StepStatus int

const (
	StepPending   StepStatus = iota // step not reached yet
	StepActive                      // step currently being worked
	StepSolved                      // gate opened
	StepSkipped                     // skipped forward past this step
	StepAbandoned                   // skip-forward exhausted
)

// String returns the lowercase name of the status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepActive:
		return "active"
	case StepSolved:
		return "solved"
	case StepSkipped:
		return "skipped"
	case StepAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Icon returns a bracket-style marker for grid display.
func (s StepStatus) Icon() string {
	switch s {
	case StepPending:
		return "[ ]"
	case StepActive:
		return "[~]"
	case StepSolved:
		return "[*]"
	case StepSkipped:
		return "[-]"
	case StepAbandoned:
		return "[!]"
	default:
		return "[?]"
	}
}
