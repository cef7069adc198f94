// ABOUTME: Tests for the StepStatus enum String and Icon methods.
// ABOUTME: Covers every status plus the unknown fallback.
package tui

import "testing"

func TestStepStatusString(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   string
	}{
		{StepPending, "pending"},
		{StepActive, "active"},
		{StepSolved, "solved"},
		{StepSkipped, "skipped"},
		{StepAbandoned, "abandoned"},
		{StepStatus(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("StepStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStepStatusIcon(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   string
	}{
		{StepPending, "[ ]"},
		{StepActive, "[~]"},
		{StepSolved, "[*]"},
		{StepSkipped, "[-]"},
		{StepAbandoned, "[!]"},
		{StepStatus(99), "[?]"},
	}
	for _, tt := range tests {
		if got := tt.status.Icon(); got != tt.want {
			t.Errorf("StepStatus(%d).Icon() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
