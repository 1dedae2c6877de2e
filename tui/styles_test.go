// ABOUTME: Tests for lipgloss style definitions, StyleForStatus, and StepStatus helpers.
// ABOUTME: Validates step and run status styles, status names and icons, and trace mapping.
package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/saicharanallam/sigmachain/pipeline"
)

func TestStyleForStatus(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   lipgloss.Style
	}{
		{StepPending, PendingStyle},
		{StepRunning, RunningStyle},
		{StepCompleted, CompletedStyle},
		{StepFailed, FailedStyle},
		{StepSkipped, SkippedStyle},
		{StepCancelled, CancelledStyle},
		{StepStatus(99), PendingStyle},
	}
	for _, tt := range tests {
		if got, want := StyleForStatus(tt.status).Render("test"), tt.want.Render("test"); got != want {
			t.Errorf("StyleForStatus(%v) rendered %q, want %q", tt.status, got, want)
		}
	}
}

func TestStepStatusStringAndIcon(t *testing.T) {
	tests := []struct {
		status     StepStatus
		name, icon string
	}{
		{StepPending, "pending", "[ ]"},
		{StepRunning, "running", "[~]"},
		{StepCompleted, "completed", "[*]"},
		{StepFailed, "failed", "[!]"},
		{StepSkipped, "skipped", "[-]"},
		{StepCancelled, "cancelled", "[x]"},
		{StepStatus(42), "unknown", "[?]"},
		{StepStatus(-1), "unknown", "[?]"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.status.Icon(); got != tt.icon {
			t.Errorf("Icon() = %q, want %q", got, tt.icon)
		}
	}
}

func TestStyleForRun(t *testing.T) {
	tests := []struct {
		status pipeline.RunStatus
		want   lipgloss.Style
	}{
		{pipeline.StatusCompleted, CompletedStyle},
		{pipeline.StatusRunning, RunningStyle},
		{pipeline.StatusFailed, FailedStyle},
		{pipeline.StatusError, ErrorStyle},
		{pipeline.StatusCancelled, CancelledStyle.Strikethrough(false)},
	}
	for _, tt := range tests {
		if got, want := StyleForRun(tt.status).Render("x"), tt.want.Render("x"); got != want {
			t.Errorf("StyleForRun(%s) rendered %q, want %q", tt.status, got, want)
		}
	}
}

func TestStatusForEntry(t *testing.T) {
	ok := pipeline.TraceEntry{Status: pipeline.TraceSuccess}
	bad := pipeline.TraceEntry{Status: pipeline.TraceFailed}
	tests := []struct {
		entry pipeline.TraceEntry
		run   pipeline.RunStatus
		want  StepStatus
	}{
		{ok, pipeline.StatusCompleted, StepCompleted},
		{ok, pipeline.StatusCancelled, StepCompleted},
		{bad, pipeline.StatusFailed, StepFailed},
		{bad, pipeline.StatusError, StepFailed},
		{bad, pipeline.StatusCancelled, StepCancelled},
	}
	for _, tt := range tests {
		if got := statusForEntry(tt.entry, tt.run); got != tt.want {
			t.Errorf("statusForEntry(%s, %s) = %s, want %s", tt.entry.Status, tt.run, got, tt.want)
		}
	}
	if unstartedStatus(pipeline.StatusCancelled) != StepCancelled || unstartedStatus(pipeline.StatusFailed) != StepSkipped {
		t.Error("unexpected unstarted status")
	}
}
