// ABOUTME: Step row states for the live view, derived from trace entries and the run's final status.
// ABOUTME: A cancelled run marks its interrupted and unstarted steps as cancelled rather than failed.
package tui

import "github.com/saicharanallam/sigmachain/pipeline"

// StepStatus is a step row's display state.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepCompleted
	StepFailed
	StepSkipped   // never ran because an earlier step failed
	StepCancelled // interrupted, or never ran, because the run was cancelled
)

var stepStatusNames = [...]string{"pending", "running", "completed", "failed", "skipped", "cancelled"}

var stepStatusIcons = [...]string{"[ ]", "[~]", "[*]", "[!]", "[-]", "[x]"}

func (s StepStatus) String() string {
	if s < 0 || int(s) >= len(stepStatusNames) {
		return "unknown"
	}
	return stepStatusNames[s]
}

// Icon returns a bracket-style marker usable without color.
func (s StepStatus) Icon() string {
	if s < 0 || int(s) >= len(stepStatusIcons) {
		return "[?]"
	}
	return stepStatusIcons[s]
}

// statusForEntry maps a recorded trace entry to a row state. The failed
// entry of a cancelled run was interrupted, not rejected.
func statusForEntry(entry pipeline.TraceEntry, run pipeline.RunStatus) StepStatus {
	switch {
	case entry.Status == pipeline.TraceSuccess:
		return StepCompleted
	case run == pipeline.StatusCancelled:
		return StepCancelled
	default:
		return StepFailed
	}
}

// unstartedStatus is the state of rows the run never reached.
func unstartedStatus(run pipeline.RunStatus) StepStatus {
	if run == pipeline.StatusCancelled {
		return StepCancelled
	}
	return StepSkipped
}
