// ABOUTME: WorkflowRun record and run status values, plus sortable run ID generation.
// ABOUTME: A run is mutated only by the executing engine and cloned before it is shared.
package pipeline

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusError     RunStatus = "error"
	StatusCancelled RunStatus = "cancelled"
)

// IsFinal reports whether the status is terminal.
func (s RunStatus) IsFinal() bool {
	return s != StatusRunning && s != ""
}

// WorkflowRun is the record of one end-to-end execution.
type WorkflowRun struct {
	ID              string         `json:"workflow_id" yaml:"workflow_id"`
	Input           string         `json:"user_prompt" yaml:"user_prompt"`
	StartedAt       time.Time      `json:"started_at" yaml:"started_at"`
	Steps           []TraceEntry   `json:"steps" yaml:"steps"`
	Status          RunStatus      `json:"status" yaml:"status"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Duration        time.Duration  `json:"-" yaml:"-"`
	DurationSeconds float64        `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
	FinalResult     map[string]any `json:"final_result,omitempty" yaml:"final_result,omitempty"`
	Error           string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewRunID returns a unique, time-sortable workflow identifier.
func NewRunID() string {
	return "workflow_" + strings.ToLower(ulid.Make().String())
}

func newRun(input string) *WorkflowRun {
	return &WorkflowRun{
		ID:        NewRunID(),
		Input:     input,
		StartedAt: time.Now(),
		Steps:     []TraceEntry{},
		Status:    StatusRunning,
	}
}

// finalize moves the run into a terminal status. Calling it on a run that is
// already final is a no-op.
func (r *WorkflowRun) finalize(status RunStatus, errMsg string) {
	if r.Status.IsFinal() {
		return
	}
	now := time.Now()
	r.Status = status
	r.Error = errMsg
	r.CompletedAt = &now
	r.Duration = now.Sub(r.StartedAt)
	r.DurationSeconds = r.Duration.Seconds()
}

// FailedStep returns the last trace entry when it recorded a failure.
func (r *WorkflowRun) FailedStep() (TraceEntry, bool) {
	if len(r.Steps) == 0 {
		return TraceEntry{}, false
	}
	last := r.Steps[len(r.Steps)-1]
	return last, last.Status == TraceFailed
}

// Clone returns a deep copy of the run.
func (r *WorkflowRun) Clone() *WorkflowRun {
	if r == nil {
		return nil
	}
	out := *r
	out.Steps = make([]TraceEntry, len(r.Steps))
	for i, e := range r.Steps {
		out.Steps[i] = e.clone()
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	out.FinalResult = copyMap(r.FinalResult)
	return &out
}
