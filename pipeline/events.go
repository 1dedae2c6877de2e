// ABOUTME: Lifecycle events emitted by the engine while a workflow run progresses.
// ABOUTME: A single optional handler receives them synchronously on the run goroutine.
package pipeline

import "time"

// EngineEventType identifies a lifecycle event.
type EngineEventType string

const (
	EventRunStarted    EngineEventType = "run.started"
	EventRunCompleted  EngineEventType = "run.completed"
	EventRunFailed     EngineEventType = "run.failed"
	EventRunCancelled  EngineEventType = "run.cancelled"
	EventRunError      EngineEventType = "run.error"
	EventStepStarted   EngineEventType = "step.started"
	EventStepCompleted EngineEventType = "step.completed"
	EventStepFailed    EngineEventType = "step.failed"
	EventStepRetrying  EngineEventType = "step.retrying"
)

// EngineEvent represents a lifecycle event emitted during run execution.
type EngineEvent struct {
	Type      EngineEventType
	RunID     string
	Step      string
	Data      map[string]any
	Timestamp time.Time
}

// IsTerminal reports whether the event closes a run.
func (e EngineEvent) IsTerminal() bool {
	switch e.Type {
	case EventRunCompleted, EventRunFailed, EventRunCancelled, EventRunError:
		return true
	}
	return false
}

// terminalEvent maps a final run status to its closing event type.
func terminalEvent(status RunStatus) EngineEventType {
	switch status {
	case StatusCompleted:
		return EventRunCompleted
	case StatusCancelled:
		return EventRunCancelled
	case StatusError:
		return EventRunError
	default:
		return EventRunFailed
	}
}
