// ABOUTME: Append-only execution trace recording one entry per attempted step.
// ABOUTME: Entries hold deep copies of outcomes so later mutation cannot rewrite history.
package pipeline

import (
	"sync"
	"time"
)

// TraceStatus is the recorded status of one step attempt.
type TraceStatus string

const (
	TraceSuccess TraceStatus = "success"
	TraceFailed  TraceStatus = "failed"
)

// TraceEntry is the record of one step's execution within a run.
type TraceEntry struct {
	StepName  string        `json:"step_name" yaml:"step_name"`
	Status    TraceStatus   `json:"status" yaml:"status"`
	Outcome   *Outcome      `json:"result" yaml:"result"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Attempts  int           `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

func (e TraceEntry) clone() TraceEntry {
	e.Outcome = e.Outcome.Clone()
	return e
}

// Trace is the ordered list of step entries for a run.
type Trace struct {
	mu      sync.Mutex
	entries []TraceEntry
}

// Record appends an entry for outcome and returns it. The recorded status is
// derived from the outcome, and the timestamp marks when the step finished.
func (t *Trace) Record(stepName string, outcome *Outcome, started time.Time) TraceEntry {
	now := time.Now()
	entry := TraceEntry{
		StepName:  stepName,
		Status:    TraceFailed,
		Outcome:   outcome.Clone(),
		Timestamp: now,
		Duration:  now.Sub(started),
		Attempts:  attemptsOf(outcome),
	}
	if outcome != nil && outcome.Success {
		entry.Status = TraceSuccess
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()
	return entry.clone()
}

// Entries returns a copy of all entries in execution order.
func (t *Trace) Entries() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of recorded entries.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func attemptsOf(outcome *Outcome) int {
	if outcome == nil || outcome.Metadata == nil {
		return 1
	}
	if n, ok := outcome.Metadata[attemptsMetadataKey].(int); ok && n > 0 {
		return n
	}
	return 1
}
