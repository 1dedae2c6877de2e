// ABOUTME: Bounded in-memory history of finished workflow runs, oldest first.
// ABOUTME: A fixed-size ring evicts the oldest run once capacity is reached.
package pipeline

import (
	"fmt"
	"sync"
)

// DefaultHistoryLimit is the capacity used when none is configured.
const DefaultHistoryLimit = 1000

// History stores finished runs in completion order. It is safe for
// concurrent use; every run crossing its boundary is cloned.
type History struct {
	mu      sync.RWMutex
	buf     []*WorkflowRun
	head    int // next write index
	count   int
	evicted uint64
}

// NewHistory creates a history holding at most capacity runs. A non-positive
// capacity selects DefaultHistoryLimit.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &History{buf: make([]*WorkflowRun, capacity)}
}

// Append stores a copy of run, evicting the oldest run when full.
func (h *History) Append(run *WorkflowRun) {
	if run == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == len(h.buf) {
		h.evicted++
	} else {
		h.count++
	}
	h.buf[h.head] = run.Clone()
	h.head = (h.head + 1) % len(h.buf)
}

// at returns the i-th stored run counting from the oldest. Caller holds mu.
func (h *History) at(i int) *WorkflowRun {
	capacity := len(h.buf)
	return h.buf[(h.head-h.count+i+capacity)%capacity]
}

// Recent returns up to limit of the most recent runs, oldest first. A
// non-positive limit returns every stored run.
func (h *History) Recent(limit int) []*WorkflowRun {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := h.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*WorkflowRun, 0, n)
	for i := h.count - n; i < h.count; i++ {
		out = append(out, h.at(i).Clone())
	}
	return out
}

// Get returns the stored run with the given id.
func (h *History) Get(id string) (*WorkflowRun, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := h.count - 1; i >= 0; i-- {
		if run := h.at(i); run.ID == id {
			return run.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// Len returns the number of stored runs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Cap returns the maximum number of stored runs.
func (h *History) Cap() int {
	return len(h.buf)
}

// Evicted returns how many runs have been dropped to honor the capacity.
func (h *History) Evicted() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.evicted
}
