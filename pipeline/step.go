// ABOUTME: Step interface, optional key contracts, and the guarded execution boundary.
// ABOUTME: Panics, errors, nil outcomes, and timeouts all become failed outcomes here.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// Step is one unit of work in a workflow. Implementations must be safe for
// concurrent use because the same step value serves every run.
type Step interface {
	Name() string
	Description() string
	Process(ctx context.Context, pctx *Context) (*Outcome, error)
}

// AnyOfSeparator joins alternative keys in a single requirement, e.g.
// "image_url|image_path".
const AnyOfSeparator = "|"

// KeyContract is implemented by steps that declare which context keys they
// read and which keys a successful outcome adds.
type KeyContract interface {
	Requires() []string
	Produces() []string
}

// StepUnwrapper is implemented by step wrappers that expose the step they wrap.
type StepUnwrapper interface {
	Unwrap() Step
}

// StepFunc is the signature of a function usable as a step body.
type StepFunc func(ctx context.Context, pctx *Context) (*Outcome, error)

// FuncStep adapts a plain function to the Step interface.
type FuncStep struct {
	name        string
	description string
	fn          StepFunc
	requires    []string
	produces    []string
}

// NewFuncStep creates a step from a function.
func NewFuncStep(name, description string, fn StepFunc) *FuncStep {
	return &FuncStep{name: name, description: description, fn: fn}
}

// WithContract declares the keys the step reads and writes.
func (s *FuncStep) WithContract(requires, produces []string) *FuncStep {
	s.requires = requires
	s.produces = produces
	return s
}

func (s *FuncStep) Name() string        { return s.name }
func (s *FuncStep) Description() string { return s.description }
func (s *FuncStep) Requires() []string  { return s.requires }
func (s *FuncStep) Produces() []string  { return s.produces }

// Process runs the wrapped function.
func (s *FuncStep) Process(ctx context.Context, pctx *Context) (*Outcome, error) {
	return s.fn(ctx, pctx)
}

// UnwrapStep follows StepUnwrapper links down to the innermost step.
func UnwrapStep(step Step) Step {
	for {
		u, ok := step.(StepUnwrapper)
		if !ok {
			return step
		}
		inner := u.Unwrap()
		if inner == nil {
			return step
		}
		step = inner
	}
}

// contractOf returns the key contract of step or of any step it wraps.
func contractOf(step Step) (KeyContract, bool) {
	for step != nil {
		if kc, ok := step.(KeyContract); ok {
			return kc, true
		}
		u, ok := step.(StepUnwrapper)
		if !ok {
			return nil, false
		}
		step = u.Unwrap()
	}
	return nil, false
}

// safeProcess calls step.Process and converts every abnormal exit into a
// failed outcome.
func safeProcess(ctx context.Context, step Step, pctx *Context) (outcome *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failf(KindFault, "step %q panicked: %v", step.Name(), r).
				WithMetadata(map[string]any{"stack": string(debug.Stack())})
		}
	}()

	out, err := step.Process(ctx, pctx)
	if err != nil {
		return Fail(errorKind(err), err.Error())
	}
	if out == nil {
		return Failf(KindFault, "step %q returned no outcome", step.Name())
	}
	return out.normalize()
}

func errorKind(err error) FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindUpstream
	}
}

// runStep executes step under an optional time budget. When the budget
// expires the step is abandoned and a timeout outcome is returned; the step
// goroutine observes ctx cancellation and exits on its own. Cancellation of
// the parent ctx does not abandon the step: it is allowed to finish.
func runStep(ctx context.Context, step Step, pctx *Context, timeout time.Duration) *Outcome {
	if timeout <= 0 {
		return safeProcess(ctx, step, pctx)
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan *Outcome, 1)
	go func() {
		done <- safeProcess(stepCtx, step, pctx)
	}()

	select {
	case out := <-done:
		return out
	case <-stepCtx.Done():
		if ctx.Err() == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			return Fail(KindTimeout, fmt.Sprintf("step %q timed out after %s", step.Name(), timeout))
		}
		return <-done
	}
}
