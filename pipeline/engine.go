// ABOUTME: Sequential workflow engine that runs registered steps over a shared per-run context.
// ABOUTME: Short-circuits on the first failed step and archives every run in bounded history.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/saicharanallam/sigmachain/pipeline"

// FinalResultFunc builds a completed run's final result from the caller's
// input and the final context values.
type FinalResultFunc func(input string, values map[string]any) map[string]any

// EngineConfig holds configuration for the workflow engine.
type EngineConfig struct {
	StepTimeout  time.Duration     // default per-step budget (0 = no timeout)
	HistoryLimit int               // history capacity when History is nil (0 = DefaultHistoryLimit)
	History      *History          // shared history store (nil = a new one)
	FinalResult  FinalResultFunc   // nil = DefaultFinalResult
	EventHandler func(EngineEvent) // optional event callback
	Metrics      *Metrics          // optional Prometheus instruments
	Tracer       trace.Tracer      // nil = global otel tracer
	Logger       *zap.Logger       // nil = no-op logger
}

// DefaultFinalResult forwards the well-known image workflow keys that are
// present in the final context.
func DefaultFinalResult(input string, values map[string]any) map[string]any {
	result := map[string]any{"original_prompt": input}
	for _, key := range []string{"enhanced_prompt", "image_url", "validation"} {
		if v, ok := values[key]; ok {
			result[key] = v
		}
	}
	if passed, ok := values["passed"]; ok {
		result["passed_validation"] = passed
	}
	return result
}

type registeredStep struct {
	step    Step
	timeout time.Duration
}

// StepInfo describes a registered step.
type StepInfo struct {
	Position    int           `json:"position" yaml:"position"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Timeout     time.Duration `json:"timeout_ns,omitempty" yaml:"timeout_ns,omitempty"`
	Requires    []string      `json:"requires,omitempty" yaml:"requires,omitempty"`
	Produces    []string      `json:"produces,omitempty" yaml:"produces,omitempty"`
}

type stepOptions struct {
	position    int
	hasPosition bool
	timeout     time.Duration
	retry       *RetryPolicy
}

// StepOption customizes how AddStep registers a step.
type StepOption func(*stepOptions)

// AtPosition inserts the step at index i, shifting later steps back. An index
// equal to the step count appends.
func AtPosition(i int) StepOption {
	return func(o *stepOptions) {
		o.position = i
		o.hasPosition = true
	}
}

// WithStepTimeout overrides the engine's default step timeout for this step.
func WithStepTimeout(d time.Duration) StepOption {
	return func(o *stepOptions) { o.timeout = d }
}

// WithRetryPolicy wraps the step with WithRetry at registration.
func WithRetryPolicy(p RetryPolicy) StepOption {
	return func(o *stepOptions) { o.retry = &p }
}

// Engine executes workflow runs over an ordered, mutable list of steps.
type Engine struct {
	config  EngineConfig
	history *History
	logger  *zap.Logger
	tracer  trace.Tracer

	mu    sync.RWMutex
	steps []registeredStep
}

// NewEngine creates an engine with the given initial steps, in order.
func NewEngine(config EngineConfig, steps ...Step) (*Engine, error) {
	e := &Engine{
		config:  config,
		history: config.History,
		logger:  config.Logger,
		tracer:  config.Tracer,
	}
	if e.history == nil {
		e.history = NewHistory(config.HistoryLimit)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.config.FinalResult == nil {
		e.config.FinalResult = DefaultFinalResult
	}

	for _, s := range steps {
		if err := e.AddStep(s); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// AddStep registers step at the end of the pipeline, or where AtPosition says.
// The new order is rejected if it breaks a declared key contract.
func (e *Engine) AddStep(step Step, opts ...StepOption) error {
	if step == nil {
		return ErrNilStep
	}
	name := step.Name()
	if name == "" {
		return ErrEmptyStepName
	}

	var o stepOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.retry != nil {
		step = WithRetry(step, *o.retry)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rs := range e.steps {
		if rs.step.Name() == name {
			return fmt.Errorf("%w: %q", ErrDuplicateStep, name)
		}
	}

	pos := len(e.steps)
	if o.hasPosition {
		if o.position < 0 || o.position > len(e.steps) {
			return fmt.Errorf("%w: %d (have %d steps)", ErrInvalidPosition, o.position, len(e.steps))
		}
		pos = o.position
	}

	next := make([]registeredStep, 0, len(e.steps)+1)
	next = append(next, e.steps[:pos]...)
	next = append(next, registeredStep{step: step, timeout: o.timeout})
	next = append(next, e.steps[pos:]...)
	if err := validateContracts(next); err != nil {
		return err
	}

	e.steps = next
	e.logger.Info("step registered", zap.String("step", name), zap.Int("position", pos), zap.Int("steps", len(next)))
	return nil
}

// RemoveStep unregisters the step with the given name.
func (e *Engine) RemoveStep(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, rs := range e.steps {
		if rs.step.Name() == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrStepNotFound, name)
	}

	next := make([]registeredStep, 0, len(e.steps)-1)
	next = append(next, e.steps[:idx]...)
	next = append(next, e.steps[idx+1:]...)
	if err := validateContracts(next); err != nil {
		return fmt.Errorf("removing %q: %w", name, err)
	}

	e.steps = next
	e.logger.Info("step removed", zap.String("step", name), zap.Int("steps", len(next)))
	return nil
}

// Steps describes the registered steps in execution order.
func (e *Engine) Steps() []StepInfo {
	steps := e.snapshotSteps()
	infos := make([]StepInfo, len(steps))
	for i, rs := range steps {
		info := StepInfo{
			Position:    i,
			Name:        rs.step.Name(),
			Description: rs.step.Description(),
			Timeout:     e.timeoutFor(rs),
		}
		if kc, ok := contractOf(rs.step); ok {
			info.Requires = append([]string(nil), kc.Requires()...)
			info.Produces = append([]string(nil), kc.Produces()...)
		}
		infos[i] = info
	}
	return infos
}

// History exposes the engine's history store.
func (e *Engine) History() *History {
	return e.history
}

// GetHistory returns up to limit of the most recent runs, oldest first.
// A non-positive limit returns no runs.
func (e *Engine) GetHistory(limit int) []*WorkflowRun {
	if limit <= 0 {
		return []*WorkflowRun{}
	}
	return e.history.Recent(limit)
}

// GetRun returns the archived run with the given id, or ErrRunNotFound.
func (e *Engine) GetRun(id string) (*WorkflowRun, error) {
	return e.history.Get(id)
}

func (e *Engine) snapshotSteps() []registeredStep {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]registeredStep(nil), e.steps...)
}

func (e *Engine) timeoutFor(rs registeredStep) time.Duration {
	if rs.timeout > 0 {
		return rs.timeout
	}
	return e.config.StepTimeout
}

// Execute runs every registered step over a fresh context seeded with input.
// It never returns an error: step failures, cancellation, and engine faults
// are all reported through the returned run's status. The run is archived
// before Execute returns.
func (e *Engine) Execute(ctx context.Context, input string) *WorkflowRun {
	steps := e.snapshotSteps()
	run := newRun(input)

	ctx, span := e.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.id", run.ID),
		attribute.Int("workflow.steps", len(steps)),
	))
	defer span.End()

	e.config.Metrics.runStarted()
	e.logger.Info("workflow started", zap.String("run_id", run.ID), zap.Int("steps", len(steps)))

	e.runSteps(ctx, run, steps)

	e.history.Append(run)
	e.config.Metrics.runFinished(run, e.history.Len())

	span.SetAttributes(attribute.String("workflow.status", string(run.Status)))
	if run.Status == StatusCompleted {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, run.Error)
	}
	e.logRunFinished(run)
	e.emitSafe(EngineEvent{
		Type:  terminalEvent(run.Status),
		RunID: run.ID,
		Data: map[string]any{
			"status":   string(run.Status),
			"error":    run.Error,
			"duration": run.Duration,
		},
	})
	return run.Clone()
}

// runSteps drives the step loop. Any panic escaping it is an engine fault:
// the run is marked error and keeps whatever trace it had accumulated.
func (e *Engine) runSteps(ctx context.Context, run *WorkflowRun, steps []registeredStep) {
	tr := &Trace{}
	defer func() {
		run.Steps = tr.Entries()
		if r := recover(); r != nil {
			run.finalize(StatusError, fmt.Sprintf("engine fault: %v", r))
			e.logger.Error("workflow engine fault",
				zap.String("run_id", run.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	e.emit(EngineEvent{Type: EventRunStarted, RunID: run.ID, Data: map[string]any{"input": run.Input, "steps": len(steps)}})

	pctx := NewContext(map[string]any{InputKey: run.Input})
	ctx = withRetryObserver(ctx, func(stepName string, attempt int, outcome *Outcome, delay time.Duration) {
		e.config.Metrics.stepRetried(stepName)
		e.logger.Warn("step retrying",
			zap.String("run_id", run.ID),
			zap.String("step", stepName),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("reason", outcome.Message),
		)
		e.emit(EngineEvent{Type: EventStepRetrying, RunID: run.ID, Step: stepName, Data: map[string]any{
			"attempt": attempt,
			"delay":   delay,
			"message": outcome.Message,
		}})
	})

	for i, rs := range steps {
		if err := ctx.Err(); err != nil {
			run.finalize(StatusCancelled, fmt.Sprintf("run cancelled before step %q: %v", rs.step.Name(), err))
			return
		}

		entry := e.executeStep(ctx, run, i, rs, pctx, tr)
		if entry.Status == TraceFailed {
			// A run-level deadline or cancellation wins over the step's own failure kind.
			if ctx.Err() != nil {
				run.finalize(StatusCancelled, entry.Outcome.Message)
			} else {
				run.finalize(StatusFailed, entry.Outcome.Message)
			}
			return
		}
		pctx.merge(entry.Outcome.Data)
	}

	run.FinalResult = e.config.FinalResult(run.Input, pctx.Snapshot())
	run.finalize(StatusCompleted, "")
}

// executeStep invokes one step under its own span and records the trace entry.
func (e *Engine) executeStep(ctx context.Context, run *WorkflowRun, index int, rs registeredStep, pctx *Context, tr *Trace) TraceEntry {
	name := rs.step.Name()
	stepCtx, span := e.tracer.Start(ctx, "workflow.step", trace.WithAttributes(
		attribute.String("workflow.id", run.ID),
		attribute.String("step.name", name),
		attribute.Int("step.index", index),
	))
	defer span.End()

	e.emit(EngineEvent{Type: EventStepStarted, RunID: run.ID, Step: name, Data: map[string]any{"index": index}})
	e.logger.Debug("step started", zap.String("run_id", run.ID), zap.String("step", name), zap.Int("index", index))

	started := time.Now()
	outcome := runStep(stepCtx, rs.step, pctx, e.timeoutFor(rs))
	entry := tr.Record(name, outcome, started)
	e.config.Metrics.stepFinished(entry)

	span.SetAttributes(
		attribute.String("step.status", string(entry.Status)),
		attribute.Int("step.attempts", entry.Attempts),
	)
	if entry.Status == TraceFailed {
		span.RecordError(fmt.Errorf("%s", entry.Outcome.Message))
		span.SetStatus(codes.Error, entry.Outcome.Message)
		e.logger.Warn("step failed",
			zap.String("run_id", run.ID),
			zap.String("step", name),
			zap.String("kind", string(entry.Outcome.Kind)),
			zap.String("message", entry.Outcome.Message),
			zap.Duration("duration", entry.Duration),
		)
		e.emit(EngineEvent{Type: EventStepFailed, RunID: run.ID, Step: name, Data: map[string]any{
			"message":  entry.Outcome.Message,
			"kind":     string(entry.Outcome.Kind),
			"duration": entry.Duration,
		}})
		return entry
	}

	span.SetStatus(codes.Ok, "")
	e.logger.Info("step completed",
		zap.String("run_id", run.ID),
		zap.String("step", name),
		zap.Duration("duration", entry.Duration),
	)
	e.emit(EngineEvent{Type: EventStepCompleted, RunID: run.ID, Step: name, Data: map[string]any{
		"message":  entry.Outcome.Message,
		"duration": entry.Duration,
	}})
	return entry
}

func (e *Engine) logRunFinished(run *WorkflowRun) {
	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("steps_run", len(run.Steps)),
		zap.Duration("duration", run.Duration),
	}
	switch run.Status {
	case StatusCompleted:
		e.logger.Info("workflow completed", fields...)
	case StatusError:
		e.logger.Error("workflow errored", append(fields, zap.String("error", run.Error))...)
	default:
		e.logger.Warn("workflow did not complete", append(fields, zap.String("error", run.Error))...)
	}
}

// SetEventHandler replaces the event callback. It affects events emitted
// after the call, including those of runs already in progress.
func (e *Engine) SetEventHandler(fn func(EngineEvent)) {
	e.mu.Lock()
	e.config.EventHandler = fn
	e.mu.Unlock()
}

// emit sends an event to the configured handler, if any.
func (e *Engine) emit(evt EngineEvent) {
	e.mu.RLock()
	handler := e.config.EventHandler
	e.mu.RUnlock()
	if handler == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	handler(evt)
}

// emitSafe is emit for events sent after a run is final, when a handler
// panic can no longer change the run's status.
func (e *Engine) emitSafe(evt EngineEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked", zap.String("event", string(evt.Type)), zap.Any("panic", r))
		}
	}()
	e.emit(evt)
}
