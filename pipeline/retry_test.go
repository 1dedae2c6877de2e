// ABOUTME: Tests for retry policies, backoff delay calculation, and the WithRetry wrapper.
// ABOUTME: Verifies attempts accounting, precondition short-circuit, and retry events.
package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		Backoff:     BackoffConfig{InitialDelay: time.Millisecond, Factor: 1.0, MaxDelay: time.Millisecond},
	}
}

func TestDelayForAttempt(t *testing.T) {
	b := BackoffConfig{InitialDelay: 100 * time.Millisecond, Factor: 2.0, MaxDelay: time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
	}
	for _, tc := range cases {
		if got := b.DelayForAttempt(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestDelayForAttemptJitterBounded(t *testing.T) {
	b := BackoffConfig{InitialDelay: 100 * time.Millisecond, Factor: 2.0, MaxDelay: time.Second, Jitter: true}
	for i := 0; i < 50; i++ {
		if d := b.DelayForAttempt(1); d < 0 || d > 200*time.Millisecond {
			t.Fatalf("jittered delay %v out of range", d)
		}
	}
}

func TestRetryPolicyByName(t *testing.T) {
	for _, name := range []string{"", "none", "standard", "Aggressive", "linear", "patient"} {
		p, err := RetryPolicyByName(name)
		if err != nil {
			t.Errorf("%q: unexpected error %v", name, err)
		}
		if p.MaxAttempts < 1 {
			t.Errorf("%q: MaxAttempts = %d", name, p.MaxAttempts)
		}
	}
	if _, err := RetryPolicyByName("reckless"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestWithRetryEventuallySucceeds(t *testing.T) {
	var calls atomic.Int32
	flaky := &testStep{
		name: "flaky",
		processFn: func(ctx context.Context, pctx *Context) (*Outcome, error) {
			if calls.Add(1) < 3 {
				return Fail(KindUpstream, "rate limited"), nil
			}
			return Succeed("ok", map[string]any{"image_url": "u"}), nil
		},
	}
	var retries atomic.Int32
	e := mustEngine(t, EngineConfig{EventHandler: func(evt EngineEvent) {
		if evt.Type == EventStepRetrying {
			retries.Add(1)
		}
	}})
	if err := e.AddStep(flaky, WithRetryPolicy(fastPolicy(5))); err != nil {
		t.Fatalf("AddStep: %v", err)
	}

	run := e.Execute(context.Background(), "x")
	if run.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q: %s", run.Status, run.Error)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
	if run.Steps[0].Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", run.Steps[0].Attempts)
	}
	if retries.Load() != 2 {
		t.Errorf("expected 2 retry events, got %d", retries.Load())
	}
	if len(run.Steps) != 1 {
		t.Errorf("retries should produce a single trace entry, got %d", len(run.Steps))
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	always := newFailStep("always", "backend down")
	step := WithRetry(always, fastPolicy(3))
	out, err := step.Process(context.Background(), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if out.Success {
		t.Fatal("expected failure")
	}
	if always.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", always.calls.Load())
	}
	if out.Metadata["attempts"] != 3 {
		t.Errorf("attempts metadata = %v", out.Metadata["attempts"])
	}
}

func TestWithRetrySkipsPreconditionFailures(t *testing.T) {
	missing := &testStep{
		name: "missing",
		processFn: func(ctx context.Context, pctx *Context) (*Outcome, error) {
			return Fail(KindPrecondition, "No enhanced prompt provided"), nil
		},
	}
	out, _ := WithRetry(missing, fastPolicy(5)).Process(context.Background(), NewContext(nil))
	if out.Success {
		t.Fatal("expected failure")
	}
	if missing.calls.Load() != 1 {
		t.Errorf("precondition failure should not be retried, got %d calls", missing.calls.Load())
	}
}

func TestWithRetryRecoversPanics(t *testing.T) {
	var calls atomic.Int32
	panicky := &testStep{
		name: "panicky",
		processFn: func(ctx context.Context, pctx *Context) (*Outcome, error) {
			if calls.Add(1) == 1 {
				panic("first attempt explodes")
			}
			return Succeed("ok", nil), nil
		},
	}
	out, _ := WithRetry(panicky, fastPolicy(2)).Process(context.Background(), NewContext(nil))
	if !out.Success {
		t.Fatalf("expected second attempt to succeed, got %q", out.Message)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	always := &testStep{
		name: "always",
		processFn: func(c context.Context, pctx *Context) (*Outcome, error) {
			cancel()
			return Fail(KindUpstream, "down"), nil
		},
	}
	policy := RetryPolicy{MaxAttempts: 5, Backoff: BackoffConfig{InitialDelay: time.Hour, Factor: 1, MaxDelay: time.Hour}}
	out, _ := WithRetry(always, policy).Process(ctx, NewContext(nil))
	if out.Success {
		t.Fatal("expected failure")
	}
	if always.calls.Load() != 1 {
		t.Errorf("expected 1 call before cancellation stopped retries, got %d", always.calls.Load())
	}
}

func TestWithRetryKeepsIdentity(t *testing.T) {
	inner := newDataStep("named", nil)
	wrapped := WithRetry(inner, RetryPolicyNone())
	if wrapped.Name() != "named" || wrapped.Description() != inner.Description() {
		t.Errorf("wrapper changed identity: %s / %s", wrapped.Name(), wrapped.Description())
	}
	if UnwrapStep(wrapped) != Step(inner) {
		t.Error("UnwrapStep should reach the inner step")
	}
}
