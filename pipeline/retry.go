// ABOUTME: Retry policies with exponential backoff and the WithRetry step wrapper.
// ABOUTME: Provides preset policies (none, standard, aggressive, linear, patient) selectable by name.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

const attemptsMetadataKey = "attempts"

// RetryPolicy controls how many times a step is attempted on failure.
type RetryPolicy struct {
	MaxAttempts int // minimum 1 (1 = no retries)
	Backoff     BackoffConfig
	ShouldRetry func(*Outcome) bool
}

// BackoffConfig controls delay timing between retry attempts.
type BackoffConfig struct {
	InitialDelay time.Duration // default 200ms
	Factor       float64       // default 2.0
	MaxDelay     time.Duration // default 60s
	Jitter       bool          // default true
}

// DelayForAttempt calculates the delay for a given attempt number (0-indexed).
// The formula is: InitialDelay * Factor^attempt, capped at MaxDelay.
// If Jitter is enabled, the delay is randomized in [0, calculated_delay].
func (b BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	baseNanos := float64(b.InitialDelay.Nanoseconds()) * math.Pow(b.Factor, float64(attempt))
	maxNanos := float64(b.MaxDelay.Nanoseconds())
	delayNanos := math.Min(baseNanos, maxNanos)

	if b.Jitter {
		delayNanos = rand.Float64() * delayNanos
	}

	return time.Duration(int64(delayNanos))
}

// RetryPolicyNone returns a policy with no retries (single attempt).
func RetryPolicyNone() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Backoff:     BackoffConfig{InitialDelay: 200 * time.Millisecond, Factor: 2.0, MaxDelay: 60 * time.Second},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyStandard returns a policy with 3 attempts and exponential backoff.
// Remote image generation is slow, so fewer attempts than a chat call would get.
func RetryPolicyStandard() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     BackoffConfig{InitialDelay: 500 * time.Millisecond, Factor: 2.0, MaxDelay: 30 * time.Second, Jitter: true},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyAggressive returns a policy with 5 attempts and a short initial delay.
func RetryPolicyAggressive() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Backoff:     BackoffConfig{InitialDelay: 200 * time.Millisecond, Factor: 2.0, MaxDelay: 30 * time.Second, Jitter: true},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyLinear returns a policy with 3 attempts and constant delay (factor=1.0).
func RetryPolicyLinear() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     BackoffConfig{InitialDelay: time.Second, Factor: 1.0, MaxDelay: 30 * time.Second},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyPatient returns a policy with 3 attempts, high initial delay, and steep backoff.
func RetryPolicyPatient() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     BackoffConfig{InitialDelay: 2 * time.Second, Factor: 3.0, MaxDelay: 60 * time.Second, Jitter: true},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyByName maps a preset name to its policy. The empty string selects none.
func RetryPolicyByName(name string) (RetryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return RetryPolicyNone(), nil
	case "standard":
		return RetryPolicyStandard(), nil
	case "aggressive":
		return RetryPolicyAggressive(), nil
	case "linear":
		return RetryPolicyLinear(), nil
	case "patient":
		return RetryPolicyPatient(), nil
	default:
		return RetryPolicy{}, fmt.Errorf("unknown retry policy %q (want none, standard, aggressive, linear, or patient)", name)
	}
}

// DefaultShouldRetry retries every failure except missing or invalid input,
// which no amount of waiting will fix.
func DefaultShouldRetry(outcome *Outcome) bool {
	return outcome != nil && !outcome.Success && outcome.Kind != KindPrecondition
}

// retryObserver is notified before each retry sleep.
type retryObserver func(stepName string, attempt int, outcome *Outcome, delay time.Duration)

type retryObserverKey struct{}

func withRetryObserver(ctx context.Context, fn retryObserver) context.Context {
	return context.WithValue(ctx, retryObserverKey{}, fn)
}

func notifyRetry(ctx context.Context, stepName string, attempt int, outcome *Outcome, delay time.Duration) {
	if fn, ok := ctx.Value(retryObserverKey{}).(retryObserver); ok && fn != nil {
		fn(stepName, attempt, outcome, delay)
	}
}

// retryStep re-runs a failed step according to its policy.
type retryStep struct {
	inner  Step
	policy RetryPolicy
}

// WithRetry wraps step so failed outcomes are retried under policy. The
// returned step keeps the wrapped step's name, description, and key contract.
func WithRetry(step Step, policy RetryPolicy) Step {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.ShouldRetry == nil {
		policy.ShouldRetry = DefaultShouldRetry
	}
	return &retryStep{inner: step, policy: policy}
}

func (r *retryStep) Name() string        { return r.inner.Name() }
func (r *retryStep) Description() string { return r.inner.Description() }
func (r *retryStep) Unwrap() Step        { return r.inner }

// Process attempts the wrapped step until it succeeds, the policy declines a
// retry, attempts run out, or ctx is done.
func (r *retryStep) Process(ctx context.Context, pctx *Context) (*Outcome, error) {
	var last *Outcome
	attempt := 0
	for attempt < r.policy.MaxAttempts {
		attempt++
		last = safeProcess(ctx, r.inner, pctx)
		if last.Success || attempt >= r.policy.MaxAttempts || !r.policy.ShouldRetry(last) {
			break
		}
		delay := r.policy.Backoff.DelayForAttempt(attempt - 1)
		notifyRetry(ctx, r.Name(), attempt, last, delay)
		if err := sleepWithContext(ctx, delay); err != nil {
			break
		}
	}

	metadata := copyMap(last.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata[attemptsMetadataKey] = attempt
	out := last.Clone()
	out.Metadata = metadata
	return out, nil
}

// sleepWithContext waits for the given duration or until the context is cancelled.
// Returns nil if the full duration elapsed, or the context error if cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
