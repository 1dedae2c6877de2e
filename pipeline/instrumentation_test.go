// ABOUTME: Tests for engine instrumentation: Prometheus counters and OpenTelemetry spans.
// ABOUTME: Uses an unregistered metrics set and an in-memory span recorder.
package pipeline

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMetricsRecordRunsAndSteps(t *testing.T) {
	metrics := NewMetrics(nil)
	e := mustEngine(t, EngineConfig{Metrics: metrics}, newDataStep("a", nil), newFailStep("b", "down"))
	e.Execute(context.Background(), "x")
	e.Execute(context.Background(), "y")

	if got := testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("failed")); got != 2 {
		t.Errorf("failed runs = %v", got)
	}
	if got := testutil.ToFloat64(metrics.StepExecutions.WithLabelValues("a", "success")); got != 2 {
		t.Errorf("step a successes = %v", got)
	}
	if got := testutil.ToFloat64(metrics.StepExecutions.WithLabelValues("b", "failed")); got != 2 {
		t.Errorf("step b failures = %v", got)
	}
	if got := testutil.ToFloat64(metrics.ActiveRuns); got != 0 {
		t.Errorf("active runs = %v", got)
	}
	if got := testutil.ToFloat64(metrics.HistorySize); got != 2 {
		t.Errorf("history size = %v", got)
	}
}

func TestMetricsRegisterWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "sigmachain_workflow_runs_total" {
			found = true
		}
	}
	if !found {
		t.Error("runs counter not registered")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.runStarted()
	m.stepRetried("x")
	m.stepFinished(TraceEntry{StepName: "x", Status: TraceSuccess})
	m.runFinished(&WorkflowRun{Status: StatusCompleted}, 1)
}

func TestSpansPerRunAndStep(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	e := mustEngine(t, EngineConfig{Tracer: provider.Tracer("test")},
		newDataStep("a", nil), newFailStep("b", "down"))
	e.Execute(context.Background(), "x")

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans (run + 2 steps), got %d", len(spans))
	}
	var runSpan sdktrace.ReadOnlySpan
	stepSpans := 0
	for _, s := range spans {
		switch s.Name() {
		case "workflow.run":
			runSpan = s
		case "workflow.step":
			stepSpans++
		}
	}
	if runSpan == nil || stepSpans != 2 {
		t.Fatalf("unexpected span names")
	}
	if runSpan.Status().Code != codes.Error {
		t.Errorf("failed run span status = %v", runSpan.Status().Code)
	}
	for _, s := range spans {
		if s.Name() == "workflow.step" && s.Parent().SpanID() != runSpan.SpanContext().SpanID() {
			t.Error("step span is not a child of the run span")
		}
	}
}
