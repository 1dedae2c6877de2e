// ABOUTME: Prometheus instruments for workflow runs, step executions, retries, and history size.
// ABOUTME: A nil *Metrics is valid and records nothing.
package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	StepExecutions *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	StepRetries    *prometheus.CounterVec
	ActiveRuns     prometheus.Gauge
	HistorySize    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigmachain_workflow_runs_total",
				Help: "Total number of workflow runs by final status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigmachain_workflow_run_duration_seconds",
				Help:    "Duration of workflow runs",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"status"},
		),
		StepExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigmachain_step_executions_total",
				Help: "Total number of step executions by step and status",
			},
			[]string{"step", "status"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigmachain_step_duration_seconds",
				Help:    "Duration of step executions",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"step"},
		),
		StepRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigmachain_step_retries_total",
				Help: "Total number of step retries",
			},
			[]string{"step"},
		),
		ActiveRuns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sigmachain_workflow_runs_active",
			Help: "Number of workflow runs currently executing",
		}),
		HistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sigmachain_history_runs",
			Help: "Number of runs retained in history",
		}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

func (m *Metrics) runFinished(run *WorkflowRun, historySize int) {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
	status := string(run.Status)
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(run.Duration.Seconds())
	m.HistorySize.Set(float64(historySize))
}

func (m *Metrics) stepFinished(entry TraceEntry) {
	if m == nil {
		return
	}
	m.StepExecutions.WithLabelValues(entry.StepName, string(entry.Status)).Inc()
	m.StepDuration.WithLabelValues(entry.StepName).Observe(entry.Duration.Seconds())
}

func (m *Metrics) stepRetried(step string) {
	if m == nil {
		return
	}
	m.StepRetries.WithLabelValues(step).Inc()
}
