// ABOUTME: Exports a workflow run as a YAML document for archiving or diffing.
// ABOUTME: Durations are written as human-readable strings rather than nanoseconds.
package report

import (
	"fmt"
	"time"

	"github.com/saicharanallam/sigmachain/pipeline"
	"gopkg.in/yaml.v3"
)

// YamlStep is the serializable form of one trace entry.
type YamlStep struct {
	Name      string         `yaml:"name"`
	Status    string         `yaml:"status"`
	Kind      string         `yaml:"kind,omitempty"`
	Message   string         `yaml:"message,omitempty"`
	Timestamp string         `yaml:"timestamp"`
	Duration  string         `yaml:"duration"`
	Attempts  int            `yaml:"attempts,omitempty"`
	Data      map[string]any `yaml:"data,omitempty"`
	Metadata  map[string]any `yaml:"metadata,omitempty"`
}

// YamlRun is the serializable form of a workflow run.
type YamlRun struct {
	WorkflowID  string         `yaml:"workflow_id"`
	UserPrompt  string         `yaml:"user_prompt"`
	Status      string         `yaml:"status"`
	StartedAt   string         `yaml:"started_at"`
	CompletedAt string         `yaml:"completed_at,omitempty"`
	Duration    string         `yaml:"duration,omitempty"`
	Error       string         `yaml:"error,omitempty"`
	Steps       []YamlStep     `yaml:"steps"`
	FinalResult map[string]any `yaml:"final_result,omitempty"`
}

// YAML exports run as a YAML document.
func YAML(run *pipeline.WorkflowRun) ([]byte, error) {
	if run == nil {
		return nil, fmt.Errorf("cannot export a nil run")
	}
	doc := YamlRun{
		WorkflowID:  run.ID,
		UserPrompt:  run.Input,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt.Format(time.RFC3339Nano),
		Error:       run.Error,
		Steps:       make([]YamlStep, 0, len(run.Steps)),
		FinalResult: run.FinalResult,
	}
	if run.CompletedAt != nil {
		doc.CompletedAt = run.CompletedAt.Format(time.RFC3339Nano)
		doc.Duration = run.Duration.String()
	}
	for _, entry := range run.Steps {
		step := YamlStep{
			Name:      entry.StepName,
			Status:    string(entry.Status),
			Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
			Duration:  entry.Duration.String(),
			Attempts:  entry.Attempts,
		}
		if o := entry.Outcome; o != nil {
			step.Kind = string(o.Kind)
			step.Message = o.Message
			step.Data = o.Data
			step.Metadata = o.Metadata
		}
		doc.Steps = append(doc.Steps, step)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	return out, nil
}
