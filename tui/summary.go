// ABOUTME: Plain-terminal summary of a finished workflow run rendered with lipgloss styles.
// ABOUTME: Used by `sigmachain run` when the interactive TUI is not requested.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/saicharanallam/sigmachain/pipeline"
)

// RenderSummary renders run as a short styled report.
func RenderSummary(run *pipeline.WorkflowRun) string {
	if run == nil {
		return FailedStyle.Render("no run")
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("SigmaChain workflow " + run.ID))
	b.WriteString("\n")

	field(&b, "Status", statusText(run.Status))
	field(&b, "Prompt", run.Input)
	if run.CompletedAt != nil {
		field(&b, "Duration", run.Duration.Round(time.Millisecond).String())
	}
	if run.Error != "" {
		field(&b, "Error", FailedStyle.Render(run.Error))
	}

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Steps"))
	b.WriteString("\n")
	if len(run.Steps) == 0 {
		b.WriteString(PendingStyle.Render("  no steps executed"))
		b.WriteString("\n")
	}
	for i, entry := range run.Steps {
		status := StepFailed
		if entry.Status == pipeline.TraceSuccess {
			status = StepCompleted
		}
		line := fmt.Sprintf("  %s %d. %s (%s)", status.Icon(), i+1, entry.StepName, entry.Duration.Round(time.Millisecond))
		if entry.Attempts > 1 {
			line += fmt.Sprintf(" after %d attempts", entry.Attempts)
		}
		b.WriteString(StyleForStatus(status).Render(line))
		if entry.Outcome != nil && entry.Outcome.Message != "" {
			b.WriteString(" ")
			b.WriteString(PendingStyle.Render(truncate(entry.Outcome.Message, 100)))
		}
		b.WriteString("\n")
	}

	if len(run.FinalResult) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Result"))
		b.WriteString("\n")
		writeResult(&b, run.FinalResult)
	}
	return b.String()
}

func field(b *strings.Builder, label, value string) {
	b.WriteString(LabelStyle.Render(label))
	b.WriteString(ValueStyle.Render(value))
	b.WriteString("\n")
}

func statusText(s pipeline.RunStatus) string {
	return StyleForRun(s).Render(string(s))
}

// writeResult prints scalar result fields first, then validation scores.
func writeResult(b *strings.Builder, result map[string]any) {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := result[k].(type) {
		case map[string]any:
			continue
		case string:
			field(b, k, truncate(v, 100))
		default:
			field(b, k, fmt.Sprint(v))
		}
	}
	if validation, ok := result["validation"].(map[string]any); ok {
		for _, k := range []string{"anatomical_score", "quality_score", "overall_score", "passed"} {
			if v, ok := validation[k]; ok {
				field(b, k, fmt.Sprint(v))
			}
		}
	}
}
