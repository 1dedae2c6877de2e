// ABOUTME: Renders a workflow run as a Markdown summary with a per-step table.
// ABOUTME: Final results and step data are listed with deterministic key ordering.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/saicharanallam/sigmachain/pipeline"
)

// Markdown renders run as a Markdown document.
func Markdown(run *pipeline.WorkflowRun) (string, error) {
	if run == nil {
		return "", fmt.Errorf("cannot render a nil run")
	}
	var b strings.Builder

	fmt.Fprintf(&b, "# Workflow %s\n\n", run.ID)
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Status | %s |\n", statusLabel(run.Status))
	fmt.Fprintf(&b, "| Prompt | %s |\n", cell(run.Input))
	fmt.Fprintf(&b, "| Started | %s |\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Fprintf(&b, "| Completed | %s |\n", run.CompletedAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "| Duration | %s |\n", formatDuration(run.Duration))
	}
	if run.Error != "" {
		fmt.Fprintf(&b, "| Error | %s |\n", cell(run.Error))
	}
	b.WriteString("\n")

	b.WriteString("## Steps\n\n")
	if len(run.Steps) == 0 {
		b.WriteString("_No steps were executed._\n\n")
	} else {
		b.WriteString("| # | Step | Status | Duration | Attempts | Message |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for i, entry := range run.Steps {
			msg := ""
			if entry.Outcome != nil {
				msg = entry.Outcome.Message
			}
			attempts := entry.Attempts
			if attempts == 0 {
				attempts = 1
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s |\n",
				i+1, cell(entry.StepName), entry.Status, formatDuration(entry.Duration), attempts, cell(msg))
		}
		b.WriteString("\n")
	}

	if failed, ok := run.FailedStep(); ok && failed.Outcome != nil {
		b.WriteString("## Failure\n\n")
		fmt.Fprintf(&b, "Step `%s` failed", failed.StepName)
		if failed.Outcome.Kind != pipeline.KindNone {
			fmt.Fprintf(&b, " (%s)", failed.Outcome.Kind)
		}
		fmt.Fprintf(&b, ": %s\n\n", failed.Outcome.Message)
	}

	if len(run.FinalResult) > 0 {
		b.WriteString("## Final Result\n\n")
		writeValues(&b, run.FinalResult, "")
		b.WriteString("\n")
	}
	return b.String(), nil
}

// writeValues writes a nested bullet list, one key per line.
func writeValues(b *strings.Builder, values map[string]any, indent string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := values[k].(type) {
		case map[string]any:
			fmt.Fprintf(b, "%s- **%s**:\n", indent, k)
			writeValues(b, v, indent+"  ")
		case []any:
			fmt.Fprintf(b, "%s- **%s**:\n", indent, k)
			for _, item := range v {
				fmt.Fprintf(b, "%s  - %s\n", indent, inline(fmt.Sprint(item)))
			}
		case []string:
			fmt.Fprintf(b, "%s- **%s**:\n", indent, k)
			for _, item := range v {
				fmt.Fprintf(b, "%s  - %s\n", indent, inline(item))
			}
		default:
			fmt.Fprintf(b, "%s- **%s**: %s\n", indent, k, inline(fmt.Sprint(v)))
		}
	}
}

func statusLabel(s pipeline.RunStatus) string {
	switch s {
	case pipeline.StatusCompleted:
		return "✅ completed"
	case pipeline.StatusFailed:
		return "❌ failed"
	case pipeline.StatusError:
		return "💥 error"
	case pipeline.StatusCancelled:
		return "⏹ cancelled"
	default:
		return string(s)
	}
}

// cell makes s safe inside a single table cell.
func cell(s string) string {
	s = inline(s)
	return strings.ReplaceAll(s, "|", `\|`)
}

// inline collapses s onto one line.
func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
