// ABOUTME: Tests for Markdown, HTML, and YAML rendering of workflow runs.
// ABOUTME: Uses hand-built runs so output can be checked without executing an engine.
package report

import (
	"strings"
	"testing"
	"time"

	"github.com/saicharanallam/sigmachain/pipeline"
	"gopkg.in/yaml.v3"
)

func completedRun() *pipeline.WorkflowRun {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	done := start.Add(2500 * time.Millisecond)
	return &pipeline.WorkflowRun{
		ID:        "workflow_01abc",
		Input:     "a cat | on a mat",
		StartedAt: start,
		Status:    pipeline.StatusCompleted,
		Steps: []pipeline.TraceEntry{
			{
				StepName:  "prompt_enhancer",
				Status:    pipeline.TraceSuccess,
				Outcome:   pipeline.Succeed("Prompt enhanced successfully", map[string]any{"enhanced_prompt": "a fluffy cat"}),
				Timestamp: start.Add(time.Second),
				Duration:  time.Second,
			},
			{
				StepName:  "image_generator",
				Status:    pipeline.TraceSuccess,
				Outcome:   pipeline.Succeed("Image generated", map[string]any{"image_url": "/static/images/x.png"}),
				Timestamp: done,
				Duration:  1500 * time.Millisecond,
				Attempts:  2,
			},
		},
		CompletedAt:     &done,
		Duration:        2500 * time.Millisecond,
		DurationSeconds: 2.5,
		FinalResult: map[string]any{
			"original_prompt": "a cat | on a mat",
			"image_url":       "/static/images/x.png",
			"validation":      map[string]any{"overall_score": 88, "issues": []any{"none"}},
		},
	}
}

func failedRun() *pipeline.WorkflowRun {
	run := completedRun()
	run.Status = pipeline.StatusFailed
	run.FinalResult = nil
	run.Steps[1].Status = pipeline.TraceFailed
	run.Steps[1].Outcome = pipeline.Fail(pipeline.KindUpstream, "Error generating image: quota")
	return run
}

func TestMarkdownCompletedRun(t *testing.T) {
	md, err := Markdown(completedRun())
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	for _, want := range []string{
		"# Workflow workflow_01abc",
		"✅ completed",
		`a cat \| on a mat`,
		"| 1 | prompt_enhancer | success | 1s | 1 | Prompt enhanced successfully |",
		"| 2 | image_generator | success | 1.5s | 2 | Image generated |",
		"## Final Result",
		"- **image_url**: /static/images/x.png",
		"- **validation**:",
		"  - **overall_score**: 88",
		"    - none",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Failure") {
		t.Error("completed run should not have a failure section")
	}
}

func TestMarkdownFailedRun(t *testing.T) {
	md, err := Markdown(failedRun())
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(md, "❌ failed") {
		t.Errorf("missing failed status:\n%s", md)
	}
	if !strings.Contains(md, "Step `image_generator` failed (upstream): Error generating image: quota") {
		t.Errorf("missing failure section:\n%s", md)
	}
	if strings.Contains(md, "## Final Result") {
		t.Error("failed run should not list a final result")
	}
}

func TestMarkdownEmptyRun(t *testing.T) {
	run := &pipeline.WorkflowRun{ID: "workflow_empty", Status: pipeline.StatusCompleted}
	md, err := Markdown(run)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(md, "_No steps were executed._") {
		t.Errorf("expected empty steps note:\n%s", md)
	}
}

func TestRenderNilRun(t *testing.T) {
	if _, err := Markdown(nil); err == nil {
		t.Error("Markdown(nil) should error")
	}
	if _, err := HTML(nil); err == nil {
		t.Error("HTML(nil) should error")
	}
	if _, err := YAML(nil); err == nil {
		t.Error("YAML(nil) should error")
	}
}

func TestHTMLRendersTables(t *testing.T) {
	page, err := HTML(completedRun())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	html := string(page)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Workflow workflow_01abc</title>",
		"<h1>Workflow workflow_01abc</h1>",
		"<table>",
		"<td>prompt_enhancer</td>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestHTMLDropsRawHTML(t *testing.T) {
	run := completedRun()
	run.Input = "<script>alert(1)</script>"
	page, err := HTML(run)
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if strings.Contains(string(page), "<script>") {
		t.Error("raw HTML from run data must not reach the page")
	}
}

func TestYAMLExport(t *testing.T) {
	out, err := YAML(failedRun())
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}

	var doc YamlRun
	if err := yaml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, out)
	}
	if doc.WorkflowID != "workflow_01abc" || doc.Status != "failed" {
		t.Errorf("header = %+v", doc)
	}
	if doc.Duration != "2.5s" {
		t.Errorf("duration = %q", doc.Duration)
	}
	if len(doc.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(doc.Steps))
	}
	second := doc.Steps[1]
	if second.Status != "failed" || second.Kind != "upstream" || second.Attempts != 2 {
		t.Errorf("second step = %+v", second)
	}
	if doc.Steps[0].Data["enhanced_prompt"] != "a fluffy cat" {
		t.Errorf("first step data = %v", doc.Steps[0].Data)
	}
}
