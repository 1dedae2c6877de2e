// ABOUTME: Bridge connecting the workflow engine to the Bubble Tea message loop.
// ABOUTME: Provides EventBridge for event injection and a tea.Cmd that executes a run.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/saicharanallam/sigmachain/pipeline"
)

// Runner executes one workflow run. *pipeline.Engine satisfies it.
type Runner interface {
	Execute(ctx context.Context, input string) *pipeline.WorkflowRun
}

// EventBridge wraps a tea.Program's Send method for injecting engine events
// into the Bubble Tea message loop.
type EventBridge struct {
	send func(msg tea.Msg)
}

// NewEventBridge creates an EventBridge that sends messages via the given function.
// Typically called with program.Send as the argument.
func NewEventBridge(send func(msg tea.Msg)) *EventBridge {
	return &EventBridge{send: send}
}

// HandleEvent matches the pipeline.EngineConfig.EventHandler signature.
func (b *EventBridge) HandleEvent(evt pipeline.EngineEvent) {
	b.send(EngineEventMsg{Event: evt})
}

// RunWorkflowCmd returns a tea.Cmd that executes prompt and reports the
// finished run as a RunResultMsg. Cancelling ctx cancels the run.
func RunWorkflowCmd(ctx context.Context, runner Runner, prompt string) tea.Cmd {
	return func() tea.Msg {
		return RunResultMsg{Run: runner.Execute(ctx, prompt)}
	}
}
