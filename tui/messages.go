// ABOUTME: Bubble Tea message types used in the TUI message loop.
// ABOUTME: Each type wraps workflow engine output for the tea.Msg interface.
package tui

import "github.com/saicharanallam/sigmachain/pipeline"

// EngineEventMsg wraps a pipeline.EngineEvent for the Bubble Tea message loop.
type EngineEventMsg struct {
	Event pipeline.EngineEvent
}

// RunResultMsg signals that the workflow run has finished.
type RunResultMsg struct {
	Run *pipeline.WorkflowRun
}
