// ABOUTME: Implements a single-line status bar for the bottom of the TUI showing run progress.
// ABOUTME: Displays the run id, elapsed time, step completion count, and the active step.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel displays run status in a single line.
type StatusBarModel struct {
	runID          string
	startTime      time.Time
	endTime        time.Time
	totalSteps     int
	completedSteps int
	activeStep     string
	width          int
}

// NewStatusBarModel creates a StatusBarModel for a pipeline of totalSteps steps.
func NewStatusBarModel(totalSteps int) StatusBarModel {
	return StatusBarModel{totalSteps: totalSteps}
}

// Start records the run id and start time.
func (m *StatusBarModel) Start(runID string, totalSteps int) {
	m.runID = runID
	m.totalSteps = totalSteps
	m.startTime = time.Now()
}

// Stop freezes the elapsed time.
func (m *StatusBarModel) Stop() {
	if m.endTime.IsZero() {
		m.endTime = time.Now()
	}
}

// SetCompleted updates the completed step count.
func (m *StatusBarModel) SetCompleted(n int) {
	m.completedSteps = n
}

// SetActiveStep sets the currently running step name.
func (m *StatusBarModel) SetActiveStep(name string) {
	m.activeStep = name
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// Elapsed returns the time since Start, frozen at Stop, or zero if not started.
func (m StatusBarModel) Elapsed() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	if !m.endTime.IsZero() {
		return m.endTime.Sub(m.startTime)
	}
	return time.Since(m.startTime)
}

// formatElapsed formats a duration as "12s" or "2m30s".
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	active := m.activeStep
	if active == "" {
		active = "idle"
	}
	runID := m.runID
	if runID == "" {
		runID = "starting"
	}

	content := fmt.Sprintf("Run: %s | Elapsed: %s | %d/%d steps | Active: %s",
		runID, formatElapsed(m.Elapsed()), m.completedSteps, m.totalSteps, active)

	if m.width <= 0 {
		return StatusBarStyle.Render(content)
	}
	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
