// ABOUTME: Defines lipgloss styles for the TUI panels, step status colors, and log formatting.
// ABOUTME: Maps step row states and workflow run statuses to their display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/saicharanallam/sigmachain/pipeline"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Status colors
	PendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	SkippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	CancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Strikethrough(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true)

	// Log event colors
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogEventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	LogRetryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Summary labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(20)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// StyleForStatus returns the style for a step row.
func StyleForStatus(status StepStatus) lipgloss.Style {
	switch status {
	case StepRunning:
		return RunningStyle
	case StepCompleted:
		return CompletedStyle
	case StepFailed:
		return FailedStyle
	case StepSkipped:
		return SkippedStyle
	case StepCancelled:
		return CancelledStyle
	default:
		return PendingStyle
	}
}

// StyleForRun returns the style for a workflow run status. Engine faults are
// set apart from step failures.
func StyleForRun(status pipeline.RunStatus) lipgloss.Style {
	switch status {
	case pipeline.StatusCompleted:
		return CompletedStyle
	case pipeline.StatusRunning:
		return RunningStyle
	case pipeline.StatusCancelled:
		return CancelledStyle.Strikethrough(false)
	case pipeline.StatusError:
		return ErrorStyle
	default:
		return FailedStyle
	}
}
