// ABOUTME: Top-level Bubble Tea AppModel that runs one workflow and renders its progress.
// ABOUTME: Implements tea.Model and routes engine events to the step list, event log, and status bar.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/saicharanallam/sigmachain/pipeline"
)

// AppModel is the top-level Bubble Tea model for `sigmachain run --tui`.
type AppModel struct {
	steps     StepListModel
	log       LogPanelModel
	statusBar StatusBarModel

	runner Runner
	prompt string
	ctx    context.Context // cancellation context for the run

	done      bool
	run       *pipeline.WorkflowRun
	completed int
	width     int
	height    int
}

// NewAppModel creates an AppModel that will execute prompt through runner
// over the named steps.
func NewAppModel(ctx context.Context, runner Runner, prompt string, stepNames []string) AppModel {
	return AppModel{
		steps:     NewStepListModel(stepNames),
		log:       NewLogPanelModel(200),
		statusBar: NewStatusBarModel(len(stepNames)),
		runner:    runner,
		prompt:    prompt,
		ctx:       ctx,
	}
}

// Run returns the finished run, or nil while it is still executing.
func (m AppModel) Run() *pipeline.WorkflowRun {
	return m.run
}

// Done reports whether the run has finished.
func (m AppModel) Done() bool {
	return m.done
}

// Init implements tea.Model. Starts the run and the spinner.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		RunWorkflowCmd(m.ctx, m.runner, m.prompt),
		m.steps.Tick,
	)
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EngineEventMsg:
		return m.handleEngineEvent(msg)

	case RunResultMsg:
		return m.handleRunResult(msg)

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.steps, cmd = m.steps.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// handleEngineEvent routes lifecycle events to the sub-panels.
func (m AppModel) handleEngineEvent(msg EngineEventMsg) (tea.Model, tea.Cmd) {
	evt := msg.Event
	m.log.Append(evt)

	switch evt.Type {
	case pipeline.EventRunStarted:
		total, _ := evt.Data["steps"].(int)
		m.statusBar.Start(evt.RunID, total)

	case pipeline.EventStepStarted:
		m.steps.SetRunning(evt.Step)
		m.statusBar.SetActiveStep(evt.Step)

	case pipeline.EventStepRetrying:
		attempt, _ := evt.Data["attempt"].(int)
		message, _ := evt.Data["message"].(string)
		m.steps.SetRetrying(evt.Step, attempt, message)

	case pipeline.EventStepCompleted, pipeline.EventStepFailed:
		message, _ := evt.Data["message"].(string)
		status := StepCompleted
		if evt.Type == pipeline.EventStepFailed {
			status = StepFailed
		} else {
			m.completed++
			m.statusBar.SetCompleted(m.completed)
		}
		m.steps.SetFinished(evt.Step, status, message, durationOf(evt.Data["duration"]))
		m.statusBar.SetActiveStep("")

	default:
		if evt.IsTerminal() {
			m.statusBar.Stop()
		}
	}
	return m, nil
}

// handleRunResult reconciles the step list with the archived trace, which is
// authoritative even if events were dropped.
func (m AppModel) handleRunResult(msg RunResultMsg) (tea.Model, tea.Cmd) {
	m.done = true
	m.run = msg.Run
	m.statusBar.Stop()
	m.statusBar.SetActiveStep("")

	unstarted := StepSkipped
	if msg.Run != nil {
		completed := 0
		for _, entry := range msg.Run.Steps {
			status := statusForEntry(entry, msg.Run.Status)
			if status == StepCompleted {
				completed++
			}
			message := ""
			if entry.Outcome != nil {
				message = entry.Outcome.Message
			}
			m.steps.SetFinished(entry.StepName, status, message, entry.Duration)
		}
		m.completed = completed
		m.statusBar.SetCompleted(completed)
		unstarted = unstartedStatus(msg.Run.Status)
	}
	m.steps.settlePending(unstarted)
	return m, nil
}

// View implements tea.Model.
func (m AppModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("SigmaChain"))
	b.WriteString(" ")
	b.WriteString(ValueStyle.Render(truncate(m.prompt, 60)))
	b.WriteString("\n\n")

	m.steps.SetWidth(m.width)
	b.WriteString(m.steps.View())
	b.WriteString("\n\n")

	if m.width >= 40 && m.height >= 10 {
		logHeight := m.height - len(m.steps.rows) - 8
		if logHeight < 5 {
			logHeight = 5
		}
		m.log.SetSize(m.width, logHeight)
		b.WriteString(m.log.View())
		b.WriteString("\n")
	}

	m.statusBar.SetWidth(m.width)
	status := m.statusBar.View()
	if m.done {
		status += " " + m.resultLine()
	}
	b.WriteString(status)
	return b.String()
}

// resultLine summarizes the finished run.
func (m AppModel) resultLine() string {
	if m.run == nil {
		return FailedStyle.Render("NO RESULT")
	}
	switch m.run.Status {
	case pipeline.StatusCompleted:
		return CompletedStyle.Render("DONE") + PendingStyle.Render(" (enter to exit)")
	default:
		return StyleForRun(m.run.Status).Render(fmt.Sprintf("%s: %s", strings.ToUpper(string(m.run.Status)), m.run.Error))
	}
}

// durationOf reads a duration from event data; anything else is zero.
func durationOf(v any) time.Duration {
	d, _ := v.(time.Duration)
	return d
}
