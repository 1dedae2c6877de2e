// ABOUTME: Step list panel showing each workflow step with its status, duration, and message.
// ABOUTME: The running step is marked with an animated bubbles spinner.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StepRow is the display state of one step.
type StepRow struct {
	Name     string
	Status   StepStatus
	Message  string
	Duration time.Duration
	Attempt  int // latest retry attempt that failed, 0 when none
}

// StepListModel renders the ordered steps of a run.
type StepListModel struct {
	rows    []StepRow
	spinner spinner.Model
	width   int
}

// NewStepListModel creates a list with every step pending.
func NewStepListModel(names []string) StepListModel {
	rows := make([]StepRow, len(names))
	for i, n := range names {
		rows[i] = StepRow{Name: n, Status: StepPending}
	}
	return StepListModel{
		rows:    rows,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(RunningStyle)),
	}
}

// Rows returns a copy of the rows in order.
func (m StepListModel) Rows() []StepRow {
	return append([]StepRow(nil), m.rows...)
}

// Row returns the row for name.
func (m StepListModel) Row(name string) (StepRow, bool) {
	for _, r := range m.rows {
		if r.Name == name {
			return r, true
		}
	}
	return StepRow{}, false
}

// SetWidth sets the rendering width.
func (m *StepListModel) SetWidth(w int) {
	m.width = w
}

// row returns the row for name, appending one for steps inserted after the
// list was built.
func (m *StepListModel) row(name string) *StepRow {
	for i := range m.rows {
		if m.rows[i].Name == name {
			return &m.rows[i]
		}
	}
	m.rows = append(m.rows, StepRow{Name: name, Status: StepPending})
	return &m.rows[len(m.rows)-1]
}

// SetRunning marks name as executing.
func (m *StepListModel) SetRunning(name string) {
	m.row(name).Status = StepRunning
}

// SetRetrying records that attempt of name failed and will be retried.
func (m *StepListModel) SetRetrying(name string, attempt int, message string) {
	r := m.row(name)
	r.Status = StepRunning
	r.Attempt = attempt
	r.Message = message
}

// SetFinished records the final state of name.
func (m *StepListModel) SetFinished(name string, status StepStatus, message string, d time.Duration) {
	r := m.row(name)
	r.Status = status
	r.Message = message
	r.Duration = d
}

// settlePending gives every step that never started its final state.
func (m *StepListModel) settlePending(status StepStatus) {
	for i := range m.rows {
		if m.rows[i].Status == StepPending {
			m.rows[i].Status = status
		}
	}
}

// Tick starts the spinner animation.
func (m StepListModel) Tick() tea.Msg {
	return m.spinner.Tick()
}

// Update advances the spinner.
func (m StepListModel) Update(msg tea.Msg) (StepListModel, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders one line per step.
func (m StepListModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("STEPS"))
	for i, r := range m.rows {
		b.WriteString("\n")
		marker := r.Status.Icon()
		if r.Status == StepRunning {
			marker = "[" + m.spinner.View() + "]"
		}
		line := fmt.Sprintf("%s %d. %s", marker, i+1, r.Name)
		if r.Duration > 0 {
			line += fmt.Sprintf(" (%s)", r.Duration.Round(time.Millisecond))
		}
		if r.Attempt > 0 && r.Status == StepRunning {
			line += fmt.Sprintf(" retry after attempt %d", r.Attempt)
		}
		line = StyleForStatus(r.Status).Render(line)
		if r.Message != "" {
			line += " " + PendingStyle.Render(truncate(r.Message, m.messageWidth(line)))
		}
		b.WriteString(line)
	}
	return b.String()
}

// messageWidth is the room left for a message after the styled prefix.
func (m StepListModel) messageWidth(prefix string) int {
	if m.width <= 0 {
		return 80
	}
	w := m.width - len([]rune(prefix)) - 1
	if w < 10 {
		w = 10
	}
	return w
}

// truncate shortens s to at most n runes, adding an ellipsis when cut.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
