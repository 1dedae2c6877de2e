// ABOUTME: Implements a scrollable event log panel using the bubbles viewport component.
// ABOUTME: Displays engine events with color-coded formatting based on event type.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/saicharanallam/sigmachain/pipeline"
)

// LogPanelModel is a scrollable event log that displays engine events.
type LogPanelModel struct {
	entries  []pipeline.EngineEvent
	max      int
	viewport viewport.Model
	width    int
	height   int
}

// NewLogPanelModel creates a new log panel with a maximum number of entries.
// If maxEntries is <= 0, it defaults to 200.
func NewLogPanelModel(maxEntries int) LogPanelModel {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return LogPanelModel{
		entries:  make([]pipeline.EngineEvent, 0, maxEntries),
		max:      maxEntries,
		viewport: viewport.New(80, 10),
	}
}

// Append adds an event to the log, evicting the oldest entry if at capacity.
func (m *LogPanelModel) Append(evt pipeline.EngineEvent) {
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, evt)
	m.syncViewport()
}

// Len returns the number of entries in the log.
func (m LogPanelModel) Len() int {
	return len(m.entries)
}

// SetSize sets the available dimensions and updates the viewport.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// border takes two columns and two rows, the title one more row
	vpWidth := w - 2
	vpHeight := h - 3
	if vpWidth < 1 {
		vpWidth = 1
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.syncViewport()
}

// View renders the log panel.
func (m LogPanelModel) View() string {
	content := "No events yet"
	if len(m.entries) > 0 {
		content = m.viewport.View()
	}
	rendered := TitleStyle.Render("EVENT LOG") + "\n" + content
	if m.width <= 2 || m.height <= 2 {
		return rendered
	}
	return BorderStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(rendered)
}

// syncViewport rebuilds the viewport content from entries and scrolls to the bottom.
func (m *LogPanelModel) syncViewport() {
	lines := make([]string, 0, len(m.entries))
	for _, evt := range m.entries {
		lines = append(lines, formatEntry(evt))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// formatEntry formats a single engine event as a log line.
func formatEntry(evt pipeline.EngineEvent) string {
	parts := []string{
		LogTimestampStyle.Render(evt.Timestamp.Format("15:04:05")),
		eventStyle(evt.Type).Render(string(evt.Type)),
	}
	if evt.Step != "" {
		parts = append(parts, fmt.Sprintf("[%s]", evt.Step))
	}
	if len(evt.Data) > 0 {
		parts = append(parts, formatData(evt.Data))
	}
	return strings.Join(parts, " ")
}

// formatData formats event data as compact sorted key=value pairs.
func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(data))
	for _, k := range keys {
		v := data[k]
		if d, ok := v.(time.Duration); ok {
			v = d.Round(time.Millisecond)
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, " ")
}

// eventStyle returns the lipgloss style for an event type.
func eventStyle(evtType pipeline.EngineEventType) lipgloss.Style {
	switch evtType {
	case pipeline.EventRunCompleted, pipeline.EventStepCompleted:
		return LogSuccessStyle
	case pipeline.EventRunFailed, pipeline.EventRunError, pipeline.EventRunCancelled, pipeline.EventStepFailed:
		return LogErrorStyle
	case pipeline.EventStepRetrying:
		return LogRetryStyle
	default:
		return LogEventStyle
	}
}
