// Package tui renders a live view of an in-flight run, fed by the engine's
// event channel.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cascadekit/cascade/internal/engine"
	"github.com/cascadekit/cascade/pkg/models"
)

// Status icons for item states.
const (
	iconRunning  = "[●]"
	iconDone     = "[✓]"
	iconFailed   = "[✗]"
	iconTimedOut = "[◷]"
	iconPending  = "[○]"
)

// itemState is the display state of one work item.
type itemState int

const (
	statePending itemState = iota
	stateRunning
	stateDone
	stateFailed
	stateTimedOut
)

// itemRow tracks one work item's progress for display.
type itemRow struct {
	id        string
	state     itemState
	waveIndex int
	message   string
	startedAt time.Time
	elapsed   time.Duration
}

// EventMsg delivers one engine event to the model.
type EventMsg engine.Event

// eventsClosedMsg signals that the engine closed its event channel.
type eventsClosedMsg struct{}

// RunModel is the bubbletea model for `cascade run --watch`.
type RunModel struct {
	events <-chan engine.Event

	spinner spinner.Model
	rows    []*itemRow
	index   map[string]*itemRow

	runID       string
	headline    string
	currentWave int
	done        bool
	finalStatus string
	quitting    bool
	width       int

	headerStyle lipgloss.Style
	rowStyle    lipgloss.Style
	dimStyle    lipgloss.Style
	okStyle     lipgloss.Style
	failStyle   lipgloss.Style
	warnStyle   lipgloss.Style
}

// NewRunModel creates a run view reading from the given event channel.
func NewRunModel(events <-chan engine.Event) *RunModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &RunModel{
		events:  events,
		spinner: sp,
		index:   make(map[string]*itemRow),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("7")),
		rowStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		okStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green
		failStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red
		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange
	}
}

// Init implements tea.Model.
func (m *RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent reads the next engine event off the channel.
func (m *RunModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg(ev)
	}
}

// Update implements tea.Model.
func (m *RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(engine.Event(msg))
		return m, m.waitForEvent()

	case eventsClosedMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one engine event into the display state.
func (m *RunModel) apply(ev engine.Event) {
	switch ev.Type {
	case engine.EventRunStarted:
		m.runID = ev.RunID
		m.headline = ev.Message

	case engine.EventWaveStarted:
		m.currentWave = ev.WaveIndex

	case engine.EventItemStarted:
		row := m.row(ev.ItemID)
		row.state = stateRunning
		row.startedAt = ev.Timestamp
		row.waveIndex = ev.WaveIndex

	case engine.EventItemCompleted, engine.EventItemFailed, engine.EventItemTimedOut:
		row := m.row(ev.ItemID)
		row.waveIndex = ev.WaveIndex
		row.message = ev.Message
		if !row.startedAt.IsZero() {
			row.elapsed = ev.Timestamp.Sub(row.startedAt)
		}
		switch ev.Status {
		case models.OutcomeSuccess:
			row.state = stateDone
		case models.OutcomeTimedOut:
			row.state = stateTimedOut
		default:
			row.state = stateFailed
		}

	case engine.EventRunCompleted:
		m.done = true
		m.finalStatus = ev.Message
	}
}

// row finds or creates the display row for an item.
func (m *RunModel) row(id string) *itemRow {
	if r, ok := m.index[id]; ok {
		return r
	}
	r := &itemRow{id: id, state: statePending}
	m.index[id] = r
	m.rows = append(m.rows, r)
	return r
}

// View implements tea.Model.
func (m *RunModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := "cascade run"
	if m.runID != "" {
		title += " " + m.runID
	}
	b.WriteString(m.headerStyle.Render(title))
	if m.headline != "" {
		b.WriteString(m.dimStyle.Render("  (" + m.headline + ")"))
	}
	b.WriteString("\n\n")

	if m.done {
		b.WriteString(m.finishLine())
	} else {
		b.WriteString(fmt.Sprintf("%s wave %d running", m.spinner.View(), m.currentWave))
	}
	b.WriteString("\n\n")

	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.dimStyle.Render("[q] quit"))
	return b.String()
}

// finishLine renders the final status summary.
func (m *RunModel) finishLine() string {
	switch models.MergeStatus(m.finalStatus) {
	case models.MergeSuccess:
		return m.okStyle.Render("run complete: success")
	case models.MergePartial:
		return m.warnStyle.Render("run complete: partial")
	case models.MergeFailed:
		return m.failStyle.Render("run complete: failed")
	default:
		return m.rowStyle.Render("run complete")
	}
}

// renderRow renders one item's progress line.
func (m *RunModel) renderRow(row *itemRow) string {
	var icon string
	switch row.state {
	case stateRunning:
		icon = m.okStyle.Render(iconRunning)
	case stateDone:
		icon = m.okStyle.Render(iconDone)
	case stateFailed:
		icon = m.failStyle.Render(iconFailed)
	case stateTimedOut:
		icon = m.warnStyle.Render(iconTimedOut)
	default:
		icon = m.dimStyle.Render(iconPending)
	}

	line := fmt.Sprintf("%s wave %d  %-20s", icon, row.waveIndex, truncate(row.id, 20))
	if row.elapsed > 0 {
		line += " " + m.dimStyle.Render(formatDuration(row.elapsed))
	}
	if row.state == stateFailed && row.message != "" {
		line += " " + m.failStyle.Render(truncate(row.message, 40))
	}
	return m.rowStyle.Render(line)
}

// truncate shortens a string to fit in a column.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
