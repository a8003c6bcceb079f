package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cascadekit/cascade/internal/engine"
	"github.com/cascadekit/cascade/pkg/models"
)

func apply(t *testing.T, m *RunModel, ev engine.Event) *RunModel {
	t.Helper()
	next, _ := m.Update(EventMsg(ev))
	model, ok := next.(*RunModel)
	if !ok {
		t.Fatalf("Update returned %T, want *RunModel", next)
	}
	return model
}

func TestRunModelTracksItemLifecycle(t *testing.T) {
	ch := make(chan engine.Event)
	m := NewRunModel(ch)

	start := time.Now()
	m = apply(t, m, engine.Event{Type: engine.EventRunStarted, RunID: "ab12cd34", Message: "3 items in 2 waves"})
	m = apply(t, m, engine.Event{Type: engine.EventWaveStarted, WaveIndex: 0})
	m = apply(t, m, engine.Event{Type: engine.EventItemStarted, ItemID: "a", Timestamp: start})
	m = apply(t, m, engine.Event{
		Type: engine.EventItemCompleted, ItemID: "a",
		Status: models.OutcomeSuccess, Timestamp: start.Add(40 * time.Millisecond),
	})

	if m.runID != "ab12cd34" {
		t.Errorf("runID = %q", m.runID)
	}
	row, ok := m.index["a"]
	if !ok {
		t.Fatal("no row for item a")
	}
	if row.state != stateDone {
		t.Errorf("row state = %d, want done", row.state)
	}
	if row.elapsed != 40*time.Millisecond {
		t.Errorf("row elapsed = %v", row.elapsed)
	}

	view := m.View()
	if !strings.Contains(view, "ab12cd34") {
		t.Errorf("view missing run id:\n%s", view)
	}
	if !strings.Contains(view, iconDone) {
		t.Errorf("view missing done icon:\n%s", view)
	}
}

func TestRunModelFailureAndTimeoutStates(t *testing.T) {
	m := NewRunModel(make(chan engine.Event))

	m = apply(t, m, engine.Event{Type: engine.EventItemFailed, ItemID: "x",
		Status: models.OutcomeFailed, Message: "boom"})
	m = apply(t, m, engine.Event{Type: engine.EventItemTimedOut, ItemID: "y",
		Status: models.OutcomeTimedOut})

	if got := m.index["x"].state; got != stateFailed {
		t.Errorf("x state = %d, want failed", got)
	}
	if got := m.index["y"].state; got != stateTimedOut {
		t.Errorf("y state = %d, want timed out", got)
	}

	view := m.View()
	if !strings.Contains(view, "boom") {
		t.Errorf("view missing failure message:\n%s", view)
	}
}

func TestRunModelCompletesOnRunCompleted(t *testing.T) {
	m := NewRunModel(make(chan engine.Event))

	m = apply(t, m, engine.Event{Type: engine.EventRunCompleted, Message: "partial"})
	if !m.done {
		t.Error("done = false after run_completed")
	}
	if !strings.Contains(m.View(), "partial") {
		t.Errorf("view missing final status:\n%s", m.View())
	}
}

func TestRunModelQuitsOnClosedChannel(t *testing.T) {
	ch := make(chan engine.Event)
	close(ch)
	m := NewRunModel(ch)

	msg := m.waitForEvent()()
	if _, ok := msg.(eventsClosedMsg); !ok {
		t.Fatalf("msg = %T, want eventsClosedMsg", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("expected quit command on closed channel")
	}
}

func TestRunModelQuitKey(t *testing.T) {
	m := NewRunModel(make(chan engine.Event))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command for q")
	}
	if !next.(*RunModel).quitting {
		t.Error("quitting = false after q")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a-rather-long-identifier", 10, "a-rathe..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
