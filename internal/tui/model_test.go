package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/botwatch/botwatch/internal/stats"
)

type fakeSource struct {
	snapshot Snapshot
}

func (f *fakeSource) Snapshot() Snapshot {
	return f.snapshot
}

func newTestModel(src Source) Model {
	return New(Config{
		EntryPoint:  "/src/bot.py",
		WatchRoot:   "/src",
		Suffix:      ".py",
		MetricsAddr: "localhost:9090",
		Source:      src,
	})
}

func TestModelInit(t *testing.T) {
	m := newTestModel(nil)
	if cmd := m.Init(); cmd == nil {
		t.Error("Init should return a tick command")
	}
	if m.State() != "stopped" {
		t.Errorf("expected initial state stopped, got %s", m.State())
	}
}

func TestModelQuitKeys(t *testing.T) {
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	}
	for _, key := range keys {
		m := newTestModel(nil)
		updated, cmd := m.Update(key)
		model := updated.(Model)
		if !model.Quitting() {
			t.Errorf("key %q should set quitting", key.String())
		}
		if cmd == nil {
			t.Errorf("key %q should return tea.Quit", key.String())
		}
	}
}

func TestModelWindowResize(t *testing.T) {
	m := newTestModel(nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model := updated.(Model)
	if model.width != 120 || model.height != 40 {
		t.Errorf("expected 120x40, got %dx%d", model.width, model.height)
	}
}

func TestModelTickFetchesSnapshot(t *testing.T) {
	src := &fakeSource{snapshot: Snapshot{
		State:    "running",
		Pid:      4242,
		Uptime:   3 * time.Second,
		Restarts: 2,
	}}
	m := newTestModel(src)

	updated, cmd := m.Update(TickMsg(time.Now()))
	model := updated.(Model)

	if model.State() != "running" {
		t.Errorf("expected running, got %s", model.State())
	}
	if model.snapshot.Pid != 4242 {
		t.Errorf("expected pid 4242, got %d", model.snapshot.Pid)
	}
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
}

func TestModelView(t *testing.T) {
	src := &fakeSource{snapshot: Snapshot{
		State:          "running",
		Pid:            4242,
		Uptime:         3 * time.Second,
		Restarts:       1,
		PendingRestart: true,
		Changes:        5,
		Summary: stats.Summary{
			Restarts:    1,
			LastRestart: 120 * time.Millisecond,
			RestartP50:  120 * time.Millisecond,
			RestartP95:  120 * time.Millisecond,
		},
		RecentOutput: []string{"Logged in as TestBot", "Ready."},
	}}
	m := newTestModel(src)
	updated, _ := m.Update(TickMsg(time.Now()))
	view := updated.(Model).View()

	for _, want := range []string{
		"botwatch",
		"bot.py",
		"4242",
		"RUNNING",
		"Restart pending",
		"Logged in as TestBot",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelViewAfterQuit(t *testing.T) {
	m := newTestModel(nil)
	updated, _ := m.Update(QuitMsg{})
	if view := updated.(Model).View(); view != "" {
		t.Errorf("expected empty view after quit, got %q", view)
	}
}

func TestStateStyle(t *testing.T) {
	// Distinct states map to distinct indicator styles
	if StateStyle("running").GetForeground() != statusOK.GetForeground() {
		t.Error("running should use the success style")
	}
	if StateStyle("stopped").GetForeground() != statusError.GetForeground() {
		t.Error("stopped should use the error style")
	}
	if StateStyle("starting").GetForeground() != statusWarning.GetForeground() {
		t.Error("starting should use the warning style")
	}
}
