package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/botwatch/botwatch/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Snapshot is one point-in-time view of the watch session.
type Snapshot struct {
	State          string
	Pid            int
	Uptime         time.Duration
	Restarts       int
	PendingRestart bool
	Changes        int64
	Summary        stats.Summary
	RecentOutput   []string
}

// Source provides snapshots for the dashboard.
type Source interface {
	Snapshot() Snapshot
}

// Config holds TUI configuration.
type Config struct {
	EntryPoint  string
	WatchRoot   string
	Suffix      string
	MetricsAddr string
	Source      Source
}

// Model represents the TUI state.
type Model struct {
	// Configuration
	entryPoint  string
	watchRoot   string
	suffix      string
	metricsAddr string

	// Current state
	snapshot   Snapshot
	startTime  time.Time
	lastUpdate time.Time

	// Display options
	width  int
	height int

	// Snapshot source (for fetching updates)
	source Source

	// Quit flag
	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		entryPoint:  cfg.EntryPoint,
		watchRoot:   cfg.WatchRoot,
		suffix:      cfg.Suffix,
		metricsAddr: cfg.MetricsAddr,
		source:      cfg.Source,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		width:       80,
		height:      24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			// Force refresh
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.source != nil {
			m.snapshot = m.source.Snapshot()
		}
		m.lastUpdate = time.Now()
		return m, tickCmd()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the watch session started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// State returns the current child state name.
func (m Model) State() string {
	if m.snapshot.State == "" {
		return "stopped"
	}
	return m.snapshot.State
}

// Quitting reports whether the model has received a quit request.
func (m Model) Quitting() bool {
	return m.quitting
}
