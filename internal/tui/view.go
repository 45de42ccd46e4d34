package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderChildSection())
	sections = append(sections, m.renderLifecycleSection())
	sections = append(sections, m.renderOutputSection())
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" botwatch │ %s │ Restarts: %d │ Elapsed: %s ",
		m.State(),
		m.snapshot.Restarts,
		formatDuration(m.Elapsed()),
	)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Child Section
// =============================================================================

func (m Model) renderChildSection() string {
	stateLabel := StateStyle(m.State()).Render(strings.ToUpper(m.State()))

	lines := []string{
		fmt.Sprintf("%s  %s", boldStyle.Render("Entry point:"), m.entryPoint),
		fmt.Sprintf("%s   %s (%s files)", boldStyle.Render("Watch root:"), m.watchRoot, m.suffix),
		fmt.Sprintf("%s        %s", boldStyle.Render("State:"), stateLabel),
	}

	if m.snapshot.Pid > 0 {
		lines = append(lines, fmt.Sprintf("%s          %d  (up %s)",
			boldStyle.Render("PID:"),
			m.snapshot.Pid,
			formatDuration(m.snapshot.Uptime),
		))
	}

	if m.snapshot.PendingRestart {
		lines = append(lines, statusWarning.Render("Restart pending..."))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Child Process"),
		sectionStyle.Width(m.width-2).Render(content),
	)
}

// =============================================================================
// Lifecycle Section
// =============================================================================

func (m Model) renderLifecycleSection() string {
	s := m.snapshot.Summary

	lines := []string{
		fmt.Sprintf("Changes: %d   Restarts: %d   Launch failures: %d   Forced kills: %d",
			m.snapshot.Changes, s.Restarts, s.LaunchFails, s.ForcedKills),
	}

	if s.Restarts > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf(
			"Restart cycle: last %s   p50 %s   p95 %s",
			s.LastRestart.Round(time.Millisecond),
			s.RestartP50.Round(time.Millisecond),
			s.RestartP95.Round(time.Millisecond),
		)))
	}
	if s.Exits > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf(
			"Uptime: last %s   p50 %s   p95 %s",
			s.LastUptime.Round(time.Second),
			s.UptimeP50.Round(time.Second),
			s.UptimeP95.Round(time.Second),
		)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Lifecycle"),
		sectionStyle.Width(m.width-2).Render(content),
	)
}

// =============================================================================
// Output Section
// =============================================================================

func (m Model) renderOutputSection() string {
	rows := m.outputRows()
	output := m.snapshot.RecentOutput
	if len(output) > rows {
		output = output[len(output)-rows:]
	}

	var lines []string
	if len(output) == 0 {
		lines = append(lines, dimStyle.Render("(no output yet)"))
	}
	for _, line := range output {
		if len(line) > m.width-6 && m.width > 6 {
			line = line[:m.width-6]
		}
		lines = append(lines, line)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Recent Output"),
		sectionStyle.Width(m.width-2).Render(content),
	)
}

// outputRows returns how many output lines fit below the fixed sections.
func (m Model) outputRows() int {
	rows := m.height - 16
	if rows < 4 {
		rows = 4
	}
	return rows
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	parts := []string{"q quit", "r refresh"}
	if m.metricsAddr != "" {
		parts = append(parts, fmt.Sprintf("metrics http://%s/metrics", m.metricsAddr))
	}
	parts = append(parts, fmt.Sprintf("updated %s ago", time.Since(m.lastUpdate).Round(time.Second)))
	return footerStyle.Render(" " + strings.Join(parts, "  │  "))
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	mi := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, mi, s)
}
