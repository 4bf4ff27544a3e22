// Package logpane provides an in-app log viewer that replaces the slide body
// while open, showing recent log entries without leaving the TUI.
package logpane

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/ui/styles"
)

// MaxEntries is how many log lines the pane keeps.
const MaxEntries = 500

// Model is the log pane state.
type Model struct {
	visible  bool
	minLevel log.Level
	entries  []string
	width    int
	height   int
	viewport viewport.Model
}

// New creates a hidden log pane showing every level.
func New() Model {
	return Model{minLevel: log.LevelDebug}
}

// Append records a log entry, dropping the oldest beyond MaxEntries.
func (m *Model) Append(entry string) {
	m.entries = append(m.entries, strings.TrimSuffix(entry, "\n"))
	if over := len(m.entries) - MaxEntries; over > 0 {
		m.entries = m.entries[over:]
	}
	if m.visible {
		atBottom := m.viewport.AtBottom()
		m.refreshViewport()
		if atBottom {
			m.viewport.GotoBottom()
		}
	}
}

// Update handles keys while the pane is visible.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "c":
		m.entries = nil
	case "d":
		m.minLevel = log.LevelDebug
	case "i":
		m.minLevel = log.LevelInfo
	case "w":
		m.minLevel = log.LevelWarn
	case "e":
		m.minLevel = log.LevelError
	case "g":
		m.viewport.GotoTop()
		return m, nil
	case "G":
		m.viewport.GotoBottom()
		return m, nil
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.refreshViewport()
	return m, nil
}

// View renders the pane. It is empty while hidden.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	title := styles.TitleStyle.Render("Logs")
	return lipgloss.JoinVertical(lipgloss.Left, title, m.viewport.View(), m.filterHint())
}

// Visible returns whether the pane is shown.
func (m Model) Visible() bool {
	return m.visible
}

// MinLevel returns the current filter level.
func (m Model) MinLevel() log.Level {
	return m.minLevel
}

// Filtered returns the entries at or above the filter level.
func (m Model) Filtered() []string {
	var out []string
	for _, entry := range m.entries {
		if matchesLevel(entry, m.minLevel) {
			out = append(out, entry)
		}
	}
	return out
}

// Toggle shows or hides the pane.
func (m *Model) Toggle() {
	m.visible = !m.visible
	if m.visible {
		m.refreshViewport()
		m.viewport.GotoBottom()
	}
}

// SetSize sets the area the pane occupies, title and hint lines included.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if m.width == 0 || m.height == 0 {
		return
	}
	// Title and filter hint take a line each.
	m.viewport = viewport.New(m.width, max(m.height-2, 1))
	m.viewport.SetContent(m.content())
}

func (m Model) content() string {
	filtered := m.Filtered()
	if len(filtered) == 0 {
		return styles.EmptyStyle.Render("No logs to display")
	}
	lines := make([]string, len(filtered))
	for i, entry := range filtered {
		lines[i] = colorize(entry, m.width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) filterHint() string {
	options := []struct {
		label string
		level log.Level
	}{
		{"[d] Debug", log.LevelDebug},
		{"[i] Info", log.LevelInfo},
		{"[w] Warn", log.LevelWarn},
		{"[e] Error", log.LevelError},
	}
	hints := []string{styles.LogHintStyle.Render("[c] Clear")}
	for _, o := range options {
		if o.level == m.minLevel {
			hints = append(hints, styles.LogHintActiveStyle.Render(o.label))
		} else {
			hints = append(hints, styles.LogHintStyle.Render(o.label))
		}
	}
	return strings.Join(hints, "  ")
}

// entryLevel reads the level tag of a formatted entry. ok is false for lines
// without one.
func entryLevel(entry string) (log.Level, bool) {
	switch {
	case strings.Contains(entry, "[ERROR]"):
		return log.LevelError, true
	case strings.Contains(entry, "[WARN]"):
		return log.LevelWarn, true
	case strings.Contains(entry, "[INFO]"):
		return log.LevelInfo, true
	case strings.Contains(entry, "[DEBUG]"):
		return log.LevelDebug, true
	}
	return 0, false
}

// matchesLevel reports whether entry is at or above minLevel. Entries with
// no level are always shown.
func matchesLevel(entry string, minLevel log.Level) bool {
	level, ok := entryLevel(entry)
	return !ok || level >= minLevel
}

func colorize(entry string, maxWidth int) string {
	if maxWidth > 3 && ansi.StringWidth(entry) > maxWidth {
		entry = ansi.Truncate(entry, maxWidth-3, "...")
	}
	level, ok := entryLevel(entry)
	if !ok {
		return styles.LogPlainStyle.Render(entry)
	}
	switch level {
	case log.LevelError:
		return styles.ErrorStyle.Render(entry)
	case log.LevelWarn:
		return styles.LogWarnStyle.Render(entry)
	case log.LevelInfo:
		return styles.LogInfoStyle.Render(entry)
	default:
		return styles.LogHintStyle.Render(entry)
	}
}
