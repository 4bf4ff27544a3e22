// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// PreviewKeyMap defines the keybindings for the slide previewer.
type PreviewKeyMap struct {
	// Navigation
	Next  key.Binding
	Prev  key.Binding
	First key.Binding
	Last  key.Binding

	// Scrolling within a slide
	ScrollUp   key.Binding
	ScrollDown key.Binding

	// Actions
	Refresh key.Binding
	Logs    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// Preview holds the previewer bindings.
var Preview = DefaultPreviewKeyMap()

// DefaultPreviewKeyMap returns the default previewer keybindings.
func DefaultPreviewKeyMap() PreviewKeyMap {
	return PreviewKeyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "l", "n", " ", "pgdown"),
			key.WithHelp("→/l", "next slide"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h", "p", "pgup"),
			key.WithHelp("←/h", "previous slide"),
		),
		First: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "first slide"),
		),
		Last: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "last slide"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "re-render"),
		),
		Logs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "toggle logs"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the mini help view.
func (k PreviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k PreviewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.First, k.Last},
		{k.ScrollUp, k.ScrollDown},
		{k.Refresh, k.Logs, k.Help, k.Quit},
	}
}
