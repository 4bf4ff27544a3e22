// Package styles contains Lip Gloss style definitions for the previewer.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#696969"} // Hints, help text, footers

	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#C98C00", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	StatusBarBgColor = lipgloss.AdaptiveColor{Light: "#E4E4E4", Dark: "#2D3436"}
	LogInfoColor     = lipgloss.AdaptiveColor{Light: "#0984E3", Dark: "#74B9FF"}

	// Slide header: title on the left, position on the right.
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)
	PositionStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)
	HeaderStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(BorderDefaultColor)

	StatusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(TextSecondaryColor).
			Background(StatusBarBgColor)

	// Phase badges in the status bar.
	PhaseReadyStyle   = lipgloss.NewStyle().Bold(true).Foreground(StatusSuccessColor).Background(StatusBarBgColor)
	PhaseLoadingStyle = lipgloss.NewStyle().Bold(true).Foreground(StatusWarningColor).Background(StatusBarBgColor)
	PhaseErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(StatusErrorColor).Background(StatusBarBgColor)

	HelpStyle  = lipgloss.NewStyle().Foreground(TextMutedColor).Background(StatusBarBgColor)
	ErrorStyle = lipgloss.NewStyle().Foreground(StatusErrorColor)
	EmptyStyle = lipgloss.NewStyle().Foreground(TextMutedColor).Italic(true)

	// Log pane.
	LogPlainStyle      = lipgloss.NewStyle().Foreground(TextPrimaryColor)
	LogInfoStyle       = lipgloss.NewStyle().Foreground(LogInfoColor)
	LogWarnStyle       = lipgloss.NewStyle().Foreground(StatusWarningColor)
	LogHintStyle       = lipgloss.NewStyle().Foreground(TextMutedColor)
	LogHintActiveStyle = lipgloss.NewStyle().Foreground(TextPrimaryColor).Bold(true)
)
