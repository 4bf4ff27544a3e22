// Package markdown renders slide content for the terminal.
package markdown

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/glamour"
)

// noMarginStyle is a JSON style that removes document margins.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer wraps glamour with slidepipe-specific configuration.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
	style    string
}

// New creates a markdown renderer with the given width and style.
// style is "dark", "light", "notty" or "auto"; empty means "dark".
// "auto" queries the terminal background, which the previewer avoids while a
// program is running.
func New(width int, style string) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}
	if width < 1 {
		width = 1
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width, style: style}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Style returns the glamour style name.
func (r *Renderer) Style() string {
	return r.style
}

// Render transforms markdown to styled terminal output.
func (r *Renderer) Render(markdown string) (string, error) {
	return r.renderer.Render(markdown)
}

// RenderHTML converts rendered slide HTML back to markdown and styles it for
// the terminal.
func (r *Renderer) RenderHTML(html string) (string, error) {
	md, err := HTMLToMarkdown(html)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// HTMLToMarkdown converts slide HTML to markdown.
func HTMLToMarkdown(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting slide html: %w", err)
	}
	return strings.TrimSpace(md), nil
}
