package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatRender formats a render as JSON
func (f *Formatter) FormatRender(result RenderDTO) error {
	return f.encode(result)
}

// FormatThemes formats a theme listing as JSON
func (f *Formatter) FormatThemes(themes []ThemeDTO) error {
	return f.encode(themes)
}

// FormatThemesTable writes one aligned line per theme, the default marked
// with an asterisk.
func (f *Formatter) FormatThemesTable(themes []ThemeDTO) error {
	tw := tabwriter.NewWriter(f.writer, 0, 4, 2, ' ', 0)
	for _, t := range themes {
		marker := " "
		if t.Default {
			marker = "*"
		}
		if _, err := fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, t.ID, t.Name, strings.TrimSpace(t.Description)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
