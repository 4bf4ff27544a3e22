// Package theme holds the named slide stylesheets and composes them with the
// base layout rules and caller supplied CSS.
package theme

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTheme is returned when a theme cannot be registered.
var ErrInvalidTheme = errors.New("invalid theme")

// Theme is a named stylesheet.
type Theme struct {
	ID          string
	Name        string
	Description string
	Swatches    []string
	CSS         string
}

// Info describes a theme for presentation layers.
type Info struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Swatches    []string `json:"swatches"`
}

// Info returns the theme metadata.
func (t Theme) Info() Info {
	return Info{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Swatches:    append([]string(nil), t.Swatches...),
	}
}

// Parse reads a stylesheet whose first comment carries the theme header:
//
//	/*
//	 * @theme gaia
//	 * @name Gaia
//	 * @description Warm cream background.
//	 * @swatch #fff8e1 #455a64
//	 */
//
// Only @theme is required. Name defaults to the id.
func Parse(css string) (Theme, error) {
	trimmed := strings.TrimLeft(css, " \t\r\n\ufeff")
	if !strings.HasPrefix(trimmed, "/*") {
		return Theme{}, fmt.Errorf("%w: missing header comment", ErrInvalidTheme)
	}
	end := strings.Index(trimmed, "*/")
	if end < 0 {
		return Theme{}, fmt.Errorf("%w: unterminated header comment", ErrInvalidTheme)
	}

	t := Theme{CSS: css}
	for _, line := range strings.Split(trimmed[2:end], "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		key, value, ok := strings.Cut(line, " ")
		if !ok || !strings.HasPrefix(key, "@") {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "@theme":
			t.ID = value
		case "@name":
			t.Name = value
		case "@description":
			t.Description = value
		case "@swatch":
			t.Swatches = append(t.Swatches, strings.Fields(value)...)
		}
	}

	if t.ID == "" {
		return Theme{}, fmt.Errorf("%w: header has no @theme", ErrInvalidTheme)
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	return t, nil
}
