// Package slides defines the value types that flow through the rendering
// pipeline: the render configuration, the render result and its slides, the
// front-matter directives understood by the pipeline, and the error taxonomy.
package slides

import (
	"fmt"
	"strconv"
	"strings"
)

// SizePreset names a slide geometry.
type SizePreset string

const (
	SizeWide     SizePreset = "16:9"
	SizeStandard SizePreset = "4:3"
)

// MathMode selects how math blocks are emitted.
type MathMode string

const (
	MathMathJax MathMode = "mathjax"
	MathKaTeX   MathMode = "katex"
	MathOff     MathMode = "off"
)

// DefaultTheme is the theme used when a config does not name one.
const DefaultTheme = "default"

// presetDimensions maps presets to their pixel sizes.
var presetDimensions = map[SizePreset][2]int{
	SizeWide:     {1280, 720},
	SizeStandard: {960, 720},
}

// Config is the render configuration. It is a value: changes go through
// WithOverrides, which returns a new Config.
type Config struct {
	Theme string
	// Size is a preset name. When empty, Width and Height are used.
	Size            SizePreset
	Width           int
	Height          int
	HTML            bool
	Paginate        bool
	Math            MathMode
	AllowLocalFiles bool
	CustomCSS       string
	BackgroundImage string
}

// DefaultConfig returns the configuration used when the caller supplies none.
func DefaultConfig() Config {
	return Config{
		Theme:    DefaultTheme,
		Size:     SizeWide,
		Paginate: false,
		Math:     MathMathJax,
	}
}

// Patch is a partial update of a Config. Nil fields are left unchanged.
type Patch struct {
	Theme           *string
	Size            *SizePreset
	Width           *int
	Height          *int
	HTML            *bool
	Paginate        *bool
	Math            *MathMode
	AllowLocalFiles *bool
	CustomCSS       *string
	BackgroundImage *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Theme == nil && p.Size == nil && p.Width == nil && p.Height == nil &&
		p.HTML == nil && p.Paginate == nil && p.Math == nil && p.AllowLocalFiles == nil &&
		p.CustomCSS == nil && p.BackgroundImage == nil
}

// WithOverrides applies p to c and validates the outcome.
// Setting explicit dimensions clears the preset; setting a preset clears
// explicit dimensions.
func (c Config) WithOverrides(p Patch) (Config, error) {
	next := c
	if p.Theme != nil {
		next.Theme = strings.TrimSpace(*p.Theme)
	}
	if p.Width != nil || p.Height != nil {
		next.Size = ""
		if p.Width != nil {
			next.Width = *p.Width
		}
		if p.Height != nil {
			next.Height = *p.Height
		}
	}
	if p.Size != nil {
		next.Size = *p.Size
		if next.Size != "" {
			next.Width, next.Height = 0, 0
		}
	}
	if p.HTML != nil {
		next.HTML = *p.HTML
	}
	if p.Paginate != nil {
		next.Paginate = *p.Paginate
	}
	if p.Math != nil {
		next.Math = *p.Math
	}
	if p.AllowLocalFiles != nil {
		next.AllowLocalFiles = *p.AllowLocalFiles
	}
	if p.CustomCSS != nil {
		next.CustomCSS = *p.CustomCSS
	}
	if p.BackgroundImage != nil {
		next.BackgroundImage = strings.TrimSpace(*p.BackgroundImage)
	}

	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

// Validate checks the config for unknown presets, bad dimensions and
// unknown math modes.
func (c Config) Validate() error {
	if c.Size != "" {
		if _, ok := presetDimensions[c.Size]; !ok {
			return fmt.Errorf("size must be %q or %q, got %q", SizeWide, SizeStandard, c.Size)
		}
	} else if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("explicit size requires positive width and height, got %dx%d", c.Width, c.Height)
	}

	switch c.Math {
	case MathMathJax, MathKaTeX, MathOff:
	default:
		return fmt.Errorf("math must be %q, %q or %q, got %q", MathMathJax, MathKaTeX, MathOff, c.Math)
	}
	return nil
}

// Dimensions returns the slide size in pixels.
func (c Config) Dimensions() (width, height int) {
	if d, ok := presetDimensions[c.Size]; ok {
		return d[0], d[1]
	}
	return c.Width, c.Height
}

// SizeDirective returns the value written for the size directive: the
// preset name, or WIDTHxHEIGHT for explicit dimensions.
func (c Config) SizeDirective() string {
	if c.Size != "" {
		return string(c.Size)
	}
	return strconv.Itoa(c.Width) + "x" + strconv.Itoa(c.Height)
}

// ThemeOrDefault returns the theme id, or DefaultTheme when unset.
func (c Config) ThemeOrDefault() string {
	if c.Theme == "" {
		return DefaultTheme
	}
	return c.Theme
}

// Canonical serializes every field in a fixed order. Strings are length
// prefixed so that no two distinct configs produce the same bytes.
func (c Config) Canonical() []byte {
	var b strings.Builder
	writeField := func(name, value string) {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(len(value)))
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteByte(';')
	}
	writeField("theme", c.Theme)
	writeField("size", string(c.Size))
	writeField("width", strconv.Itoa(c.Width))
	writeField("height", strconv.Itoa(c.Height))
	writeField("html", strconv.FormatBool(c.HTML))
	writeField("paginate", strconv.FormatBool(c.Paginate))
	writeField("math", string(c.Math))
	writeField("allow_local_files", strconv.FormatBool(c.AllowLocalFiles))
	writeField("custom_css", c.CustomCSS)
	writeField("background_image", c.BackgroundImage)
	return []byte(b.String())
}

// ParseSize parses a size directive value: a preset name or WIDTHxHEIGHT.
func ParseSize(value string) (SizePreset, int, int, error) {
	value = strings.TrimSpace(value)
	if _, ok := presetDimensions[SizePreset(value)]; ok {
		return SizePreset(value), 0, 0, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(value), "x")
	if !ok {
		return "", 0, 0, fmt.Errorf("unknown size %q", value)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return "", 0, 0, fmt.Errorf("invalid width in size %q", value)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return "", 0, 0, fmt.Errorf("invalid height in size %q", value)
	}
	return "", width, height, nil
}

// PresetDimensions returns the pixel size of a preset.
func PresetDimensions(p SizePreset) (int, int, bool) {
	d, ok := presetDimensions[p]
	return d[0], d[1], ok
}

// Ptr returns a pointer to v. Handy when building a Patch.
func Ptr[T any](v T) *T {
	return &v
}
