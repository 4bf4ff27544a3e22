// Package config provides configuration types and defaults for slidepipe.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/slidepipe/internal/flags"
	"github.com/zjrosen/slidepipe/internal/slides"
	"github.com/zjrosen/slidepipe/internal/tracing"
)

// Config holds all configuration options for slidepipe.
type Config struct {
	Render     RenderConfig     `mapstructure:"render"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Controller ControllerConfig `mapstructure:"controller"`
	Themes     ThemesConfig     `mapstructure:"themes"`
	UI         UIConfig         `mapstructure:"ui"`
	Tracing    tracing.Config   `mapstructure:"tracing"`
	Flags      map[string]bool  `mapstructure:"flags"`
}

// RenderConfig holds the default render options. Command-line flags and
// front-matter directives take precedence.
type RenderConfig struct {
	Theme string `mapstructure:"theme"`
	// Size is "16:9" or "4:3". Width and Height are used when Size is empty.
	Size            string `mapstructure:"size"`
	Width           int    `mapstructure:"width"`
	Height          int    `mapstructure:"height"`
	HTML            bool   `mapstructure:"html"`
	Paginate        bool   `mapstructure:"paginate"`
	Math            string `mapstructure:"math"` // "mathjax" (default), "katex" or "off"
	AllowLocalFiles bool   `mapstructure:"allow_local_files"`
	CustomCSSFile   string `mapstructure:"custom_css_file"`
	BackgroundImage string `mapstructure:"background_image"`
	CodeStyle       string `mapstructure:"code_style"` // chroma style name
}

// CacheConfig sizes the render cache.
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	MaxSize         int           `mapstructure:"max_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// EngineConfig bounds renderer calls.
type EngineConfig struct {
	InitTimeout   time.Duration `mapstructure:"init_timeout"`
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
}

// ControllerConfig tunes the live previewer.
type ControllerConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	AutoInitialize bool          `mapstructure:"auto_initialize"`
}

// ThemesConfig locates user themes.
type ThemesConfig struct {
	// Dir holds extra *.css themes loaded at startup.
	Dir string `mapstructure:"dir"`
}

// UIConfig holds previewer options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default), "light", "notty" or "auto"
	ShowStatusBar bool   `mapstructure:"show_status_bar"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	base := slides.DefaultConfig()
	return Config{
		Render: RenderConfig{
			Theme:     base.Theme,
			Size:      string(base.Size),
			Math:      string(base.Math),
			CodeStyle: "github",
		},
		Cache: CacheConfig{
			TTL:             time.Hour,
			MaxSize:         200,
			CleanupInterval: 5 * time.Minute,
		},
		Engine: EngineConfig{
			InitTimeout:   30 * time.Second,
			RenderTimeout: 10 * time.Second,
		},
		Controller: ControllerConfig{
			Debounce:       300 * time.Millisecond,
			AutoInitialize: true,
		},
		UI: UIConfig{
			MarkdownStyle: "dark",
			ShowStatusBar: true,
		},
		Tracing: tracing.Config{
			Enabled:      false,
			Exporter:     tracing.ExporterFile,
			FilePath:     DefaultTracesFilePath(),
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Flags: flags.Defaults(),
	}
}

// DefaultTracesFilePath returns ~/.config/slidepipe/traces/traces.jsonl, or
// an empty string when the home directory is unknown.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "slidepipe", "traces", "traces.jsonl")
}

// SlidesConfig converts the render section into a validated slides.Config.
// The custom CSS file, when set, is read relative to baseDir.
func (r RenderConfig) SlidesConfig(baseDir string) (slides.Config, error) {
	patch := slides.Patch{
		HTML:            &r.HTML,
		Paginate:        &r.Paginate,
		AllowLocalFiles: &r.AllowLocalFiles,
		BackgroundImage: &r.BackgroundImage,
	}
	if r.Theme != "" {
		patch.Theme = &r.Theme
	}
	if r.Math != "" {
		patch.Math = slides.Ptr(slides.MathMode(r.Math))
	}
	switch {
	case r.Size != "":
		patch.Size = slides.Ptr(slides.SizePreset(r.Size))
	case r.Width != 0 || r.Height != 0:
		patch.Width, patch.Height = &r.Width, &r.Height
	}
	if r.CustomCSSFile != "" {
		css, err := readCustomCSS(baseDir, r.CustomCSSFile)
		if err != nil {
			return slides.Config{}, err
		}
		patch.CustomCSS = &css
	}

	cfg, err := slides.DefaultConfig().WithOverrides(patch)
	if err != nil {
		return slides.Config{}, fmt.Errorf("render: %w", err)
	}
	return cfg, nil
}

func readCustomCSS(baseDir, path string) (string, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the user's config
	if err != nil {
		return "", fmt.Errorf("render.custom_css_file: %w", err)
	}
	return string(data), nil
}

// ValidateRender checks render configuration for errors.
func ValidateRender(r RenderConfig) error {
	if r.Size != "" && r.Size != string(slides.SizeWide) && r.Size != string(slides.SizeStandard) {
		return fmt.Errorf("render.size must be %q or %q, got %q", slides.SizeWide, slides.SizeStandard, r.Size)
	}
	if r.Size == "" && (r.Width <= 0 || r.Height <= 0) {
		return fmt.Errorf("render.width and render.height must be positive when render.size is empty")
	}
	switch slides.MathMode(r.Math) {
	case "", slides.MathMathJax, slides.MathKaTeX, slides.MathOff:
	default:
		return fmt.Errorf("render.math must be \"mathjax\", \"katex\", or \"off\", got %q", r.Math)
	}
	return nil
}

// ValidateCache checks cache configuration for errors.
func ValidateCache(c CacheConfig) error {
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.TTL)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("cache.max_size must not be negative, got %d", c.MaxSize)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cache.cleanup_interval must not be negative, got %s", c.CleanupInterval)
	}
	return nil
}

// ValidateEngine checks engine timeouts.
func ValidateEngine(e EngineConfig) error {
	if e.InitTimeout < 0 || e.RenderTimeout < 0 {
		return fmt.Errorf("engine timeouts must not be negative")
	}
	return nil
}

// ValidateController checks controller configuration for errors.
func ValidateController(c ControllerConfig) error {
	if c.Debounce < 0 {
		return fmt.Errorf("controller.debounce must not be negative, got %s", c.Debounce)
	}
	return nil
}

// ValidateUI checks previewer configuration for errors.
func ValidateUI(ui UIConfig) error {
	switch ui.MarkdownStyle {
	case "", "dark", "light", "notty", "auto":
		return nil
	default:
		return fmt.Errorf("ui.markdown_style must be \"dark\", \"light\", \"notty\", or \"auto\", got %q", ui.MarkdownStyle)
	}
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t tracing.Config) error {
	switch t.Exporter {
	case "", tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	// Only validate path requirements when tracing is enabled
	if t.Enabled {
		if t.Exporter == tracing.ExporterFile && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == tracing.ExporterOTLP && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// Validate runs every section validator.
func Validate(c Config) error {
	validators := []func() error{
		func() error { return ValidateRender(c.Render) },
		func() error { return ValidateCache(c.Cache) },
		func() error { return ValidateEngine(c.Engine) },
		func() error { return ValidateController(c.Controller) },
		func() error { return ValidateUI(c.UI) },
		func() error { return ValidateTracing(c.Tracing) },
	}
	var problems []string
	for _, v := range validators {
		if err := v(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DefaultConfigTemplate returns the commented YAML written on first run.
func DefaultConfigTemplate() string {
	return `# slidepipe configuration
# Lookup order: .slidepipe/config.yaml, then ~/.config/slidepipe/config.yaml

render:
  # Theme used when the document does not name one.
  # Built in: default, gaia, uncover, dark, light
  theme: default
  # "16:9" or "4:3". Leave empty and set width/height for a custom size.
  size: "16:9"
  # Pass raw HTML in markdown through to the slides.
  html: false
  paginate: false
  # mathjax, katex or off
  math: mathjax
  # Permit file: URLs for images and backgrounds.
  allow_local_files: false
  # Extra stylesheet appended after the theme.
  # custom_css_file: slides.css
  # Chroma style for fenced code.
  code_style: github

cache:
  ttl: 1h
  max_size: 200
  cleanup_interval: 5m

engine:
  init_timeout: 30s
  render_timeout: 10s

controller:
  # Quiet period before an edit is rendered.
  debounce: 300ms
  auto_initialize: true

themes:
  # Directory of extra *.css themes.
  # dir: ~/.config/slidepipe/themes

ui:
  # dark, light, notty or auto
  markdown_style: dark
  show_status_bar: true

tracing:
  enabled: false
  # none, file, stdout or otlp
  exporter: file
  # file_path: ~/.config/slidepipe/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0

flags:
  minify-css: false
  sanitize-html: true
  highlight-code: true
`
}

// WriteDefaultConfig creates the config file with the default template.
func WriteDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
