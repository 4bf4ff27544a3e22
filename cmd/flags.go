package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/zjrosen/slidepipe/internal/slides"
)

// renderFlags are the per-invocation overrides shared by render and preview.
type renderFlags struct {
	theme           string
	size            string
	html            bool
	paginate        bool
	math            string
	css             string
	backgroundImage string
	allowLocalFiles bool
}

func (f *renderFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.theme, "theme", "t", "", "theme id (overrides config, not front matter)")
	fs.StringVar(&f.size, "size", "", `slide size: "16:9", "4:3" or WIDTHxHEIGHT`)
	fs.BoolVar(&f.html, "html", false, "pass raw HTML in markdown through")
	fs.BoolVar(&f.paginate, "paginate", false, "show page numbers")
	fs.StringVar(&f.math, "math", "", "math rendering: mathjax, katex or off")
	fs.StringVar(&f.css, "css", "", "extra stylesheet appended after the theme")
	fs.StringVar(&f.backgroundImage, "bg", "", "default background image URL")
	fs.BoolVar(&f.allowLocalFiles, "allow-local-files", false, "permit file: URLs")
}

// patch returns the overrides for flags that were set explicitly.
func (f *renderFlags) patch(fs *pflag.FlagSet) (slides.Patch, error) {
	var p slides.Patch
	if fs.Changed("theme") {
		p.Theme = &f.theme
	}
	if fs.Changed("size") {
		preset, w, h, err := slides.ParseSize(f.size)
		if err != nil {
			return slides.Patch{}, fmt.Errorf("--size: %w", err)
		}
		if preset != "" {
			p.Size = &preset
		} else {
			p.Width, p.Height = &w, &h
		}
	}
	if fs.Changed("html") {
		p.HTML = &f.html
	}
	if fs.Changed("paginate") {
		p.Paginate = &f.paginate
	}
	if fs.Changed("math") {
		p.Math = slides.Ptr(slides.MathMode(f.math))
	}
	if fs.Changed("css") {
		data, err := os.ReadFile(f.css) //nolint:gosec // G304: user-chosen stylesheet
		if err != nil {
			return slides.Patch{}, fmt.Errorf("--css: %w", err)
		}
		p.CustomCSS = slides.Ptr(string(data))
	}
	if fs.Changed("bg") {
		p.BackgroundImage = &f.backgroundImage
	}
	if fs.Changed("allow-local-files") {
		p.AllowLocalFiles = &f.allowLocalFiles
	}
	return p, nil
}

// slidesConfig layers the flag overrides over the config file's render
// section.
func (f *renderFlags) slidesConfig(fs *pflag.FlagSet) (slides.Config, error) {
	base, err := cfg.Render.SlidesConfig(configDir())
	if err != nil {
		return slides.Config{}, err
	}
	p, err := f.patch(fs)
	if err != nil {
		return slides.Config{}, err
	}
	return base.WithOverrides(p)
}

// watchedPaths lists the files a preview should watch besides the deck.
func (f *renderFlags) watchedPaths() []string {
	var paths []string
	if f.css != "" {
		paths = append(paths, f.css)
	}
	if cfg.Render.CustomCSSFile != "" {
		css := cfg.Render.CustomCSSFile
		if !filepath.IsAbs(css) && configDir() != "" {
			css = filepath.Join(configDir(), css)
		}
		paths = append(paths, css)
	}
	return paths
}

// readDeck reads the markdown source; "-" reads stdin.
func readDeck(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-chosen deck
	if err != nil {
		return "", fmt.Errorf("reading deck: %w", err)
	}
	return string(data), nil
}
