// Package pipeline assembles the render stack: the markdown renderer, the
// theme registry, the render cache and the engine that ties them together.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/zjrosen/slidepipe/internal/config"
	"github.com/zjrosen/slidepipe/internal/controller"
	"github.com/zjrosen/slidepipe/internal/engine"
	"github.com/zjrosen/slidepipe/internal/flags"
	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/markdown"
	"github.com/zjrosen/slidepipe/internal/rendercache"
	"github.com/zjrosen/slidepipe/internal/slides"
	"github.com/zjrosen/slidepipe/internal/theme"
)

// Options configures a Pipeline.
type Options struct {
	// Renderer overrides the goldmark renderer.
	Renderer engine.Renderer
	// Flags toggles renderer features; nil uses the declared defaults.
	Flags *flags.Registry
	// CodeStyle is the chroma style for fenced code.
	CodeStyle string
	// ThemeDir holds extra *.css themes.
	ThemeDir string
	Cache    rendercache.Options
	Engine   engine.Options
}

// FromConfig maps a loaded Config onto pipeline Options.
func FromConfig(cfg config.Config) Options {
	return Options{
		Flags:     flags.New(cfg.Flags),
		CodeStyle: cfg.Render.CodeStyle,
		ThemeDir:  cfg.Themes.Dir,
		Cache: rendercache.Options{
			TTL:             cfg.Cache.TTL,
			MaxSize:         cfg.Cache.MaxSize,
			CleanupInterval: cfg.Cache.CleanupInterval,
		},
		Engine: engine.Options{
			InitTimeout:   cfg.Engine.InitTimeout,
			RenderTimeout: cfg.Engine.RenderTimeout,
		},
	}
}

// Pipeline owns one engine and its collaborators.
type Pipeline struct {
	engine    *engine.Engine
	cache     *rendercache.Cache
	themes    *theme.Registry
	stop      context.CancelFunc
	closeOnce sync.Once
}

// New builds a Pipeline and starts the cache sweeper.
func New(opts Options) (*Pipeline, error) {
	if opts.Flags == nil {
		opts.Flags = flags.New(nil)
	}

	themes, err := theme.NewRegistry(theme.Options{
		Minify: opts.Flags.Enabled(flags.FlagMinifyCSS),
	})
	if err != nil {
		return nil, fmt.Errorf("building theme registry: %w", err)
	}
	if opts.ThemeDir != "" {
		n, err := themes.LoadDir(opts.ThemeDir)
		if err != nil {
			return nil, err
		}
		log.Info(log.CatTheme, "loaded user themes", "dir", opts.ThemeDir, "count", n)
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = markdown.New(markdown.Options{
			Highlight: opts.Flags.Enabled(flags.FlagHighlightCode),
			Sanitize:  opts.Flags.Enabled(flags.FlagSanitizeHTML),
			CodeStyle: opts.CodeStyle,
		})
	}

	cache := rendercache.New(opts.Cache)
	ctx, stop := context.WithCancel(context.Background())
	cache.StartSweeper(ctx, opts.Cache.CleanupInterval)

	return &Pipeline{
		engine: engine.New(renderer, cache, themes, opts.Engine),
		cache:  cache,
		themes: themes,
		stop:   stop,
	}, nil
}

// Engine returns the engine.
func (p *Pipeline) Engine() *engine.Engine { return p.engine }

// Cache returns the render cache.
func (p *Pipeline) Cache() *rendercache.Cache { return p.cache }

// Themes returns the theme registry.
func (p *Pipeline) Themes() *theme.Registry { return p.themes }

// Render renders markdown once.
func (p *Pipeline) Render(ctx context.Context, markdown string, cfg slides.Config) (*slides.Result, error) {
	return p.engine.Render(ctx, markdown, cfg)
}

// NewController returns a debounced controller driving this pipeline's
// engine.
func (p *Pipeline) NewController(opts controller.Options) *controller.Controller {
	return controller.New(p.engine, opts)
}

// Close stops the cache sweeper and releases the renderer.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.stop()
		err = p.engine.Destroy()
	})
	return err
}

var (
	defaultOnce     sync.Once
	defaultPipeline *Pipeline
	errDefault      error
)

// Default returns the process-wide pipeline built from default options.
func Default() (*Pipeline, error) {
	defaultOnce.Do(func() {
		defaultPipeline, errDefault = New(Options{})
	})
	return defaultPipeline, errDefault
}
