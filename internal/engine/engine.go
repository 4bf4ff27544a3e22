// Package engine drives a Renderer: it owns the one-time initialization,
// consults the render cache, resolves the theme, injects directives derived
// from the render config and shapes raw renderer output into slides.Result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/rendercache"
	"github.com/zjrosen/slidepipe/internal/slides"
	"github.com/zjrosen/slidepipe/internal/theme"
	"github.com/zjrosen/slidepipe/internal/tracing"
)

const (
	DefaultInitTimeout   = 30 * time.Second
	DefaultRenderTimeout = 10 * time.Second
)

// errDestroyed fails an initialization that was overtaken by Destroy.
var errDestroyed = errors.New("engine destroyed during initialization")

// InitState is the initialization lifecycle of an Engine.
type InitState int

const (
	StateUninitialized InitState = iota
	StateInitializing
	StateReady
)

func (s InitState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Options configures an Engine. Zero values take the defaults.
type Options struct {
	InitTimeout   time.Duration
	RenderTimeout time.Duration
	Tracer        trace.Tracer
}

type initCall struct {
	done chan struct{}
	err  error
}

// Engine renders markdown through a Renderer. It is safe for concurrent use.
type Engine struct {
	renderer      Renderer
	cache         *rendercache.Cache
	themes        *theme.Registry
	tracer        trace.Tracer
	initTimeout   time.Duration
	renderTimeout time.Duration

	mu          sync.Mutex
	state       InitState
	inflight    *initCall
	generation  uint64
	lastInitErr error
}

// New creates an Engine. The cache may be shared between engines.
func New(renderer Renderer, cache *rendercache.Cache, themes *theme.Registry, opts Options) *Engine {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = DefaultRenderTimeout
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.Noop()
	}
	return &Engine{
		renderer:      renderer,
		cache:         cache,
		themes:        themes,
		tracer:        opts.Tracer,
		initTimeout:   opts.InitTimeout,
		renderTimeout: opts.RenderTimeout,
	}
}

// State returns the initialization state.
func (e *Engine) State() InitState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastInitError returns the reason the last initialization failed, or nil.
func (e *Engine) LastInitError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastInitErr
}

// Cache returns the render cache.
func (e *Engine) Cache() *rendercache.Cache {
	return e.cache
}

// Themes returns the theme registry.
func (e *Engine) Themes() *theme.Registry {
	return e.themes
}

// Initialize initializes the renderer once. Concurrent callers share the
// same attempt. A failed attempt leaves the engine uninitialized so a later
// call retries. Cancelling ctx stops the wait, not the shared attempt.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateReady {
		e.mu.Unlock()
		return nil
	}
	call := e.inflight
	if call == nil {
		call = &initCall{done: make(chan struct{})}
		e.inflight = call
		e.state = StateInitializing
		go e.runInit(trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx)), call, e.generation)
	}
	e.mu.Unlock()

	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) runInit(parent context.Context, call *initCall, generation uint64) {
	ctx, span := e.tracer.Start(parent, tracing.SpanEngineInitialize)

	ctx, cancel := context.WithTimeout(ctx, e.initTimeout)
	defer cancel()

	started := time.Now()
	errc := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("renderer init panic: %v", r)
			}
		}()
		errc <- e.renderer.Init(ctx)
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}

	e.mu.Lock()
	switch {
	case generation != e.generation:
		err = slides.NewError(slides.KindInitializationFailed, "initialize", errDestroyed)
	case err != nil:
		err = slides.TimeoutOrCause(slides.KindInitializationFailed, "initialize", err)
		e.state = StateUninitialized
		e.inflight = nil
		e.lastInitErr = err
	default:
		e.state = StateReady
		e.inflight = nil
		e.lastInitErr = nil
	}
	e.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatEngine, "renderer initialization failed", err, "elapsed", time.Since(started))
	} else {
		span.SetStatus(codes.Ok, "")
		log.Info(log.CatEngine, "renderer initialized", "elapsed", time.Since(started))
	}
	span.End()

	call.err = err
	close(call.done)
}

// Render renders markdown with cfg, initializing the renderer first if
// needed. Results are cached by markdown and cfg.
func (e *Engine) Render(ctx context.Context, markdown string, cfg slides.Config) (*slides.Result, error) {
	ctx, span := e.tracer.Start(ctx, tracing.SpanEngineRender, trace.WithAttributes(
		attribute.Int(tracing.AttrMarkdownLen, len(markdown)),
	))
	defer span.End()

	result, err := e.render(ctx, span, markdown, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := slides.KindOf(err); kind != 0 {
			span.SetAttributes(attribute.String(tracing.AttrErrorKind, kind.String()))
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int(tracing.AttrSlideCount, result.TotalSlides))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (e *Engine) render(ctx context.Context, span trace.Span, markdown string, cfg slides.Config) (*slides.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, slides.NewError(slides.KindRenderFailed, "render", fmt.Errorf("invalid config: %w", err))
	}
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}

	// Registering a theme can change the output of an unchanged input.
	themesVersion := e.themes.Generation()
	if result, ok := e.cache.GetVersion(markdown, cfg, themesVersion); ok {
		span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, true))
		return result, nil
	}
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, false))

	explicit := slides.ExplicitDirectives(markdown)
	themeID := cfg.ThemeOrDefault()
	if v := explicit[slides.DirectiveTheme]; v != "" {
		themeID = v
	}

	composition := e.themes.Compose(themeID, cfg.CustomCSS)
	span.SetAttributes(attribute.String(tracing.AttrTheme, composition.ThemeID))
	if composition.FellBack {
		span.AddEvent(tracing.EventThemeFallback, trace.WithAttributes(attribute.String("requested", themeID)))
	}
	if !composition.Valid() {
		return nil, slides.ComposeError(composition.ThemeID, composition.Problems)
	}

	preprocessed, injected := Preprocess(markdown, cfg, explicit, composition.ThemeID)
	for _, key := range injected {
		span.AddEvent(tracing.EventDirectiveAdded, trace.WithAttributes(attribute.String("directive", key)))
	}

	out, err := e.invoke(ctx, Input{
		Markdown:        preprocessed,
		CSS:             composition.CSS,
		HTML:            cfg.HTML,
		AllowLocalFiles: cfg.AllowLocalFiles,
	})
	if err != nil {
		return nil, err
	}

	result, err := Shape(out)
	if err != nil {
		return nil, slides.NewError(slides.KindRenderFailed, "render", err)
	}

	e.cache.SetVersion(markdown, cfg, themesVersion, result)
	log.Debug(log.CatEngine, "rendered", "slides", result.TotalSlides, "theme", composition.ThemeID, "injected", len(injected))
	return result, nil
}

// invoke calls the renderer under the render timeout. A renderer that
// ignores its context is abandoned when the timeout fires.
func (e *Engine) invoke(ctx context.Context, in Input) (*Output, error) {
	rctx, cancel := context.WithTimeout(ctx, e.renderTimeout)
	defer cancel()

	type reply struct {
		out *Output
		err error
	}
	replies := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				replies <- reply{err: fmt.Errorf("renderer panic: %v", r)}
			}
		}()
		out, err := e.renderer.Render(rctx, in)
		replies <- reply{out: out, err: err}
	}()

	select {
	case r := <-replies:
		if r.err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, slides.TimeoutOrCause(slides.KindRenderFailed, "render", r.err)
		}
		if r.out == nil {
			return nil, slides.NewError(slides.KindRenderFailed, "render", errors.New("renderer returned no output"))
		}
		return r.out, nil
	case <-rctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, slides.NewError(slides.KindTimeout, "render", rctx.Err())
	}
}

// Destroy closes the renderer and returns the engine to uninitialized. The
// render cache is left intact. An initialization in flight fails.
func (e *Engine) Destroy() error {
	e.mu.Lock()
	e.generation++
	e.state = StateUninitialized
	e.inflight = nil
	e.lastInitErr = nil
	e.mu.Unlock()

	if err := e.renderer.Close(); err != nil {
		return fmt.Errorf("closing renderer: %w", err)
	}
	log.Debug(log.CatEngine, "engine destroyed")
	return nil
}
