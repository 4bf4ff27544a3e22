package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/slidepipe/internal/rendercache"
	"github.com/zjrosen/slidepipe/internal/slides"
	"github.com/zjrosen/slidepipe/internal/theme"
	"github.com/zjrosen/slidepipe/internal/tracing"
)

// fakeRenderer turns every "# X" line into a slide titled X.
type fakeRenderer struct {
	mu          sync.Mutex
	initCalls   int
	renderCalls int
	closeCalls  int
	initErr     error
	initGate    chan struct{}
	renderFn    func(ctx context.Context, in Input) (*Output, error)
	inputs      []Input
}

func (f *fakeRenderer) Init(ctx context.Context) error {
	f.mu.Lock()
	f.initCalls++
	gate, err := f.initGate, f.initErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeRenderer) Render(ctx context.Context, in Input) (*Output, error) {
	f.mu.Lock()
	f.renderCalls++
	f.inputs = append(f.inputs, in)
	fn := f.renderFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, in)
	}
	return headingsOutput(in), nil
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeRenderer) calls() (initCalls, renderCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls, f.renderCalls
}

func (f *fakeRenderer) lastInput() Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs[len(f.inputs)-1]
}

func headingsOutput(in Input) *Output {
	out := &Output{CSS: in.CSS}
	_, body, _ := slides.SplitFrontMatter(in.Markdown)
	for _, chunk := range strings.Split(body, "\n---\n") {
		html := "<section>"
		for _, line := range strings.Split(chunk, "\n") {
			if title, ok := strings.CutPrefix(line, "# "); ok {
				html += "<h1>" + title + "</h1>"
			} else if strings.TrimSpace(line) != "" {
				html += "<p>" + line + "</p>"
			}
		}
		html += "</section>"
		out.Slides = append(out.Slides, RawSlide{HTML: html})
		out.HTML += html
	}
	return out
}

func newEngine(t *testing.T, r Renderer, opts Options) *Engine {
	t.Helper()
	themes, err := theme.NewRegistry(theme.Options{})
	require.NoError(t, err)
	return New(r, rendercache.New(rendercache.Options{}), themes, opts)
}

func TestInitialize_ConcurrentCallersShareOneAttempt(t *testing.T) {
	gate := make(chan struct{})
	r := &fakeRenderer{initGate: gate}
	e := newEngine(t, r, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.Initialize(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return e.State() == StateInitializing }, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	initCalls, _ := r.calls()
	require.Equal(t, 1, initCalls)
	require.Equal(t, StateReady, e.State())

	require.NoError(t, e.Initialize(context.Background()))
	initCalls, _ = r.calls()
	require.Equal(t, 1, initCalls, "ready engine does not initialize again")
}

func TestInitialize_FailureResetsAndRetries(t *testing.T) {
	r := &fakeRenderer{initErr: errors.New("wasm module missing")}
	e := newEngine(t, r, Options{})

	err := e.Initialize(context.Background())
	require.ErrorIs(t, err, slides.ErrInitializationFailed)
	require.ErrorContains(t, err, "wasm module missing")
	require.Equal(t, StateUninitialized, e.State())
	require.Equal(t, err, e.LastInitError())
	require.False(t, slides.IsRetryable(err))

	r.mu.Lock()
	r.initErr = nil
	r.mu.Unlock()

	require.NoError(t, e.Initialize(context.Background()))
	require.Equal(t, StateReady, e.State())
	require.NoError(t, e.LastInitError())
	initCalls, _ := r.calls()
	require.Equal(t, 2, initCalls)
}

func TestInitialize_Timeout(t *testing.T) {
	r := &fakeRenderer{initGate: make(chan struct{})}
	e := newEngine(t, r, Options{InitTimeout: 20 * time.Millisecond})

	err := e.Initialize(context.Background())
	require.ErrorIs(t, err, slides.ErrTimeout)
	require.Equal(t, StateUninitialized, e.State())
}

func TestInitialize_CallerCancelDoesNotAbortSharedAttempt(t *testing.T) {
	gate := make(chan struct{})
	r := &fakeRenderer{initGate: gate}
	e := newEngine(t, r, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, e.Initialize(ctx), context.Canceled)

	close(gate)
	require.NoError(t, e.Initialize(context.Background()))
	initCalls, _ := r.calls()
	require.Equal(t, 1, initCalls)
}

func TestRender_EndToEndTitles(t *testing.T) {
	r := &fakeRenderer{}
	e := newEngine(t, r, Options{})

	result, err := e.Render(context.Background(), "# A\n\n---\n\n# B", slides.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalSlides)
	require.Equal(t, []string{"A", "B"}, result.Titles())
	require.Equal(t, 1, result.Slides[0].Index)
	require.Equal(t, 2, result.Slides[1].Index)
	require.Equal(t, StateReady, e.State(), "render initializes on demand")
}

func TestRender_CacheHitSkipsRenderer(t *testing.T) {
	r := &fakeRenderer{}
	e := newEngine(t, r, Options{})
	cfg := slides.DefaultConfig()

	first, err := e.Render(context.Background(), "# A", cfg)
	require.NoError(t, err)
	second, err := e.Render(context.Background(), "# A", cfg)
	require.NoError(t, err)

	require.Same(t, first, second)
	_, renderCalls := r.calls()
	require.Equal(t, 1, renderCalls)
	require.Equal(t, int64(1), e.Cache().Stats().Hits)
}

func TestRender_IdempotentAcrossCacheClear(t *testing.T) {
	r := &fakeRenderer{}
	e := newEngine(t, r, Options{})
	cfg := slides.DefaultConfig()

	first, err := e.Render(context.Background(), "# A\n\n---\n\n# B", cfg)
	require.NoError(t, err)
	e.Cache().Clear()
	second, err := e.Render(context.Background(), "# A\n\n---\n\n# B", cfg)
	require.NoError(t, err)

	require.NotSame(t, first, second)
	require.Equal(t, first, second)
}

func TestRender_ExplicitThemeWins(t *testing.T) {
	r := &fakeRenderer{}
	e := newEngine(t, r, Options{})
	cfg, err := slides.DefaultConfig().WithOverrides(slides.Patch{Theme: slides.Ptr("dark"), Paginate: slides.Ptr(true)})
	require.NoError(t, err)

	_, err = e.Render(context.Background(), "---\ntheme: gaia\npaginate: false\n---\n# A", cfg)
	require.NoError(t, err)

	in := r.lastInput()
	require.Contains(t, in.Markdown, "theme: gaia")
	require.Contains(t, in.Markdown, "paginate: false")
	require.NotContains(t, in.Markdown, "dark")
	require.NotContains(t, in.Markdown, "paginate: true")
	require.Contains(t, in.CSS, "#fff8e1", "gaia stylesheet is composed")
}

func TestRender_BodyTextIsNotADirective(t *testing.T) {
	r := &fakeRenderer{}
	e := newEngine(t, r, Options{})
	cfg, err := slides.DefaultConfig().WithOverrides(slides.Patch{Theme: slides.Ptr("uncover")})
	require.NoError(t, err)

	_, err = e.Render(context.Background(), "# Picking a theme: tips\n\nSet theme: in front matter.", cfg)
	require.NoError(t, err)

	require.Contains(t, r.lastInput().Markdown, `theme: "uncover"`)
}

func TestRender_UnknownThemeFallsBack(t *testing.T) {
	r := &fakeRenderer{}
	e := newEngine(t, r, Options{})
	cfg := slides.DefaultConfig()
	cfg.Theme = "retro"

	_, err := e.Render(context.Background(), "# A", cfg)
	require.NoError(t, err)
	require.Contains(t, r.lastInput().Markdown, `theme: "default"`)
}

func TestRender_ComposeFailure(t *testing.T) {
	r := &fakeRenderer{}
	e := newEngine(t, r, Options{})
	cfg, err := slides.DefaultConfig().WithOverrides(slides.Patch{CustomCSS: slides.Ptr("h1 { color: red;")})
	require.NoError(t, err)

	_, err = e.Render(context.Background(), "# A", cfg)

	require.ErrorIs(t, err, slides.ErrThemeComposeFailed)
	var perr *slides.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, []string{"line 1: unclosed '{'"}, perr.Problems)
	_, renderCalls := r.calls()
	require.Zero(t, renderCalls)
}

func TestRender_RendererFailures(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, Input) (*Output, error)
		want error
	}{
		{
			name: "error",
			fn:   func(context.Context, Input) (*Output, error) { return nil, errors.New("bad markdown") },
			want: slides.ErrRenderFailed,
		},
		{
			name: "panic",
			fn:   func(context.Context, Input) (*Output, error) { panic("boom") },
			want: slides.ErrRenderFailed,
		},
		{
			name: "nil output",
			fn:   func(context.Context, Input) (*Output, error) { return nil, nil },
			want: slides.ErrRenderFailed,
		},
		{
			name: "ignores deadline",
			fn: func(context.Context, Input) (*Output, error) {
				time.Sleep(200 * time.Millisecond)
				return &Output{}, nil
			},
			want: slides.ErrTimeout,
		},
		{
			name: "honors deadline",
			fn: func(ctx context.Context, _ Input) (*Output, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			want: slides.ErrTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenderer{renderFn: tt.fn}
			e := newEngine(t, r, Options{RenderTimeout: 30 * time.Millisecond})

			result, err := e.Render(context.Background(), "# A", slides.DefaultConfig())
			require.Nil(t, result)
			require.ErrorIs(t, err, tt.want)
			require.True(t, slides.IsRetryable(err))
			require.False(t, e.Cache().HasVersion("# A", slides.DefaultConfig(), e.Themes().Generation()), "failures are not cached")
		})
	}
}

func TestRender_CallerCancellation(t *testing.T) {
	started := make(chan struct{})
	r := &fakeRenderer{renderFn: func(ctx context.Context, _ Input) (*Output, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	e := newEngine(t, r, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := e.Render(ctx, "# A", slides.DefaultConfig())
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, slides.KindOf(err))
}

func TestRender_InvalidConfig(t *testing.T) {
	e := newEngine(t, &fakeRenderer{}, Options{})
	_, err := e.Render(context.Background(), "# A", slides.Config{Size: "21:9"})
	require.ErrorIs(t, err, slides.ErrRenderFailed)
}

func TestRender_InitFailureSurfaces(t *testing.T) {
	e := newEngine(t, &fakeRenderer{initErr: errors.New("no runtime")}, Options{})
	_, err := e.Render(context.Background(), "# A", slides.DefaultConfig())
	require.ErrorIs(t, err, slides.ErrInitializationFailed)
}

func TestDestroy_KeepsCacheAndReinitializes(t *testing.T) {
	r := &fakeRenderer{}
	e := newEngine(t, r, Options{})
	cfg := slides.DefaultConfig()

	_, err := e.Render(context.Background(), "# A", cfg)
	require.NoError(t, err)

	require.NoError(t, e.Destroy())
	require.Equal(t, StateUninitialized, e.State())
	require.True(t, e.Cache().HasVersion("# A", cfg, e.Themes().Generation()))

	_, err = e.Render(context.Background(), "# A", cfg)
	require.NoError(t, err)
	initCalls, renderCalls := r.calls()
	require.Equal(t, 2, initCalls)
	require.Equal(t, 1, renderCalls)
	require.Equal(t, 1, r.closeCalls)
}

func TestDestroy_FailsInflightInitialize(t *testing.T) {
	gate := make(chan struct{})
	r := &fakeRenderer{initGate: gate}
	e := newEngine(t, r, Options{})

	errc := make(chan error, 1)
	go func() { errc <- e.Initialize(context.Background()) }()
	require.Eventually(t, func() bool { return e.State() == StateInitializing }, time.Second, time.Millisecond)

	require.NoError(t, e.Destroy())
	close(gate)

	err := <-errc
	require.ErrorIs(t, err, slides.ErrInitializationFailed)
	require.Equal(t, StateUninitialized, e.State())
}

func TestRender_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	e := newEngine(t, &fakeRenderer{}, Options{Tracer: provider.Tracer("test")})

	for i := 0; i < 2; i++ {
		_, err := e.Render(context.Background(), "# A", slides.DefaultConfig())
		require.NoError(t, err)
	}

	var hits []bool
	var sawInit bool
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case tracing.SpanEngineInitialize:
			sawInit = true
		case tracing.SpanEngineRender:
			for _, kv := range span.Attributes() {
				if string(kv.Key) == tracing.AttrCacheHit {
					hits = append(hits, kv.Value.AsBool())
				}
			}
		}
	}
	require.True(t, sawInit)
	require.Equal(t, []bool{false, true}, hits)
}
