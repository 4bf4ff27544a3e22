package tracing

// Span names.
const (
	SpanEngineInitialize = "engine.initialize"
	SpanEngineRender     = "engine.render"
	SpanRendererInvoke   = "renderer.invoke"
)

// Span attribute keys.
const (
	AttrCacheHit    = "render.cache_hit"
	AttrTheme       = "render.theme"
	AttrSlideCount  = "render.slide_count"
	AttrMarkdownLen = "render.markdown_bytes"
	AttrErrorKind   = "error.kind"
)

// Span event names.
const (
	EventThemeFallback  = "theme.fallback"
	EventDirectiveAdded = "directive.injected"
)
