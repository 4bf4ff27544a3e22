// Package markdown is the default slide renderer. It converts markdown to
// slide sections with goldmark, highlights code with chroma, marks up math
// for MathJax or KaTeX and sanitizes the output with bluemonday.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/zjrosen/slidepipe/internal/engine"
	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/slides"
)

// DefaultCodeStyle is the chroma style used for code blocks.
const DefaultCodeStyle = "github"

// Options configures a Renderer.
type Options struct {
	// Highlight enables chroma syntax highlighting of fenced code.
	Highlight bool
	// Sanitize runs the output through bluemonday.
	Sanitize bool
	// CodeStyle is a chroma style name. Empty means DefaultCodeStyle.
	CodeStyle string
}

type variant struct {
	unsafe bool
	math   bool
}

// Renderer implements engine.Renderer.
type Renderer struct {
	opts Options

	mu       sync.RWMutex
	ready    bool
	variants map[variant]goldmark.Markdown
	codeCSS  string
	policy   *bluemonday.Policy
	// localPolicy additionally allows file: URLs.
	localPolicy *bluemonday.Policy
}

var _ engine.Renderer = (*Renderer)(nil)

// New creates a Renderer. Init must be called before Render.
func New(opts Options) *Renderer {
	if opts.CodeStyle == "" {
		opts.CodeStyle = DefaultCodeStyle
	}
	return &Renderer{opts: opts}
}

// Init builds the goldmark pipelines and the code stylesheet.
func (r *Renderer) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}

	var codeCSS string
	if r.opts.Highlight {
		style, ok := styles.Registry[r.opts.CodeStyle]
		if !ok {
			return fmt.Errorf("unknown code style %q", r.opts.CodeStyle)
		}
		var buf bytes.Buffer
		if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&buf, style); err != nil {
			return fmt.Errorf("writing code stylesheet: %w", err)
		}
		codeCSS = buf.String()
	}

	variants := make(map[variant]goldmark.Markdown, 4)
	for _, unsafe := range []bool{false, true} {
		for _, math := range []bool{false, true} {
			v := variant{unsafe: unsafe, math: math}
			variants[v] = r.newMarkdown(v)
		}
	}

	r.variants = variants
	r.codeCSS = codeCSS
	r.policy = newPolicy(false)
	r.localPolicy = newPolicy(true)
	r.ready = true
	log.Debug(log.CatRender, "markdown renderer initialized", "highlight", r.opts.Highlight, "code_style", r.opts.CodeStyle)
	return nil
}

func (r *Renderer) newMarkdown(v variant) goldmark.Markdown {
	extensions := []goldmark.Extender{extension.GFM}
	if r.opts.Highlight {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(r.opts.CodeStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	}
	if v.math {
		extensions = append(extensions, mathjax.MathJax)
	}

	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if v.unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	}
	return goldmark.New(rendererOpts...)
}

// Render converts in.Markdown into slides. Malformed front matter or
// directive values are reported as errors.
func (r *Renderer) Render(ctx context.Context, in engine.Input) (*engine.Output, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.ready {
		return nil, engine.ErrNotInitialized
	}

	settings, sources, err := parseDeck(in.Markdown)
	if err != nil {
		return nil, err
	}

	md := r.variants[variant{unsafe: in.HTML, math: settings.math != slides.MathOff}]
	policy := r.policy
	if in.AllowLocalFiles {
		policy = r.localPolicy
	}

	out := &engine.Output{Slides: make([]engine.RawSlide, 0, len(sources))}
	var deck strings.Builder
	fmt.Fprintf(&deck, `<div class="slidepipe" data-size="%dx%d">`, settings.width, settings.height)

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var body bytes.Buffer
		if err := md.Convert([]byte(src.body), &body); err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		content := body.String()
		if r.opts.Sanitize {
			content = policy.Sanitize(content)
		}

		bgImage := src.directives.backgroundImage
		if bgImage != "" && !in.AllowLocalFiles && isLocalFile(bgImage) {
			log.Warn(log.CatRender, "local background image blocked", "slide", i+1)
			bgImage = ""
		}

		section := wrapSection(i+1, content, src.directives, bgImage, settings.math)
		deck.WriteString(section)
		out.Slides = append(out.Slides, engine.RawSlide{
			HTML:            section,
			Background:      src.directives.backgroundColor,
			BackgroundImage: bgImage,
		})
	}
	deck.WriteString("</div>")

	out.HTML = deck.String()
	out.CSS = r.stylesheet(in.CSS, settings)
	return out, nil
}

func (r *Renderer) stylesheet(themeCSS string, settings deckSettings) string {
	var b strings.Builder
	b.WriteString(themeCSS)
	fmt.Fprintf(&b, "\nsection {\n  --slide-width: %dpx;\n  --slide-height: %dpx;\n}\n", settings.width, settings.height)
	if r.codeCSS != "" {
		b.WriteString(r.codeCSS)
	}
	return b.String()
}

// Close drops the goldmark pipelines. Init may be called again afterwards.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = false
	r.variants = nil
	r.codeCSS = ""
	return nil
}

func wrapSection(page int, content string, d slideDirectives, bgImage string, math slides.MathMode) string {
	var b strings.Builder
	b.WriteString(`<section id="`)
	b.WriteString(strconv.Itoa(page))
	b.WriteString(`"`)
	if d.class != "" {
		b.WriteString(` class="`)
		b.WriteString(html.EscapeString(d.class))
		b.WriteString(`"`)
	}
	if d.paginate {
		b.WriteString(` data-paginate="`)
		b.WriteString(strconv.Itoa(page))
		b.WriteString(`"`)
	}
	if math != slides.MathOff {
		b.WriteString(` data-math="`)
		b.WriteString(string(math))
		b.WriteString(`"`)
	}

	var style []string
	if d.backgroundColor != "" {
		style = append(style, "background-color: "+d.backgroundColor)
	}
	if bgImage != "" {
		style = append(style, `background-image: url("`+bgImage+`")`)
	}
	if len(style) > 0 {
		b.WriteString(` style="`)
		b.WriteString(html.EscapeString(strings.Join(style, "; ")))
		b.WriteString(`"`)
	}

	b.WriteString(">\n")
	b.WriteString(content)
	b.WriteString("</section>\n")
	return b.String()
}

func isLocalFile(ref string) bool {
	return strings.HasPrefix(strings.ToLower(ref), "file:")
}
