package theme

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/zeebo/blake3"

	"github.com/zjrosen/slidepipe/internal/cachemanager"
	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/slides"
)

const cssMediaType = "text/css"

// Composition is the outcome of Compose.
type Composition struct {
	// CSS is base + theme + custom CSS. Custom CSS with problems is left out.
	CSS string
	// ThemeID is the theme actually used.
	ThemeID string
	// FellBack is set when the requested theme was unknown.
	FellBack bool
	// Problems lists structural problems found in the custom CSS.
	Problems []string
}

// Valid reports whether the custom CSS passed validation.
func (c Composition) Valid() bool {
	return len(c.Problems) == 0
}

// Options configures a Registry.
type Options struct {
	// DefaultID is the fallback theme. Defaults to slides.DefaultTheme.
	DefaultID string
	// Minify compresses composed stylesheets.
	Minify bool
}

type composeInput struct {
	id        string
	customCSS string
}

// Registry holds named themes. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	themes    map[string]Theme
	order     []string
	defaultID string
	minify    bool
	minifier  *minify.M
	// generation counts registrations.
	generation uint64

	composed *cachemanager.ReadThroughCache[string, Composition, composeInput]
}

// NewRegistry creates a registry holding the built-in themes.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.DefaultID == "" {
		opts.DefaultID = slides.DefaultTheme
	}

	m := minify.New()
	m.AddFunc(cssMediaType, css.Minify)

	r := &Registry{
		themes:    make(map[string]Theme),
		defaultID: opts.DefaultID,
		minify:    opts.Minify,
		minifier:  m,
	}
	r.composed = cachemanager.NewReadThroughCache[string, Composition, composeInput](
		cachemanager.NewInMemoryCacheManager[string, Composition]("composed-stylesheets", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval),
		func(_ context.Context, in composeInput) (Composition, error) {
			return r.compose(in.id, in.customCSS), nil
		},
		false,
	)

	builtins, err := Builtins()
	if err != nil {
		return nil, err
	}
	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	if _, ok := r.themes[r.defaultID]; !ok {
		return nil, fmt.Errorf("%w: default theme %q is not registered", ErrInvalidTheme, r.defaultID)
	}
	return r, nil
}

// Register adds or replaces a theme. A replaced theme keeps its position in
// List.
func (r *Registry) Register(t Theme) error {
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTheme)
	}
	if problems := Validate(t.CSS); len(problems) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidTheme, t.ID, strings.Join(problems, "; "))
	}
	if t.Name == "" {
		t.Name = t.ID
	}

	r.mu.Lock()
	if _, exists := r.themes[t.ID]; !exists {
		r.order = append(r.order, t.ID)
	}
	r.themes[t.ID] = t
	r.generation++
	r.mu.Unlock()

	r.composed.Invalidate(context.Background())
	log.Debug(log.CatTheme, "registered theme", "id", t.ID)
	return nil
}

// LoadDir registers every *.css file in dir that carries a theme header.
// Files without a header are skipped with a warning. It returns the number of
// themes registered.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading theme dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".css") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	loaded := 0
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // G304: dir is the configured theme directory
		if err != nil {
			return loaded, fmt.Errorf("reading theme %s: %w", name, err)
		}
		t, err := Parse(string(data))
		if err != nil {
			log.Warn(log.CatTheme, "skipping css file", "file", name, "error", err)
			continue
		}
		if err := r.Register(t); err != nil {
			return loaded, fmt.Errorf("registering %s: %w", name, err)
		}
		loaded++
	}
	log.Info(log.CatTheme, "loaded themes", "dir", dir, "count", loaded)
	return loaded, nil
}

// Generation changes every time a theme is registered or replaced. Caches of
// composed output key on it.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.themes[id]
	return ok
}

// Get returns the stylesheet of id, or of the default theme when id is
// unknown.
func (r *Registry) Get(id string) string {
	t, _ := r.resolve(id)
	return t.CSS
}

// Resolve returns the theme id that Get and Compose would use for id.
func (r *Registry) Resolve(id string) (string, bool) {
	t, fellBack := r.resolve(id)
	return t.ID, fellBack
}

func (r *Registry) resolve(id string) (Theme, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.themes[id]; ok {
		return t, false
	}
	log.Warn(log.CatTheme, "unknown theme, using default", "requested", id, "default", r.defaultID)
	return r.themes[r.defaultID], true
}

// Compose concatenates the base stylesheet, the theme stylesheet and
// customCSS, in that order. It never fails; custom CSS problems are reported
// in the result. Results are memoized.
func (r *Registry) Compose(id, customCSS string) Composition {
	c, _ := r.composed.Get(context.Background(), composeKey(id, customCSS), composeInput{id: id, customCSS: customCSS}, cachemanager.DefaultExpiration)
	c.Problems = append([]string(nil), c.Problems...)
	return c
}

func (r *Registry) compose(id, customCSS string) Composition {
	t, fellBack := r.resolve(id)
	c := Composition{ThemeID: t.ID, FellBack: fellBack}

	var b strings.Builder
	b.WriteString(BaseStylesheet)
	b.WriteString("\n")
	b.WriteString(t.CSS)

	if strings.TrimSpace(customCSS) != "" {
		c.Problems = Validate(customCSS)
		if len(c.Problems) == 0 {
			b.WriteString("\n")
			b.WriteString(customCSS)
		} else {
			log.Warn(log.CatTheme, "custom css rejected", "theme", t.ID, "problems", len(c.Problems))
		}
	}

	c.CSS = b.String()
	if r.minify {
		minified, err := r.minifier.String(cssMediaType, c.CSS)
		if err != nil {
			log.Warn(log.CatTheme, "minify failed, using original stylesheet", "error", err)
		} else {
			c.CSS = minified
		}
	}
	return c
}

// List returns metadata for every theme in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.themes[id].Info())
	}
	return infos
}

// DefaultID returns the fallback theme id.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

func composeKey(id, customCSS string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", len(id), id)))
	_, _ = h.Write([]byte(customCSS))
	return hex.EncodeToString(h.Sum(nil))
}
