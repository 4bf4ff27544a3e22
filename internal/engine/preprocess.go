package engine

import (
	"strconv"
	"strings"

	"github.com/zjrosen/slidepipe/internal/slides"
)

// Preprocess fills in the front-matter directives implied by cfg that the
// author did not write. Directives present in explicit are never touched.
// It returns the new markdown and the injected keys in injection order.
func Preprocess(markdown string, cfg slides.Config, explicit slides.Directives, themeID string) (string, []string) {
	type directive struct {
		key   string
		value string
	}
	candidates := []directive{
		{slides.DirectiveTheme, strconv.Quote(themeID)},
		{slides.DirectiveSize, strconv.Quote(cfg.SizeDirective())},
		{slides.DirectiveMath, strconv.Quote(string(cfg.Math))},
	}
	if cfg.Paginate {
		candidates = append(candidates, directive{slides.DirectivePaginate, "true"})
	}
	if cfg.BackgroundImage != "" {
		candidates = append(candidates, directive{slides.DirectiveBackgroundImage, strconv.Quote(cfg.BackgroundImage)})
	}

	var (
		lines    []string
		injected []string
	)
	for _, d := range candidates {
		if explicit.Has(d.key) {
			continue
		}
		lines = append(lines, d.key+": "+d.value)
		injected = append(injected, d.key)
	}

	fm, body, hasFrontMatter := slides.SplitFrontMatter(markdown)
	if len(lines) == 0 {
		return slides.Normalize(markdown), nil
	}

	var b strings.Builder
	b.WriteString("---\n")
	if hasFrontMatter && strings.TrimSpace(fm) != "" {
		b.WriteString(strings.TrimRight(fm, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n---\n")
	b.WriteString(body)
	return b.String(), injected
}
