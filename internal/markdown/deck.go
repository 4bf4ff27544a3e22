package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zjrosen/slidepipe/internal/slides"
)

// slideSeparator splits slides when it stands alone on a line outside code
// fences.
const slideSeparator = "---"

var backgroundImageLine = regexp.MustCompile(`^\s*!\[bg(?:\s[^\]]*)?\]\(\s*([^)\s]+)\s*\)\s*$`)

// deckSettings are the deck-wide directives read from front matter.
type deckSettings struct {
	width, height int
	math          slides.MathMode
}

// slideDirectives are the directives that may change from slide to slide.
type slideDirectives struct {
	paginate        bool
	class           string
	backgroundColor string
	backgroundImage string
}

// slideSource is one slide's markdown with its effective directives.
type slideSource struct {
	body       string
	directives slideDirectives
}

func parseDeck(markdown string) (deckSettings, []slideSource, error) {
	fm, body, _ := slides.SplitFrontMatter(markdown)

	settings := deckSettings{math: slides.MathMathJax}
	settings.width, settings.height, _ = slides.PresetDimensions(slides.SizeWide)

	global, err := slides.ParseFrontMatter(fm)
	if err != nil {
		return settings, nil, fmt.Errorf("front matter: %w", err)
	}

	sticky := slideDirectives{}
	if err := applyGlobal(&settings, &sticky, global); err != nil {
		return settings, nil, err
	}

	chunks := splitSlides(body)
	out := make([]slideSource, 0, len(chunks))
	for _, chunk := range chunks {
		src, err := collectSlide(chunk, &settings, &sticky)
		if err != nil {
			return settings, nil, err
		}
		out = append(out, src)
	}
	return settings, out, nil
}

func applyGlobal(settings *deckSettings, sticky *slideDirectives, d slides.Directives) error {
	if v, ok := d[slides.DirectiveSize]; ok {
		preset, w, h, err := slides.ParseSize(v)
		if err != nil {
			return err
		}
		if preset != "" {
			w, h, _ = slides.PresetDimensions(preset)
		}
		settings.width, settings.height = w, h
	}
	if v, ok := d[slides.DirectiveMath]; ok {
		switch mode := slides.MathMode(strings.ToLower(v)); mode {
		case slides.MathMathJax, slides.MathKaTeX, slides.MathOff:
			settings.math = mode
		default:
			return fmt.Errorf("unknown math mode %q", v)
		}
	}
	for key, value := range d {
		if err := sticky.apply(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *slideDirectives) apply(key, value string) error {
	switch key {
	case slides.DirectivePaginate:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("paginate must be true or false, got %q", value)
		}
		s.paginate = b
	case slides.DirectiveClass:
		s.class = value
	case slides.DirectiveBackgroundColor:
		s.backgroundColor = value
	case slides.DirectiveBackgroundImage:
		s.backgroundImage = unwrapURL(value)
	}
	return nil
}

// splitSlides cuts body on separator lines that are not inside code fences.
func splitSlides(body string) []string {
	var (
		chunks  []string
		current []string
	)
	slides.EachLine(body, func(line string, inFence bool) {
		if !inFence && strings.TrimSpace(line) == slideSeparator {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = current[:0]
			return
		}
		current = append(current, line)
	})
	return append(chunks, strings.Join(current, "\n"))
}

// collectSlide strips directive comments and background image lines from
// chunk. Sticky directives update sticky for this and later slides; local
// ones (leading underscore) only affect this slide.
func collectSlide(chunk string, settings *deckSettings, sticky *slideDirectives) (slideSource, error) {
	local := map[string]string{}
	var (
		kept    []string
		bgImage string
		err     error
	)
	slides.EachLine(chunk, func(line string, inFence bool) {
		if err != nil {
			return
		}
		if !inFence {
			if key, value, ok := slides.ParseCommentDirective(line); ok {
				if name, isLocal := strings.CutPrefix(key, "_"); isLocal {
					local[name] = value
				} else {
					err = applyGlobal(settings, sticky, slides.Directives{key: value})
				}
				return
			}
			if m := backgroundImageLine.FindStringSubmatch(line); m != nil {
				bgImage = m[1]
				return
			}
		}
		kept = append(kept, line)
	})
	if err != nil {
		return slideSource{}, err
	}

	d := *sticky
	for key, value := range local {
		if err := d.apply(key, value); err != nil {
			return slideSource{}, err
		}
	}
	if bgImage != "" {
		d.backgroundImage = bgImage
	}
	return slideSource{body: strings.Join(kept, "\n"), directives: d}, nil
}

// unwrapURL accepts both a bare reference and the CSS url(...) form.
func unwrapURL(v string) string {
	v = strings.TrimSpace(v)
	if inner, ok := strings.CutPrefix(v, "url("); ok {
		v = strings.TrimSuffix(inner, ")")
	}
	return strings.Trim(v, `"'`)
}
