package engine

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zjrosen/slidepipe/internal/slides"
)

const headingSelector = "h1, h2, h3, h4, h5, h6"

// Shape converts renderer output into a Result, numbering slides from 1 and
// titling each from its first heading.
func Shape(out *Output) (*slides.Result, error) {
	result := &slides.Result{
		HTML:        out.HTML,
		CSS:         out.CSS,
		Slides:      make([]slides.Slide, 0, len(out.Slides)),
		TotalSlides: len(out.Slides),
	}
	for i, raw := range out.Slides {
		title, err := Title(raw.HTML)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		result.Slides = append(result.Slides, slides.Slide{
			Index:           i + 1,
			HTML:            raw.HTML,
			Background:      raw.Background,
			BackgroundImage: raw.BackgroundImage,
			Title:           title,
		})
	}
	return result, nil
}

// Title returns the text of the first heading in html, or
// slides.UntitledSlide.
func Title(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing slide html: %w", err)
	}
	text := strings.Join(strings.Fields(doc.Find(headingSelector).First().Text()), " ")
	if text == "" {
		return slides.UntitledSlide, nil
	}
	return text, nil
}
