package slides

// UntitledSlide is the title given to a slide without any heading.
const UntitledSlide = "Untitled"

// Slide is one rendered slide.
type Slide struct {
	// Index is the 1-based position in the deck.
	Index           int    `json:"index"`
	HTML            string `json:"html"`
	Background      string `json:"background,omitempty"`
	BackgroundImage string `json:"background_image,omitempty"`
	Title           string `json:"title"`
}

// Result is a complete render of one markdown document.
type Result struct {
	Slides      []Slide `json:"slides"`
	HTML        string  `json:"html"`
	CSS         string  `json:"css"`
	TotalSlides int     `json:"total_slides"`
}

// Slide returns the slide at the 1-based index, or false when out of range.
func (r *Result) Slide(index int) (Slide, bool) {
	if r == nil || index < 1 || index > len(r.Slides) {
		return Slide{}, false
	}
	return r.Slides[index-1], true
}

// Titles returns the slide titles in order.
func (r *Result) Titles() []string {
	if r == nil {
		return nil
	}
	titles := make([]string, len(r.Slides))
	for i, s := range r.Slides {
		titles[i] = s.Title
	}
	return titles
}
