package controller

import (
	"github.com/zjrosen/slidepipe/internal/pubsub"
	"github.com/zjrosen/slidepipe/internal/slides"
)

// CurrentIndex returns the 1-based index of the current slide, or 0 when
// nothing has rendered.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// CurrentSlide returns the current slide.
func (c *Controller) CurrentSlide() (slides.Slide, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result.Slide(c.index)
}

// Next moves forward one slide and returns the new index.
func (c *Controller) Next() int {
	return c.move(func(i int) int { return i + 1 })
}

// Prev moves back one slide and returns the new index.
func (c *Controller) Prev() int {
	return c.move(func(i int) int { return i - 1 })
}

// GoTo moves to the 1-based index, clamped to the deck.
func (c *Controller) GoTo(index int) int {
	return c.move(func(int) int { return index })
}

func (c *Controller) move(step func(int) int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil || c.result.TotalSlides == 0 {
		return c.index
	}
	next := min(max(step(c.index), 1), c.result.TotalSlides)
	if next != c.index {
		c.index = next
		c.publishLocked(pubsub.NavigatedEvent)
	}
	return c.index
}

// clampIndexLocked keeps the position valid after a new result.
func (c *Controller) clampIndexLocked() {
	total := 0
	if c.result != nil {
		total = c.result.TotalSlides
	}
	switch {
	case total == 0:
		c.index = 0
	case c.index < 1:
		c.index = 1
	case c.index > total:
		c.index = total
	}
}
