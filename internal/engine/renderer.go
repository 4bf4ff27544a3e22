package engine

import (
	"context"
	"errors"
)

// ErrNotInitialized is returned by a Renderer asked to render before Init.
var ErrNotInitialized = errors.New("renderer not initialized")

// Renderer turns preprocessed markdown into slides. Init is called once
// before any Render; Close releases whatever Init acquired.
type Renderer interface {
	Init(ctx context.Context) error
	Render(ctx context.Context, in Input) (*Output, error)
	Close() error
}

// Input is one render request as seen by a Renderer.
type Input struct {
	// Markdown carries the directives derived from the render config in its
	// front matter.
	Markdown string
	// CSS is the composed stylesheet.
	CSS             string
	HTML            bool
	AllowLocalFiles bool
}

// RawSlide is one slide as produced by a Renderer.
type RawSlide struct {
	HTML            string
	Background      string
	BackgroundImage string
}

// Output is the raw result of a Renderer.
type Output struct {
	HTML   string
	CSS    string
	Slides []RawSlide
}
