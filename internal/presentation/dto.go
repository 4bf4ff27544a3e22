package presentation

import (
	"github.com/zjrosen/slidepipe/internal/slides"
	"github.com/zjrosen/slidepipe/internal/theme"
)

// RenderDTO is the JSON shape of a render.
type RenderDTO struct {
	Source      string     `json:"source"`
	TotalSlides int        `json:"total_slides"`
	Titles      []string   `json:"titles"`
	Slides      []SlideDTO `json:"slides"`
	CSS         string     `json:"css,omitempty"`
	HTML        string     `json:"html,omitempty"`
}

// SlideDTO is one slide in a RenderDTO.
type SlideDTO struct {
	Index           int    `json:"index"`
	Title           string `json:"title"`
	HTML            string `json:"html,omitempty"`
	Background      string `json:"background,omitempty"`
	BackgroundImage string `json:"background_image,omitempty"`
}

// FromResult converts a render result. With full unset only titles and
// backgrounds are kept.
func FromResult(source string, r *slides.Result, full bool) RenderDTO {
	dto := RenderDTO{
		Source:      source,
		TotalSlides: r.TotalSlides,
		Titles:      r.Titles(),
		Slides:      make([]SlideDTO, 0, len(r.Slides)),
	}
	if full {
		dto.CSS = r.CSS
		dto.HTML = r.HTML
	}
	for _, s := range r.Slides {
		sd := SlideDTO{
			Index:           s.Index,
			Title:           s.Title,
			Background:      s.Background,
			BackgroundImage: s.BackgroundImage,
		}
		if full {
			sd.HTML = s.HTML
		}
		dto.Slides = append(dto.Slides, sd)
	}
	return dto
}

// ThemeDTO describes a registered theme.
type ThemeDTO struct {
	theme.Info
	Default bool `json:"default"`
}

// FromThemes marks the default theme in a listing.
func FromThemes(infos []theme.Info, defaultID string) []ThemeDTO {
	out := make([]ThemeDTO, len(infos))
	for i, info := range infos {
		out[i] = ThemeDTO{Info: info, Default: info.ID == defaultID}
	}
	return out
}
