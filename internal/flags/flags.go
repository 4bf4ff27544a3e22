// Package flags provides feature flags for the render pipeline.
// Flags are read-only after initialization. Unknown flags read as false
// unless a default is declared below.
package flags

import (
	"maps"

	"github.com/zjrosen/slidepipe/internal/log"
)

const (
	// FlagMinifyCSS minifies composed theme stylesheets.
	FlagMinifyCSS = "minify-css"

	// FlagSanitizeHTML runs rendered slide HTML through bluemonday.
	FlagSanitizeHTML = "sanitize-html"

	// FlagHighlightCode enables chroma highlighting of fenced code blocks.
	FlagHighlightCode = "highlight-code"
)

// defaults apply when the config does not mention a flag.
var defaults = map[string]bool{
	FlagMinifyCSS:     false,
	FlagSanitizeHTML:  true,
	FlagHighlightCode: true,
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map layered over the declared
// defaults. A nil map yields the defaults.
func New(flags map[string]bool) *Registry {
	merged := maps.Clone(defaults)
	maps.Copy(merged, flags)
	r := &Registry{flags: merged}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(merged), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags and on a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}

// Defaults returns a copy of the declared defaults.
func Defaults() map[string]bool {
	return maps.Clone(defaults)
}
