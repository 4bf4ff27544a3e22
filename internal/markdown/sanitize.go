package markdown

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var classNames = regexp.MustCompile(`^[\w\- ]+$`)

// newPolicy starts from bluemonday's UGC policy and keeps what the renderer
// emits: heading ids, chroma and math classes, and task list checkboxes.
func newPolicy(allowLocalFiles bool) *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").Globally()
	p.AllowAttrs("class").Matching(classNames).Globally()
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	p.AllowElements("input")
	if allowLocalFiles {
		p.AllowURLSchemes("mailto", "http", "https", "file")
	}
	return p
}
