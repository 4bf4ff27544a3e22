package slides

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directive keys understood by the pipeline.
const (
	DirectiveTheme           = "theme"
	DirectivePaginate        = "paginate"
	DirectiveSize            = "size"
	DirectiveMath            = "math"
	DirectiveBackgroundImage = "backgroundImage"
	DirectiveBackgroundColor = "backgroundColor"
	DirectiveClass           = "class"
)

// frontMatterDelimiter opens and closes the front-matter block.
const frontMatterDelimiter = "---"

// commentDirective matches a line holding nothing but a directive comment,
// e.g. "<!-- theme: gaia -->" or "<!-- _class: lead -->".
var commentDirective = regexp.MustCompile(`^\s*<!--\s*(_?[A-Za-z][A-Za-z0-9]*)\s*:\s*(.*?)\s*-->\s*$`)

// Directives maps directive keys to their raw string values.
type Directives map[string]string

// Has reports whether key was declared.
func (d Directives) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Normalize converts CRLF line endings to LF.
func Normalize(markdown string) string {
	return strings.ReplaceAll(markdown, "\r\n", "\n")
}

// SplitFrontMatter separates a leading front-matter block from the body.
// The block must open on the first line with "---" and close with a line
// holding only "---". fm excludes both delimiter lines.
func SplitFrontMatter(markdown string) (fm string, body string, ok bool) {
	markdown = Normalize(markdown)
	rest, found := strings.CutPrefix(markdown, frontMatterDelimiter+"\n")
	if !found {
		return "", markdown, false
	}
	if strings.HasPrefix(rest, frontMatterDelimiter+"\n") || rest == frontMatterDelimiter {
		return "", strings.TrimPrefix(strings.TrimPrefix(rest, frontMatterDelimiter), "\n"), true
	}
	idx := strings.Index(rest, "\n"+frontMatterDelimiter+"\n")
	if idx < 0 {
		if strings.HasSuffix(rest, "\n"+frontMatterDelimiter) {
			return rest[:len(rest)-len(frontMatterDelimiter)-1], "", true
		}
		return "", markdown, false
	}
	return rest[:idx], rest[idx+len(frontMatterDelimiter)+2:], true
}

// ParseFrontMatter decodes a front-matter block into directives. Values are
// stringified; nested values are ignored.
func ParseFrontMatter(fm string) (Directives, error) {
	out := Directives{}
	if strings.TrimSpace(fm) == "" {
		return out, nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(fm), &raw); err != nil {
		return scanFrontMatterKeys(fm), fmt.Errorf("parsing front matter: %w", err)
	}
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string, bool, int, int64, float64:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// scanFrontMatterKeys is the fallback for front matter yaml cannot decode:
// any "key: value" line at column zero counts.
func scanFrontMatterKeys(fm string) Directives {
	out := Directives{}
	for _, line := range strings.Split(fm, "\n") {
		if line == "" || line[0] == ' ' || line[0] == '\t' || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return out
}

// ParseCommentDirective parses a standalone directive comment line.
func ParseCommentDirective(line string) (key, value string, ok bool) {
	m := commentDirective.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.Trim(m[2], `"'`), true
}

// ExplicitDirectives returns the global directives the author wrote: keys of
// the leading front-matter block, plus standalone directive comment lines
// outside code fences whose key has no "_" prefix. Later declarations win.
// Text like "theme: x" in ordinary body lines is not a directive.
func ExplicitDirectives(markdown string) Directives {
	fm, body, _ := SplitFrontMatter(markdown)
	out, _ := ParseFrontMatter(fm)
	EachLine(body, func(line string, inFence bool) {
		if inFence {
			return
		}
		key, value, ok := ParseCommentDirective(line)
		if !ok || strings.HasPrefix(key, "_") {
			return
		}
		out[key] = value
	})
	return out
}

// EachLine calls fn for every line of body, reporting whether the line sits
// inside a fenced code block. Fence delimiter lines report inFence true.
func EachLine(body string, fn func(line string, inFence bool)) {
	var fence string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if fence == "" {
			if f := fenceMarker(trimmed); f != "" {
				fence = f
				fn(line, true)
				continue
			}
			fn(line, false)
			continue
		}
		fn(line, true)
		if strings.HasPrefix(trimmed, fence) && strings.TrimSpace(strings.TrimLeft(trimmed, fence[:1])) == "" {
			fence = ""
		}
	}
}

// fenceMarker returns the opening fence run ("```" or "~~~" or longer) of a
// line, or "" if the line does not open a fence.
func fenceMarker(line string) string {
	for _, ch := range []byte{'`', '~'} {
		n := 0
		for n < len(line) && line[n] == ch {
			n++
		}
		if n >= 3 {
			return line[:n]
		}
	}
	return ""
}
