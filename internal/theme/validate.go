package theme

import "fmt"

// Validate runs a structural check over css and returns human readable
// problems. It never fails: nil means no problems were found.
//
// The check covers balanced braces, unterminated comments and strings, and
// template placeholders such as "{{ accent }}" left behind by a generator.
// Braces inside comments and strings are ignored.
func Validate(css string) []string {
	var (
		problems []string
		opens    []int // line numbers of unmatched '{'
		line     = 1
	)

	for i := 0; i < len(css); i++ {
		ch := css[i]
		switch {
		case ch == '\n':
			line++

		case ch == '/' && i+1 < len(css) && css[i+1] == '*':
			start := line
			i += 2
			closed := false
			for ; i < len(css); i++ {
				if css[i] == '\n' {
					line++
				}
				if css[i] == '*' && i+1 < len(css) && css[i+1] == '/' {
					i++
					closed = true
					break
				}
			}
			if !closed {
				problems = append(problems, fmt.Sprintf("line %d: unterminated comment", start))
			}

		case ch == '"' || ch == '\'':
			start := line
			quote := ch
			closed := false
			for i++; i < len(css); i++ {
				c := css[i]
				if c == '\\' {
					i++
					continue
				}
				if c == quote {
					closed = true
					break
				}
				if c == '\n' {
					break
				}
			}
			if !closed {
				problems = append(problems, fmt.Sprintf("line %d: unterminated string", start))
				if i < len(css) && css[i] == '\n' {
					line++
				}
			}

		case ch == '{' && i+1 < len(css) && css[i+1] == '{':
			problems = append(problems, fmt.Sprintf("line %d: template placeholder %q", line, placeholder(css[i:])))
			for i += 2; i < len(css); i++ {
				if css[i] == '\n' {
					line++
				}
				if css[i] == '}' && i+1 < len(css) && css[i+1] == '}' {
					i++
					break
				}
			}

		case ch == '{':
			opens = append(opens, line)

		case ch == '}':
			if len(opens) == 0 {
				problems = append(problems, fmt.Sprintf("line %d: unexpected '}'", line))
				continue
			}
			opens = opens[:len(opens)-1]
		}
	}

	for _, l := range opens {
		problems = append(problems, fmt.Sprintf("line %d: unclosed '{'", l))
	}
	return problems
}

func placeholder(s string) string {
	const maxLen = 32
	end := len(s)
	for i := 2; i+1 < len(s); i++ {
		if s[i] == '}' && s[i+1] == '}' {
			end = i + 2
			break
		}
		if s[i] == '\n' {
			end = i
			break
		}
	}
	if end > maxLen {
		return s[:maxLen] + "..."
	}
	return s[:end]
}
