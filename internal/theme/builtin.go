package theme

import (
	"embed"
	"fmt"
	"path"
)

//go:embed themes/*.css
var builtinFS embed.FS

// builtinOrder is the order List reports the bundled themes in.
var builtinOrder = []string{"default", "gaia", "uncover", "dark", "light"}

// BaseStylesheet is prepended to every composed stylesheet. It holds slide
// geometry, pagination markers and layout primitives shared by all themes.
const BaseStylesheet = `section {
  box-sizing: border-box;
  position: relative;
  overflow: hidden;
  width: var(--slide-width, 1280px);
  height: var(--slide-height, 720px);
  background-size: cover;
  background-position: center;
}
section::after {
  position: absolute;
  right: 30px;
  bottom: 21px;
  font-size: 24px;
}
section[data-paginate]::after {
  content: attr(data-paginate);
}
section img {
  max-width: 100%;
}
section table {
  border-collapse: collapse;
}
section table th,
section table td {
  border: 1px solid currentColor;
  padding: 0.2em 0.6em;
}
`

// Builtins returns the bundled themes in their canonical order.
func Builtins() ([]Theme, error) {
	themes := make([]Theme, 0, len(builtinOrder))
	for _, id := range builtinOrder {
		data, err := builtinFS.ReadFile(path.Join("themes", id+".css"))
		if err != nil {
			return nil, fmt.Errorf("reading built-in theme %s: %w", id, err)
		}
		t, err := Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing built-in theme %s: %w", id, err)
		}
		themes = append(themes, t)
	}
	return themes, nil
}
