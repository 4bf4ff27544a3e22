package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/slidepipe/internal/config"
	"github.com/zjrosen/slidepipe/internal/presentation"
	"github.com/zjrosen/slidepipe/internal/slides"
)

func parsedFlags(t *testing.T, args ...string) (*renderFlags, *pflag.FlagSet) {
	t.Helper()
	var f renderFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse(args))
	return &f, fs
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"render", "preview", "themes", "init"} {
		require.True(t, names[want], "missing command %s", want)
	}
}

func TestRenderFlags_OnlyChangedFlagsPatch(t *testing.T) {
	f, fs := parsedFlags(t)
	p, err := f.patch(fs)
	require.NoError(t, err)
	require.True(t, p.IsEmpty())

	f, fs = parsedFlags(t, "--theme", "gaia", "--paginate", "--math", "katex", "--size", "4:3")
	p, err = f.patch(fs)
	require.NoError(t, err)
	require.Equal(t, "gaia", *p.Theme)
	require.True(t, *p.Paginate)
	require.Equal(t, slides.MathMode("katex"), *p.Math)
	require.Equal(t, slides.SizeStandard, *p.Size)
	require.Nil(t, p.HTML)
}

func TestRenderFlags_CustomDimensions(t *testing.T) {
	f, fs := parsedFlags(t, "--size", "800x600")
	p, err := f.patch(fs)
	require.NoError(t, err)
	require.Nil(t, p.Size)
	require.Equal(t, 800, *p.Width)
	require.Equal(t, 600, *p.Height)
}

func TestRenderFlags_BadSize(t *testing.T) {
	f, fs := parsedFlags(t, "--size", "huge")
	_, err := f.patch(fs)
	require.ErrorContains(t, err, "--size")
}

func TestRenderFlags_CSSFileRead(t *testing.T) {
	css := filepath.Join(t.TempDir(), "extra.css")
	require.NoError(t, os.WriteFile(css, []byte("h1 { color: red; }"), 0o600))

	f, fs := parsedFlags(t, "--css", css)
	p, err := f.patch(fs)
	require.NoError(t, err)
	require.Equal(t, "h1 { color: red; }", *p.CustomCSS)

	f, fs = parsedFlags(t, "--css", filepath.Join(t.TempDir(), "missing.css"))
	_, err = f.patch(fs)
	require.ErrorContains(t, err, "--css")
}

func TestRenderFlags_OverrideConfigFile(t *testing.T) {
	old := cfg
	t.Cleanup(func() { cfg = old })
	cfg = config.Defaults()
	cfg.Render.Theme = "dark"

	f, fs := parsedFlags(t)
	c, err := f.slidesConfig(fs)
	require.NoError(t, err)
	require.Equal(t, "dark", c.Theme)

	f, fs = parsedFlags(t, "--theme", "light")
	c, err = f.slidesConfig(fs)
	require.NoError(t, err)
	require.Equal(t, "light", c.Theme)
}

func TestReadDeck_Stdin(t *testing.T) {
	md, err := readDeck("-", strings.NewReader("# Hi"))
	require.NoError(t, err)
	require.Equal(t, "# Hi", md)

	_, err = readDeck(filepath.Join(t.TempDir(), "nope.md"), nil)
	require.ErrorContains(t, err, "reading deck")
}

func TestRenderCommand_WritesJSON(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(cfgPath))
	deck := filepath.Join(dir, "talk.md")
	require.NoError(t, os.WriteFile(deck, []byte("# Intro\n\n---\n\n# Outro\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgPath, "render", deck})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	var dto presentation.RenderDTO
	require.NoError(t, json.Unmarshal(out.Bytes(), &dto))
	require.Equal(t, 2, dto.TotalSlides)
	require.Equal(t, []string{"Intro", "Outro"}, dto.Titles)
	require.Empty(t, dto.HTML, "html only with --full")
}

func TestInitCommand_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	initForce = false
	t.Cleanup(func() { initForce = false })

	var out bytes.Buffer
	initCmd.SetOut(&out)
	require.NoError(t, runInit(initCmd, []string{path}))
	require.Contains(t, out.String(), "Wrote")

	err := runInit(initCmd, []string{path})
	require.ErrorContains(t, err, "already exists")

	initForce = true
	require.NoError(t, runInit(initCmd, []string{path}))
}
