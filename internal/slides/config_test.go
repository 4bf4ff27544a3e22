package slides

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	w, h := cfg.Dimensions()
	require.Equal(t, 1280, w)
	require.Equal(t, 720, h)
}

func TestWithOverrides_ReturnsNewValue(t *testing.T) {
	base := DefaultConfig()

	next, err := base.WithOverrides(Patch{Theme: Ptr("gaia"), Paginate: Ptr(true)})
	require.NoError(t, err)

	require.Equal(t, "gaia", next.Theme)
	require.True(t, next.Paginate)
	require.Equal(t, DefaultTheme, base.Theme, "original config must not change")
	require.False(t, base.Paginate)
}

func TestWithOverrides_ExplicitDimensionsClearPreset(t *testing.T) {
	next, err := DefaultConfig().WithOverrides(Patch{Width: Ptr(800), Height: Ptr(600)})
	require.NoError(t, err)
	require.Equal(t, SizePreset(""), next.Size)
	require.Equal(t, "800x600", next.SizeDirective())

	back, err := next.WithOverrides(Patch{Size: Ptr(SizeStandard)})
	require.NoError(t, err)
	w, h := back.Dimensions()
	require.Equal(t, 960, w)
	require.Equal(t, 720, h)
	require.Zero(t, back.Width)
}

func TestWithOverrides_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
	}{
		{name: "unknown preset", patch: Patch{Size: Ptr(SizePreset("21:9"))}},
		{name: "zero width", patch: Patch{Width: Ptr(0), Height: Ptr(600)}},
		{name: "unknown math", patch: Patch{Math: Ptr(MathMode("latex"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := DefaultConfig()
			got, err := base.WithOverrides(tt.patch)
			require.Error(t, err)
			require.Equal(t, base, got, "failed override returns the original config")
		})
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	require.True(t, Patch{}.IsEmpty())
	require.False(t, Patch{HTML: Ptr(false)}.IsEmpty())
}

func TestCanonical_DiffersPerField(t *testing.T) {
	base := DefaultConfig()
	variants := []Patch{
		{Theme: Ptr("gaia")},
		{Size: Ptr(SizeStandard)},
		{Width: Ptr(1280), Height: Ptr(720)},
		{HTML: Ptr(true)},
		{Paginate: Ptr(true)},
		{Math: Ptr(MathKaTeX)},
		{AllowLocalFiles: Ptr(true)},
		{CustomCSS: Ptr("h1{color:red}")},
		{BackgroundImage: Ptr("bg.png")},
	}
	seen := map[string]bool{string(base.Canonical()): true}
	for _, p := range variants {
		cfg, err := base.WithOverrides(p)
		require.NoError(t, err)
		key := string(cfg.Canonical())
		require.False(t, seen[key], "canonical form collided for %+v", p)
		seen[key] = true
	}
}

func TestCanonical_Deterministic(t *testing.T) {
	a := Config{Theme: "dark", Size: SizeWide, Math: MathOff, CustomCSS: "a{}"}
	b := Config{CustomCSS: "a{}", Math: MathOff, Size: SizeWide, Theme: "dark"}
	require.True(t, bytes.Equal(a.Canonical(), b.Canonical()))
}

func TestCanonical_LengthPrefixPreventsAmbiguity(t *testing.T) {
	a := Config{Theme: "a;custom_css=0:", Size: SizeWide, Math: MathOff}
	b := Config{Theme: "a", Size: SizeWide, Math: MathOff, CustomCSS: ""}
	require.NotEqual(t, string(a.Canonical()), string(b.Canonical()))
}

func TestParseSize(t *testing.T) {
	preset, w, h, err := ParseSize("4:3")
	require.NoError(t, err)
	require.Equal(t, SizeStandard, preset)
	require.Zero(t, w)
	require.Zero(t, h)

	preset, w, h, err = ParseSize("1024x768")
	require.NoError(t, err)
	require.Equal(t, SizePreset(""), preset)
	require.Equal(t, 1024, w)
	require.Equal(t, 768, h)

	_, _, _, err = ParseSize("huge")
	require.Error(t, err)
	_, _, _, err = ParseSize("0x10")
	require.Error(t, err)
}
