package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	// Pin the color profile so rendered output is stable regardless of
	// the terminal the tests run in.
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func TestSemanticColorsExist(t *testing.T) {
	tests := []struct {
		name  string
		color lipgloss.Color
	}{
		{"ColorSuccess", ColorSuccess},
		{"ColorError", ColorError},
		{"ColorWarning", ColorWarning},
		{"ColorInfo", ColorInfo},
		{"ColorPrimary", ColorPrimary},
		{"ColorSecondary", ColorSecondary},
		{"ColorMuted", ColorMuted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, string(tt.color), "%s should not be empty", tt.name)
		})
	}
}

func TestStatusSymbolsDistinct(t *testing.T) {
	symbols := []string{
		SymbolSuccess,
		SymbolFail,
		SymbolPending,
		SymbolProgress,
		SymbolComplete,
		SymbolSkipped,
	}

	seen := make(map[string]bool)
	for _, s := range symbols {
		assert.NotEmpty(t, s)
		assert.False(t, seen[s], "symbol %q reused", s)
		seen[s] = true
	}
}

func TestStyleHelpers(t *testing.T) {
	// With the Ascii profile the helpers pass text through unchanged.
	assert.Contains(t, Success("done"), "done")
	assert.Contains(t, Error("broken"), "broken")
	assert.Contains(t, Warning("careful"), "careful")
	assert.Contains(t, Muted("aside"), "aside")
}

func TestRenderHeader(t *testing.T) {
	out := RenderHeader(HeaderInfo{
		Version: "v0.2.0",
		Tagline: "HPC cluster onboarding",
		Cluster: "ml007",
	})

	assert.Contains(t, out, "onboard")
	assert.Contains(t, out, "v0.2.0")
	assert.Contains(t, out, "HPC cluster onboarding")
	assert.Contains(t, out, "ml007")
	assert.Contains(t, out, "━")
}

func TestRenderHeaderMinimal(t *testing.T) {
	out := RenderHeader(HeaderInfo{Version: "dev"})

	assert.Contains(t, out, "onboard")
	assert.NotContains(t, out, "cluster:")
}
