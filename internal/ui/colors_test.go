package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestStylesAreFunctional(t *testing.T) {
	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Success", SuccessStyle()},
		{"Error", ErrorStyle()},
		{"Warning", WarningStyle()},
		{"Info", InfoStyle()},
		{"Muted", MutedStyle()},
		{"Header", HeaderStyle()},
	}

	for _, tt := range styles {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				result := tt.style.Render("test text")
				assert.Contains(t, result, "test text")
			})
		})
	}
}

func TestDisableColors(t *testing.T) {
	DisableColors()

	rendered := ErrorStyle().Render("plain")
	assert.Equal(t, "plain", rendered)
}

func TestConfigureColors_NotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	assert.False(t, IsTerminal(f))
	ConfigureColors(false, f)
	assert.Equal(t, "x", SuccessStyle().Render("x"))
}

func TestIsTerminal_Nil(t *testing.T) {
	assert.False(t, IsTerminal(nil))
}

func TestPrintWarning(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	PrintWarning("battery source disabled")

	w.Close()
	os.Stderr = oldStderr

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	assert.Contains(t, output, "battery source disabled")
	assert.Contains(t, output, SymbolWarning)
}
