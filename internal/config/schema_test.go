package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"empty", "", true},
		{"full", `
style:
  font_face: Sans
  font_point: 14
  inline_preedit: true
  color_scheme: lost
  layout:
    type: vertical
    border: 2
preset_color_schemes:
  lost:
    name: Lost
    text_color: 0x112233
app_options:
  firefox.exe:
    ascii_mode: true
`, true},
		{"string color", "preset_color_schemes:\n  a:\n    text_color: \"red\"\n", false},
		{"color too large", "preset_color_schemes:\n  a:\n    text_color: 0x1000000\n", false},
		{"non bool app option", "app_options:\n  vim:\n    ascii_mode: 1\n", false},
		{"bad layout type", "style:\n  layout:\n    type: diagonal\n", false},
		{"zero font", "style:\n  font_point: 0\n", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateDocument([]byte(test.doc))
			if test.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.valid {
				var verr *jsonschema.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected ValidationError, got %v", err)
				}
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weasel.yaml")
	writeFile(t, path, "style:\n  horizontal: true\n")
	if err := ValidateFile(path); err != nil {
		t.Errorf("ValidateFile: %v", err)
	}
	if err := ValidateFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}
