package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
style:
  font_face: "Noto Sans CJK SC"
  font_point: 14
  inline_preedit: true
  horizontal: false
  color_scheme: lost
  layout:
    type: horizontal
    border: 2
preset_color_schemes:
  lost:
    name: Lost
    text_color: 0x112233
    back_color: "0xffffff"
    comment_text_color: 12345
app_options:
  firefox.exe:
    ascii_mode: true
  cmd.exe:
    ascii_mode: false
    inline: "yes"
  vim:
    ascii_mode: true
schemas:
  - schema: luna_pinyin
  - schema: cangjie5
`

func mustParse(t *testing.T, data string) *Store {
	t.Helper()
	s, err := ParseStore("weasel", []byte(data))
	if err != nil {
		t.Fatalf("ParseStore: %v", err)
	}
	return s
}

func TestStoreGetters(t *testing.T) {
	s := mustParse(t, sampleYAML)

	if v, ok := s.GetString("style/font_face"); !ok || v != "Noto Sans CJK SC" {
		t.Errorf("font_face = %q, %v", v, ok)
	}
	if v, ok := s.GetInt("style/font_point"); !ok || v != 14 {
		t.Errorf("font_point = %d, %v", v, ok)
	}
	if v, ok := s.GetBool("style/inline_preedit"); !ok || !v {
		t.Errorf("inline_preedit = %v, %v", v, ok)
	}
	if v, ok := s.GetBool("style/horizontal"); !ok || v {
		t.Errorf("horizontal = %v, %v", v, ok)
	}
	if v, ok := s.GetInt("preset_color_schemes/lost/text_color"); !ok || v != 0x112233 {
		t.Errorf("text_color = %#x, %v", v, ok)
	}
	if v, ok := s.GetInt("preset_color_schemes/lost/back_color"); !ok || v != 0xffffff {
		t.Errorf("quoted hex back_color = %#x, %v", v, ok)
	}
	if v, ok := s.GetString("schemas/@1/schema"); !ok || v != "cangjie5" {
		t.Errorf("list element = %q, %v", v, ok)
	}
}

func TestStoreMissingAndMistyped(t *testing.T) {
	s := mustParse(t, sampleYAML)

	tests := []struct {
		name string
		fn   func() bool
	}{
		{"missing string", func() bool { _, ok := s.GetString("style/nope"); return ok }},
		{"map as string", func() bool { _, ok := s.GetString("style/layout"); return ok }},
		{"string as int", func() bool { _, ok := s.GetInt("style/font_face"); return ok }},
		{"string as bool", func() bool { _, ok := s.GetBool("app_options/cmd.exe/inline"); return ok }},
		{"int as bool", func() bool { _, ok := s.GetBool("style/font_point"); return ok }},
		{"list out of range", func() bool { _, ok := s.GetString("schemas/@5/schema"); return ok }},
		{"through scalar", func() bool { _, ok := s.GetString("style/font_point/x"); return ok }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.fn() {
				t.Error("expected not found")
			}
		})
	}
}

func TestStoreMapKeysOrder(t *testing.T) {
	s := mustParse(t, sampleYAML)

	got := s.MapKeys("app_options")
	want := []string{"firefox.exe", "cmd.exe", "vim"}
	if len(got) != len(want) {
		t.Fatalf("MapKeys = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MapKeys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if keys := s.MapKeys("style/font_point"); keys != nil {
		t.Errorf("scalar MapKeys = %v", keys)
	}
	if keys := s.MapKeys("missing"); keys != nil {
		t.Errorf("missing MapKeys = %v", keys)
	}
}

func TestParseStoreEmptyAndInvalid(t *testing.T) {
	s := mustParse(t, "")
	if keys := s.MapKeys(""); len(keys) != 0 {
		t.Errorf("empty store keys = %v", keys)
	}

	if _, err := ParseStore("weasel", []byte("- a\n- b\n")); err == nil {
		t.Error("expected error for top-level list")
	}
	if _, err := ParseStore("weasel", []byte("a: [")); err == nil {
		t.Error("expected YAML syntax error")
	}
}

func TestApplyPatch(t *testing.T) {
	s := mustParse(t, sampleYAML)
	patch := `
patch:
  style/color_scheme: dark
  style/layout/min_width: 240
  "app_options/notepad.exe/ascii_mode": true
  preset_color_schemes/dark:
    text_color: 0xeeeeee
`
	if err := s.ApplyPatch([]byte(patch)); err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}

	if v, _ := s.GetString("style/color_scheme"); v != "dark" {
		t.Errorf("color_scheme = %q", v)
	}
	if v, _ := s.GetInt("style/layout/min_width"); v != 240 {
		t.Errorf("min_width = %d", v)
	}
	if v, _ := s.GetInt("style/layout/border"); v != 2 {
		t.Errorf("border lost by patch: %d", v)
	}
	if v, ok := s.GetBool("app_options/notepad.exe/ascii_mode"); !ok || !v {
		t.Errorf("new app option = %v, %v", v, ok)
	}
	if v, _ := s.GetInt("preset_color_schemes/dark/text_color"); v != 0xeeeeee {
		t.Errorf("dark text_color = %#x", v)
	}
	keys := s.MapKeys("app_options")
	if keys[len(keys)-1] != "notepad.exe" {
		t.Errorf("patched key should be appended: %v", keys)
	}
}

func TestApplyPatchWithoutPatchKey(t *testing.T) {
	s := mustParse(t, sampleYAML)
	if err := s.ApplyPatch([]byte("other: 1\n")); err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if err := s.ApplyPatch([]byte("patch: 3\n")); err == nil {
		t.Error("expected error for non-map patch")
	}
}

func TestOpenStore(t *testing.T) {
	user := t.TempDir()
	shared := t.TempDir()

	if _, err := OpenStore("weasel", user, shared); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	writeFile(t, filepath.Join(shared, "weasel.yaml"), "style:\n  font_point: 10\n")
	s, err := OpenStore("weasel", user, shared)
	if err != nil {
		t.Fatalf("OpenStore shared: %v", err)
	}
	if v, _ := s.GetInt("style/font_point"); v != 10 {
		t.Errorf("shared font_point = %d", v)
	}

	writeFile(t, filepath.Join(user, "weasel.yaml"), "style:\n  font_point: 12\n")
	writeFile(t, filepath.Join(user, "weasel.custom.yaml"), "patch:\n  style/font_point: 18\n")
	s, err = OpenStore("weasel", user, shared)
	if err != nil {
		t.Fatalf("OpenStore user: %v", err)
	}
	if v, _ := s.GetInt("style/font_point"); v != 18 {
		t.Errorf("patched font_point = %d", v)
	}
	if s.Name() != "weasel" {
		t.Errorf("Name() = %q", s.Name())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
