package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s == nil {
		t.Fatal("DefaultSettings returned nil")
	}
	if s.BufferSize != 4096 {
		t.Errorf("expected buffer size 4096, got %d", s.BufferSize)
	}
	if s.Panel.Kind != PanelNone {
		t.Errorf("expected panel none, got %s", s.Panel.Kind)
	}
	if s.SocketPath == "" {
		t.Error("socket path should not be empty")
	}
	if !strings.HasSuffix(s.Logging.FilePath, filepath.Join("logs", "weasel.log")) {
		t.Errorf("unexpected log path %s", s.Logging.FilePath)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSettingsPath(t *testing.T) {
	if !strings.HasSuffix(SettingsPath(), "weaseld.toml") {
		t.Errorf("expected path ending with weaseld.toml, got %s", SettingsPath())
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.BufferSize != DefaultSettings().BufferSize {
		t.Errorf("expected defaults, got buffer size %d", s.BufferSize)
	}
}

func TestLoadSettingsTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weaseld.toml")
	writeFile(t, path, `
socket_path = "/tmp/test-weasel.sock"
user_data_dir = "/tmp/weasel-user"
buffer_size = 8192

[logging]
level = "debug"
format = "json"

[panel]
kind = "web"
listen = "127.0.0.1:9000"

[journal]
enabled = true
path = "/tmp/journal.db"

[watch]
enabled = false
debounce_ms = 250

[distribution]
name = "Weasel Test"
`)

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.SocketPath != "/tmp/test-weasel.sock" {
		t.Errorf("socket_path = %s", s.SocketPath)
	}
	if s.BufferSize != 8192 {
		t.Errorf("buffer_size = %d", s.BufferSize)
	}
	if s.Logging.Level != "debug" || s.Logging.Format != "json" {
		t.Errorf("logging = %+v", s.Logging)
	}
	if s.Logging.Output != "stderr" {
		t.Errorf("unset output should keep default, got %s", s.Logging.Output)
	}
	if s.Panel.Kind != PanelWeb || s.Panel.Listen != "127.0.0.1:9000" {
		t.Errorf("panel = %+v", s.Panel)
	}
	if !s.Journal.Enabled {
		t.Error("journal should be enabled")
	}
	if s.Watch.Enabled || s.Watch.Debounce().Milliseconds() != 250 {
		t.Errorf("watch = %+v", s.Watch)
	}
	if s.Distribution.Name != "Weasel Test" || s.Distribution.CodeName != "Weasel" {
		t.Errorf("distribution = %+v", s.Distribution)
	}
}

func TestLoadSettingsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weaseld.toml")

	writeFile(t, path, "buffer_size = = 3")
	if _, err := LoadSettings(path); err == nil {
		t.Error("expected decode error")
	}

	writeFile(t, path, "buffer_size = 4095\n[panel]\nkind = \"gtk\"\n")
	_, err := LoadSettings(path)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 errors, got %v", verrs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WEASEL_SOCKET", "/tmp/env.sock")
	t.Setenv("WEASEL_USER_DATA_DIR", "/tmp/env-user")
	t.Setenv("WEASEL_SHARED_DATA_DIR", "/tmp/env-shared")
	t.Setenv("WEASEL_LOG_LEVEL", "warn")

	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.SocketPath != "/tmp/env.sock" {
		t.Errorf("socket = %s", s.SocketPath)
	}
	if s.UserDataDir != "/tmp/env-user" || s.SharedDataDir != "/tmp/env-shared" {
		t.Errorf("dirs = %s, %s", s.UserDataDir, s.SharedDataDir)
	}
	if s.Logging.Level != "warn" {
		t.Errorf("level = %s", s.Logging.Level)
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
		field  string
	}{
		{"empty socket", func(s *Settings) { s.SocketPath = "" }, "socket_path"},
		{"zero buffer", func(s *Settings) { s.BufferSize = 0 }, "buffer_size"},
		{"odd buffer", func(s *Settings) { s.BufferSize = 101 }, "buffer_size"},
		{"bad level", func(s *Settings) { s.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(s *Settings) { s.Logging.Format = "xml" }, "logging.format"},
		{"bad output", func(s *Settings) { s.Logging.Output = "syslog" }, "logging.output"},
		{"bad panel", func(s *Settings) { s.Panel.Kind = "gtk" }, "panel.kind"},
		{"web without listen", func(s *Settings) { s.Panel = PanelSettings{Kind: PanelWeb} }, "panel.listen"},
		{"journal without path", func(s *Settings) { s.Journal = JournalSettings{Enabled: true} }, "journal.path"},
		{"negative debounce", func(s *Settings) { s.Watch.DebounceMs = -1 }, "watch.debounce_ms"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := DefaultSettings()
			test.modify(s)
			err := ValidateSettings(s)
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != test.field {
				t.Errorf("field = %s, want %s", verrs[0].Field, test.field)
			}
		})
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "weaseld.toml")
	s := DefaultSettings()
	s.Panel.Kind = PanelTerminal
	s.BufferSize = 2048
	if err := SaveSettings(s, path); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if loaded.Panel.Kind != PanelTerminal || loaded.BufferSize != 2048 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
