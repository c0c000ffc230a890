// Package config loads the daemon settings and the engine's hierarchical
// configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Panel kinds.
const (
	PanelNone     = "none"
	PanelTerminal = "terminal"
	PanelWeb      = "web"
)

// Settings holds the daemon configuration read from weaseld.toml.
type Settings struct {
	// SocketPath is the IPC endpoint clients connect to.
	SocketPath string `toml:"socket_path"`

	SharedDataDir string `toml:"shared_data_dir"`
	UserDataDir   string `toml:"user_data_dir"`

	// BufferSize is the IPC buffer capacity in bytes.
	BufferSize int `toml:"buffer_size"`

	Logging      LoggingSettings      `toml:"logging"`
	Panel        PanelSettings        `toml:"panel"`
	Journal      JournalSettings      `toml:"journal"`
	DBus         DBusSettings         `toml:"dbus"`
	Watch        WatchSettings        `toml:"watch"`
	Distribution DistributionSettings `toml:"distribution"`
}

// LoggingSettings configures the daemon log.
type LoggingSettings struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"`
	Output   string `toml:"output"`
	FilePath string `toml:"file_path"`
}

// PanelSettings selects the presentation surface.
type PanelSettings struct {
	// Kind is one of none, terminal or web.
	Kind string `toml:"kind"`

	// Listen is the HTTP address of the web panel.
	Listen string `toml:"listen"`
}

// JournalSettings configures the session journal.
type JournalSettings struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DBusSettings controls the session bus front-end.
type DBusSettings struct {
	Enabled bool `toml:"enabled"`
}

// WatchSettings controls reloading when the engine config changes.
type WatchSettings struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounce_ms"`
}

// Debounce returns the debounce interval as a duration.
func (w WatchSettings) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// DistributionSettings names the distribution to the engine.
type DistributionSettings struct {
	Name     string `toml:"name"`
	CodeName string `toml:"code_name"`
	Version  string `toml:"version"`
}

// DefaultSettings returns settings with platform defaults.
func DefaultSettings() *Settings {
	userDir := PlatformUserDataDir()
	return &Settings{
		SocketPath:    DefaultSocketPath(),
		SharedDataDir: PlatformSharedDataDir(),
		UserDataDir:   userDir,
		BufferSize:    4 * 1024,
		Logging: LoggingSettings{
			Level:    "info",
			Format:   "text",
			Output:   "stderr",
			FilePath: filepath.Join(userDir, "logs", "weasel.log"),
		},
		Panel: PanelSettings{
			Kind:   PanelNone,
			Listen: "127.0.0.1:7396",
		},
		Journal: JournalSettings{
			Enabled: false,
			Path:    filepath.Join(userDir, "weasel-journal.db"),
		},
		Watch: WatchSettings{
			Enabled:    true,
			DebounceMs: 500,
		},
		Distribution: DistributionSettings{
			Name:     "Weasel",
			CodeName: "Weasel",
			Version:  "0.9.30",
		},
	}
}

// SettingsPath returns the default location of weaseld.toml.
func SettingsPath() string {
	return filepath.Join(PlatformConfigDir(), "weaseld.toml")
}

// LoadSettings reads settings from path. A missing file yields defaults.
// Environment overrides are applied and the result is validated.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		path = SettingsPath()
	}
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if _, err := toml.Decode(string(data), s); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}

	s.ApplyEnvOverrides()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return s, nil
}

// SaveSettings writes s to path as TOML.
func SaveSettings(s *Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create settings: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies WEASEL_* environment variables.
func (s *Settings) ApplyEnvOverrides() {
	if v := os.Getenv("WEASEL_SOCKET"); v != "" {
		s.SocketPath = v
	}
	if v := os.Getenv("WEASEL_USER_DATA_DIR"); v != "" {
		s.UserDataDir = v
	}
	if v := os.Getenv("WEASEL_SHARED_DATA_DIR"); v != "" {
		s.SharedDataDir = v
	}
	if v := os.Getenv("WEASEL_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
}

// Validate checks the settings for errors.
func (s *Settings) Validate() error {
	return ValidateSettings(s)
}
