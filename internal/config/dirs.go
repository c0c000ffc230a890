package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// PlatformUserDataDir returns the directory holding the user's engine config
// and dictionaries.
//
// Platform paths:
//   - macOS:   ~/Library/Rime/
//   - Linux:   ~/.local/share/weasel/
//   - Windows: %APPDATA%\Rime\
func PlatformUserDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Rime")
	case "linux":
		return linuxDataDir()
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Rime")
		}
		return fallbackDataDir()
	default:
		return fallbackDataDir()
	}
}

// PlatformSharedDataDir returns the directory holding the distribution's
// read-only engine data.
func PlatformSharedDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return "/Library/Input Methods/Weasel.app/Contents/SharedSupport"
	case "windows":
		if exe, err := os.Executable(); err == nil {
			return filepath.Join(filepath.Dir(exe), "data")
		}
		return "data"
	default:
		return "/usr/share/rime-data"
	}
}

// PlatformRuntimeDir returns the directory for the server socket.
//
// Platform paths:
//   - Linux:   $XDG_RUNTIME_DIR/weasel/ or /tmp/weasel-$UID/
//   - Windows: (uses named pipes, not applicable)
//   - other:   /tmp/weasel-$UID/
func PlatformRuntimeDir() string {
	switch runtime.GOOS {
	case "linux":
		if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
			return filepath.Join(xdgRuntime, "weasel")
		}
		return filepath.Join(os.TempDir(), "weasel-"+getUserID())
	case "windows":
		return ""
	default:
		return filepath.Join(os.TempDir(), "weasel-"+getUserID())
	}
}

// PlatformConfigDir returns where weaseld.toml lives.
func PlatformConfigDir() string {
	if runtime.GOOS == "linux" {
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "weasel")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "weasel")
	}
	return PlatformUserDataDir()
}

// DefaultSocketPath returns the server endpoint for the current platform.
func DefaultSocketPath() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\weasel`
	}
	if dir := PlatformRuntimeDir(); dir != "" {
		return filepath.Join(dir, "weasel.sock")
	}
	return filepath.Join(os.TempDir(), "weasel.sock")
}

func linuxDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "weasel")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "weasel")
}

func fallbackDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".weasel")
}

func getUserID() string {
	return strconv.Itoa(os.Getuid())
}
