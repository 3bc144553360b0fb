// Package xdg provides XDG Base Directory paths for Shelfside.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "shelfside"

// ConfigDir returns the XDG config directory for shelfside.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DataDir returns the XDG data directory for shelfside.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the path of the user's config file under
// ConfigDir, or empty string if none exists.
func DefaultConfigFile() string {
	path := filepath.Join(ConfigDir(), "shelfside.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// ExtensionsDir returns the user-level extensions directory under DataDir.
func ExtensionsDir() string {
	return filepath.Join(DataDir(), "extensions")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
