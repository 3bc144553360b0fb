// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Discovered pairs a parsed manifest with its directory.
type Discovered struct {
	Manifest *Manifest
	Dir      string
}

// Loader discovers extension manifests under a directory. Each extension
// lives in its own subdirectory containing an extension.yaml file.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, logger: slog.Default()}
}

// Discover finds all valid extensions under the loader's directory.
// Invalid extensions are logged and skipped.
func (l *Loader) Discover() ([]*Discovered, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No extensions directory
		}
		return nil, fmt.Errorf("failed to read extensions directory: %w", err)
	}

	var found []*Discovered
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		extDir := filepath.Join(l.dir, entry.Name())
		manifestPath := filepath.Join(extDir, "extension.yaml")

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			l.logger.Warn("skipping extension without manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		m, err := Parse(data)
		if err != nil {
			l.logger.Warn("skipping extension with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		found = append(found, &Discovered{
			Manifest: m,
			Dir:      extDir,
		})
	}

	return found, nil
}
