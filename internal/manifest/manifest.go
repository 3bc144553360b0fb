// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

// Package manifest parses and validates extension.yaml manifests for
// declaratively packaged extensions.
package manifest

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/shelfside/shelfside/pkg/extension"
)

// Manifest represents an extension.yaml file.
type Manifest struct {
	Name     string `yaml:"name" json:"name"`
	Version  string `yaml:"version" json:"version"`
	Priority int    `yaml:"priority,omitempty" json:"priority,omitempty"`
	Position string `yaml:"position,omitempty" json:"position,omitempty"`
	Enabled  *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Routes lists glob patterns ('/' separated) limiting which host
	// routes the extension renders on. Empty means every route.
	Routes []string `yaml:"routes,omitempty" json:"routes,omitempty"`

	// Conditions maps environment names to eligibility.
	Conditions map[string]bool `yaml:"conditions,omitempty" json:"conditions,omitempty"`

	Lua *LuaConfig `yaml:"lua,omitempty" json:"lua,omitempty"`
}

// LuaConfig holds Lua-scripted extension configuration.
type LuaConfig struct {
	Entry string `yaml:"entry" json:"entry"`
}

// maxNameLength is the maximum allowed length for extension names.
const maxNameLength = 64

// namePattern validates extension names: must start with a lowercase
// letter, followed by lowercase letters, digits, or hyphens. Cannot end
// with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// Parse parses and validates an extension.yaml file.
func Parse(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	if m.Position != "" && !extension.Position(m.Position).Valid() {
		return fmt.Errorf("unknown position %q", m.Position)
	}

	if m.Lua == nil {
		return fmt.Errorf("lua is required")
	}
	if m.Lua.Entry == "" {
		return fmt.Errorf("lua.entry is required")
	}

	return nil
}

// Config builds the extension.Config the manifest declares. Enabled
// defaults to true when unset.
func (m *Manifest) Config() *extension.Config {
	cfg := extension.DefaultConfig()
	cfg.Priority = m.Priority
	if m.Position != "" {
		cfg.Position = extension.Position(m.Position)
	}
	if m.Enabled != nil {
		cfg.Enabled = *m.Enabled
	}
	if len(m.Conditions) > 0 {
		cfg.Conditions = make(map[string]bool, len(m.Conditions))
		for k, v := range m.Conditions {
			cfg.Conditions[k] = v
		}
	}
	return cfg
}
