// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package extension

import "fmt"

// Position identifies where the host places an extension's output.
type Position string

// Positions supported by the Shelfside client.
const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
	PositionInline      Position = "inline"
	PositionOverlay     Position = "overlay"
)

// Valid reports whether p is one of the known positions.
func (p Position) Valid() bool {
	switch p {
	case PositionTopLeft, PositionTopRight, PositionBottomLeft,
		PositionBottomRight, PositionInline, PositionOverlay:
		return true
	default:
		return false
	}
}

func (p Position) String() string { return string(p) }

// Config holds an extension's runtime configuration. The extension author
// owns it; the registry mutates only Enabled (via Enable/Disable).
type Config struct {
	// Enabled gates membership in the active set. Disabling an extension
	// does not unmount it.
	Enabled bool

	// Priority orders the active set, highest first. Extensions with equal
	// priority keep their registration order.
	Priority int

	// Position is where the host should place the rendered output.
	Position Position

	// Conditions maps environment names ("development", "production", ...)
	// to eligibility. A missing key means eligible in that environment.
	Conditions map[string]bool
}

// DefaultConfig returns a Config enabled at priority zero, positioned
// inline.
func DefaultConfig() *Config {
	return &Config{
		Enabled:  true,
		Position: PositionInline,
	}
}

// EligibleIn reports whether the config permits activation in the named
// environment. An empty environment name or an absent condition key means
// eligible.
func (c *Config) EligibleIn(env string) bool {
	if env == "" || c.Conditions == nil {
		return true
	}
	allowed, ok := c.Conditions[env]
	if !ok {
		return true
	}
	return allowed
}

// Validate checks structural constraints. A zero Position is allowed and
// treated as inline by hosts.
func (c *Config) Validate() error {
	if c.Position != "" && !c.Position.Valid() {
		return fmt.Errorf("unknown position %q", c.Position)
	}
	return nil
}
