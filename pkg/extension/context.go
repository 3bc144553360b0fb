// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package extension

// Theme describes the host's current visual theme.
type Theme struct {
	// Variant is the theme name, e.g. "light", "dark", "sepia".
	Variant string

	// Palette maps semantic color names to CSS color values. Informational
	// for extensions that style their own output.
	Palette map[string]string
}

// User identifies the signed-in library owner, if any.
type User struct {
	ID          string
	DisplayName string
	Roles       []string
}

// AppInfo carries host application metadata.
type AppInfo struct {
	Name        string
	Version     string
	Environment string // "development", "production", ...
}

// Context is the host-owned ambient state snapshot passed to every
// extension operation. The host replaces it wholesale on every update; the
// runtime stores the latest pointer and relays it to hooks without ever
// mutating it. Extensions must treat it as read-only.
type Context struct {
	Theme Theme
	Route string
	User  *User
	App   AppInfo

	// Values carries arbitrary additional host data (reading progress,
	// shelf filters, feature flags). Extensions should tolerate missing
	// keys.
	Values map[string]any
}
