// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package runtime

import "github.com/shelfside/shelfside/pkg/extension"

// ActiveExtension summarizes one entry of the active set.
type ActiveExtension struct {
	Name     string
	Priority int
	Position extension.Position
}

// Stats is a point-in-time summary of the registry, computed fresh on
// every call.
type Stats struct {
	Total   int
	Enabled int
	Active  int

	// ActiveList mirrors the active set order (priority descending).
	ActiveList []ActiveExtension
}

// Stats computes current registry statistics.
func (m *Manager) Stats() Stats {
	all := m.All()
	active := m.Active()

	stats := Stats{
		Total:      len(all),
		Active:     len(active),
		ActiveList: make([]ActiveExtension, 0, len(active)),
	}
	for _, ext := range all {
		if isEnabled(ext) {
			stats.Enabled++
		}
	}
	for _, ext := range active {
		entry := ActiveExtension{Name: ext.Name()}
		if cfg := ext.Config(); cfg != nil {
			entry.Priority = cfg.Priority
			entry.Position = cfg.Position
		}
		stats.ActiveList = append(stats.ActiveList, entry)
	}
	return stats
}

// isEnabled reads an extension's enabled flag with panic recovery so a
// faulty Config implementation cannot break stats collection.
func isEnabled(ext extension.Extension) (enabled bool) {
	defer func() {
		if recover() != nil {
			enabled = false
		}
	}()
	cfg := ext.Config()
	return cfg != nil && cfg.Enabled
}
