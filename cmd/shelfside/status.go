// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/shelfside/shelfside/internal/config"
	"github.com/shelfside/shelfside/internal/manifest"
)

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List discovered extensions and their manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}

			discovered, err := manifest.NewLoader(cfg.Extensions.Dir).Discover()
			if err != nil {
				return err
			}
			if len(discovered) == 0 {
				cmd.Printf("no extensions found in %s\n", cfg.Extensions.Dir)
				return nil
			}

			for _, d := range discovered {
				m := d.Manifest
				enabled := true
				if m.Enabled != nil {
					enabled = *m.Enabled
				}
				cmd.Printf("%-20s v%-10s priority=%-4d enabled=%-5v %s\n",
					m.Name, m.Version, m.Priority, enabled, d.Dir)
			}
			return nil
		},
	}

	cmd.Flags().String("extensions.dir", config.Default().Extensions.Dir, "extension manifests directory")
	return cmd
}
