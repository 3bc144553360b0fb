// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfside/shelfside/internal/manifest"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <extension.yaml> [...]",
		Short: "Validate extension manifest files",
		Long: `Validate one or more extension.yaml files semantically and against the
extension manifest JSON Schema.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := validateManifest(path); err != nil {
					cmd.PrintErrf("%s: %v\n", path, err)
					failed++
					continue
				}
				cmd.Printf("%s: ok\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d manifests invalid", failed, len(args))
			}
			return nil
		},
	}
}

func validateManifest(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's command line
	if err != nil {
		return err
	}
	if err := manifest.ValidateSchema(data); err != nil {
		return err
	}
	_, err = manifest.Parse(data)
	return err
}
