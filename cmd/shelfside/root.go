package main

import (
	"github.com/spf13/cobra"

	"github.com/shelfside/shelfside/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigFile returns the --config value, falling back to the
// user's XDG config file when one exists.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	return xdg.DefaultConfigFile()
}

// NewRootCmd creates the root command for the Shelfside CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelfside",
		Short: "Shelfside - personal digital library extension runtime",
		Long: `Shelfside manages the extension panels of the Shelfside library client:
registration, lifecycle, priority-ordered activation, and failure-isolated
rendering of Lua-scripted extensions.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
