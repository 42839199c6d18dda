package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the GeekCraft CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geekcraft",
		Short: "GeekCraft - a programming game server",
		Long: `GeekCraft is a multiplayer programming game server with session
authentication, procedurally generated zones, and campaign runs.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())

	return cmd
}
