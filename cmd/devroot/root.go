// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/devroot/devroot/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the devroot CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devroot",
		Short: "devroot - sign in to the devroot network from the terminal",
		Long: `devroot signs you in to (or up for) the devroot developer network.
The session is kept between invocations, so "devroot whoami" and the
interactive shell pick up where the last login left off.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newSignupCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newShellCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
