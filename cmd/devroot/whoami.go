// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newWhoamiCmd creates the whoami subcommand.
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long:  `Show the user of the saved session, or report that nobody is signed in.`,
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

// runWhoami executes the whoami command.
func runWhoami(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd, bootOptions{})
	if err != nil {
		return err
	}
	user := a.store.User()
	if user == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), describe(user))
	return nil
}
