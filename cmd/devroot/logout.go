// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newLogoutCmd creates the logout subcommand.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Long: `Forget the saved session and its cookies. This only affects this
machine; the identity service is not contacted.`,
		Args: cobra.NoArgs,
		RunE: runLogout,
	}
}

// runLogout executes the logout command.
func runLogout(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd, bootOptions{})
	if err != nil {
		return err
	}
	wasSignedIn := a.store.Authenticated()

	if err := a.store.Reset(); err != nil {
		return err
	}
	if err := a.snap.Remove(); err != nil {
		return err
	}

	if wasSignedIn {
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
	}
	return nil
}
