// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/devroot/devroot/internal/form"
	"github.com/devroot/devroot/internal/route"
)

// loginConfig holds flags for the login command.
type loginConfig struct {
	email    string
	username string
	password string
	from     string
}

// newLoginCmd creates the login subcommand.
func newLoginCmd() *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an email address or username",
		Long: `Sign in to the identity service. Identify yourself with --email or
--username; the password is read from stdin unless --password is given.
On success the session is saved and every cached request list is cleared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "sign in with this email address")
	cmd.Flags().StringVar(&cfg.username, "username", "", "sign in with this username")
	cmd.Flags().StringVar(&cfg.password, "password", "", "password (read from stdin when omitted)")
	cmd.Flags().StringVar(&cfg.from, "from", "", "page to return to after signing in (default /feed)")
	cmd.MarkFlagsMutuallyExclusive("email", "username")
	cmd.MarkFlagsOneRequired("email", "username")

	return cmd
}

// runLogin executes the login command.
func runLogin(cmd *cobra.Command, cfg *loginConfig) error {
	a, err := bootstrap(cmd, bootOptions{remote: true, start: route.LoginPath})
	if err != nil {
		return err
	}

	password, err := passwordFrom(cmd, cfg.password)
	if err != nil {
		return err
	}

	l := form.Login{Identifier: cfg.email, Kind: form.IdentifierEmail, Password: password}
	if cfg.username != "" {
		l = form.Login{Identifier: cfg.username, Kind: form.IdentifierUsername, Password: password}
	}

	out, err := a.flow.Login(cmd.Context(), l, cfg.from)
	return finish(cmd, a, out, err)
}
