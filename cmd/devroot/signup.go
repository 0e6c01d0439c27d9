// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/devroot/devroot/internal/form"
	"github.com/devroot/devroot/internal/route"
)

// signupConfig holds flags for the signup command.
type signupConfig struct {
	email     string
	username  string
	firstName string
	lastName  string
	password  string
}

// newSignupCmd creates the signup subcommand.
func newSignupCmd() *cobra.Command {
	cfg := &signupConfig{}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Long: `Create an account with the identity service. The password is read from
stdin unless --password is given. On success the new session is saved and
the profile is loaded again from the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSignup(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "email address")
	cmd.Flags().StringVar(&cfg.username, "username", "", "username")
	cmd.Flags().StringVar(&cfg.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&cfg.lastName, "last-name", "", "last name (optional)")
	cmd.Flags().StringVar(&cfg.password, "password", "", "password (read from stdin when omitted)")
	for _, name := range []string{"email", "username", "first-name"} {
		_ = cmd.MarkFlagRequired(name) //nolint:errcheck // flag registered above
	}

	return cmd
}

// runSignup executes the signup command.
func runSignup(cmd *cobra.Command, cfg *signupConfig) error {
	a, err := bootstrap(cmd, bootOptions{remote: true, start: route.SignupPath})
	if err != nil {
		return err
	}

	password, err := passwordFrom(cmd, cfg.password)
	if err != nil {
		return err
	}

	out, err := a.flow.Signup(cmd.Context(), form.Signup{
		Email:     cfg.email,
		Username:  cfg.username,
		FirstName: cfg.firstName,
		LastName:  cfg.lastName,
		Password:  password,
	})
	return finish(cmd, a, out, err)
}
