// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/devroot/devroot/internal/authflow"
	"github.com/devroot/devroot/internal/observability"
	"github.com/devroot/devroot/internal/shell"
	"github.com/devroot/devroot/pkg/errutil"
)

// newShellCmd creates the shell subcommand.
func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Log in, sign up and open pages; pages
that need a signed-in user redirect to the login page first. With
--metrics-addr, metrics and health probes are served while the shell runs.`,
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

// runShell executes the shell command.
func runShell(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd, bootOptions{remote: true, start: "/"})
	if err != nil {
		return err
	}

	sh, err := shell.New(cmd.InOrStdin(), cmd.OutOrStdout(), shell.Deps{
		Flow:    a.flow,
		Store:   a.store,
		Guard:   a.guard,
		History: a.history,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}

	if a.cfg.MetricsAddr != "" {
		obsServer := observability.NewServer(a.cfg.MetricsAddr, func() bool { return !a.flow.Busy() },
			observability.WithLogger(a.logger),
			observability.WithVersion(version),
		)
		authflow.RegisterMetrics(obsServer.Registry())
		errCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go func() {
			if serveErr := <-errCh; serveErr != nil {
				errutil.LogError(a.logger, "observability server error", serveErr)
			}
		}()
		cmd.PrintErrf("Serving metrics on http://%s/metrics\n", obsServer.Addr())

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				a.logger.Warn("error stopping observability server", "error", err)
			}
		}()
	}

	a.logger.Info("shell started", "shell_id", sh.ID())
	return sh.Run(cmd.Context())
}
