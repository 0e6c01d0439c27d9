// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/devroot/devroot/internal/authflow"
	"github.com/devroot/devroot/internal/config"
	"github.com/devroot/devroot/internal/gateway"
	"github.com/devroot/devroot/internal/logging"
	"github.com/devroot/devroot/internal/notify"
	"github.com/devroot/devroot/internal/route"
	"github.com/devroot/devroot/internal/session"
	"github.com/devroot/devroot/pkg/errutil"
)

// Error codes for CLI failures.
const (
	CodePasswordUnreadable = "CLI_PASSWORD_UNREADABLE"
	CodeAttemptFailed      = "CLI_ATTEMPT_FAILED"
)

// app is the wired client used by a single command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *session.Store
	snap    *session.FileSnapshotter
	history *route.History
	guard   *route.Guard

	// Set only for commands that talk to the identity service.
	flow *authflow.Controller
}

// bootOptions selects what bootstrap wires.
type bootOptions struct {
	// remote wires the gateway and auth flow; it requires a backend URL.
	remote bool
	// start is the page the navigation history begins at.
	start string
}

// bootstrap loads configuration, restores the saved session and wires the
// client for cmd.
func bootstrap(cmd *cobra.Command, opts bootOptions) (*app, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if opts.remote {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateLocal()
	}
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Options{
		Service: "devroot",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})

	snap, err := session.NewFileSnapshotter(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	saved, err := snap.Load()
	if err != nil {
		if !errutil.HasCode(err, session.CodeInvalidRestore) {
			return nil, err
		}
		errutil.LogErrorLevel(logger, slog.LevelWarn, "ignoring unreadable session snapshot", err)
		saved = session.Snapshot{}
	}

	store := session.NewStore()
	if err := store.Restore(saved); err != nil {
		errutil.LogErrorLevel(logger, slog.LevelWarn, "ignoring inconsistent session snapshot", err)
	}
	store.SetCommitHook(snap.Save)

	guard, err := route.NewGuard(cfg.ProtectedRoutes, store)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		snap:    snap,
		history: route.NewHistory(opts.start),
		guard:   guard,
	}
	if !opts.remote {
		return a, nil
	}

	client, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	if store.Authenticated() {
		client.SetCookies(saved.Cookies)
	}
	snap.Cookies = client.Cookies

	rehydrator, err := authflow.NewStoreRehydrator(client, store, authflow.WithRehydrateLogger(logger))
	if err != nil {
		return nil, err
	}
	flow, err := authflow.NewController(authflow.Deps{
		Gateway:    client,
		Store:      store,
		Notifier:   notify.NewWriterNotifier(cmd.OutOrStdout()),
		Navigator:  a.history,
		Rehydrator: rehydrator,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	a.flow = flow

	logger.Debug("client ready",
		"backend_url", client.BaseURL(),
		"timeout", client.Timeout(),
		"state_file", snap.Path(),
		"authenticated", store.Authenticated(),
	)
	return a, nil
}

// finish reports an attempt: validation messages go to stderr, and any
// failure becomes CodeAttemptFailed (the user was already notified).
func finish(cmd *cobra.Command, a *app, out authflow.Outcome, err error) error {
	if err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s. Now at %s\n", out.User.DisplayName(), a.history.Current())
		return nil
	}
	for _, msg := range out.Validation.Messages() {
		cmd.PrintErrln(msg)
	}
	errutil.LogErrorLevel(a.logger, slog.LevelDebug, "attempt did not complete", err)
	return oops.Code(CodeAttemptFailed).
		With("flow", string(out.Flow)).
		With("cause_code", errutil.CodeOf(err)).
		Errorf("%s did not complete", out.Flow)
}

// readPassword reads one line from r. Trailing CR/LF is dropped. An empty
// line is returned as is so the form rules report it.
func readPassword(cmd *cobra.Command, r io.Reader) (string, error) {
	cmd.PrintErr("Password: ")
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code(CodePasswordUnreadable).Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// passwordFrom returns flagValue, or reads the password from stdin.
func passwordFrom(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return readPassword(cmd, cmd.InOrStdin())
}

// describe formats a user for display.
func describe(u *session.UserProfile) string {
	return fmt.Sprintf("%s (@%s, %s)", u.DisplayName(), u.Username, u.Email)
}
