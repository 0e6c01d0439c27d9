// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package shell is a line-oriented console for driving the authentication
// flow by hand: log in, sign up, and move between guarded pages.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/devroot/devroot/internal/authflow"
	"github.com/devroot/devroot/internal/form"
	"github.com/devroot/devroot/internal/observability"
	"github.com/devroot/devroot/internal/route"
	"github.com/devroot/devroot/internal/session"
)

// Error codes.
const (
	CodeMissingDeps = "SHELL_MISSING_DEPENDENCY"
	CodeReadFailed  = "SHELL_READ_FAILED"
)

// Prompt is printed before every command.
const Prompt = "> "

// AuthFlow runs login and signup attempts.
type AuthFlow interface {
	Login(ctx context.Context, l form.Login, from string) (authflow.Outcome, error)
	Signup(ctx context.Context, s form.Signup) (authflow.Outcome, error)
}

// Deps holds the collaborators of a Shell.
type Deps struct {
	Flow    AuthFlow
	Store   *session.Store
	Guard   *route.Guard
	History *route.History
	// Logger for diagnostics. Optional.
	Logger *slog.Logger
}

// Shell reads commands from in and writes replies to out.
type Shell struct {
	in      io.Reader
	out     io.Writer
	flow    AuthFlow
	store   *session.Store
	guard   *route.Guard
	history *route.History
	logger  *slog.Logger

	id       ulid.ULID
	login    form.Login
	from     string
	quitting bool
}

// New creates a shell.
func New(in io.Reader, out io.Writer, deps Deps) (*Shell, error) {
	switch {
	case deps.Flow == nil:
		return nil, oops.Code(CodeMissingDeps).With("dependency", "flow").Errorf("auth flow is required")
	case deps.Store == nil:
		return nil, oops.Code(CodeMissingDeps).With("dependency", "store").Errorf("store is required")
	case deps.Guard == nil:
		return nil, oops.Code(CodeMissingDeps).With("dependency", "guard").Errorf("guard is required")
	case deps.History == nil:
		return nil, oops.Code(CodeMissingDeps).With("dependency", "history").Errorf("history is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	id := ulid.Make()
	return &Shell{
		in:      in,
		out:     out,
		flow:    deps.Flow,
		store:   deps.Store,
		guard:   deps.Guard,
		history: deps.History,
		logger:  logger.With("shell_id", id.String()),
		id:      id,
	}, nil
}

// ID identifies this shell session in logs.
func (s *Shell) ID() string {
	return s.id.String()
}

// Run processes commands until quit, end of input, or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	s.send("devroot shell. Type 'help' for commands.")

	lineCh := make(chan string)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		reader := bufio.NewReader(s.in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lineCh <- strings.TrimSpace(line):
				case <-done:
					return
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	for {
		s.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.Debug("shell read error", "error", err)
			return oops.Code(CodeReadFailed).Wrap(err)

		case line := <-lineCh:
			s.processLine(ctx, line)
			if s.quitting {
				return nil
			}
		}
	}
}

// parseCommand splits input into a lower-cased command and its argument.
func parseCommand(input string) (cmd, arg string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ""
	}

	parts := strings.SplitN(input, " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	return cmd, arg
}

func (s *Shell) processLine(ctx context.Context, line string) {
	cmd, arg := parseCommand(line)
	if cmd == "" {
		return
	}

	switch cmd {
	case "login":
		s.handleLogin(ctx, arg)
	case "toggle":
		s.handleToggle()
	case "signup":
		s.handleSignup(ctx, arg)
	case "goto":
		s.handleGoto(arg)
	case "whoami":
		s.handleWhoami()
	case "requests":
		s.handleRequests(arg)
	case "where":
		s.send("At " + s.history.Current())
	case "help":
		s.handleHelp()
	case "quit", "exit":
		cmd = "quit"
		s.send("Goodbye!")
		s.quitting = true
	default:
		observability.RecordShellCommand("unknown")
		s.send("Unknown command: " + cmd)
		return
	}
	observability.RecordShellCommand(cmd)
}

func (s *Shell) handleLogin(ctx context.Context, arg string) {
	fields := strings.Fields(arg)
	switch {
	case len(fields) == 3 && (fields[0] == "email" || fields[0] == "username"):
		kind := form.IdentifierEmail
		if fields[0] == "username" {
			kind = form.IdentifierUsername
		}
		s.login.Kind = kind
		fields = fields[1:]
	case len(fields) == 2:
	default:
		s.send("Usage: login [email|username] <identifier> <password>")
		return
	}
	s.login.Identifier = fields[0]
	s.login.Password = fields[1]

	out, err := s.flow.Login(ctx, s.login, s.from)
	s.login.Password = ""
	s.report(out, err)
	if out.Succeeded() {
		s.from = ""
	}
}

func (s *Shell) handleToggle() {
	s.login.Toggle()
	s.send(fmt.Sprintf("Logging in with %s.", s.login.Kind))
}

func (s *Shell) handleSignup(ctx context.Context, arg string) {
	fields := strings.Fields(arg)
	if len(fields) != 5 {
		s.send("Usage: signup <email> <username> <first-name> <last-name|-> <password>")
		return
	}
	last := fields[3]
	if last == "-" {
		last = ""
	}
	out, err := s.flow.Signup(ctx, form.Signup{
		Email:     fields[0],
		Username:  fields[1],
		FirstName: fields[2],
		LastName:  last,
		Password:  fields[4],
	})
	s.report(out, err)
}

// report prints what the notifier does not: validation messages and the
// resulting location.
func (s *Shell) report(out authflow.Outcome, err error) {
	if err == nil {
		s.send("At " + s.history.Current())
		return
	}
	for _, msg := range out.Validation.Messages() {
		s.send("  " + msg)
	}
}

func (s *Shell) handleGoto(arg string) {
	if arg == "" {
		s.send("Usage: goto <path>")
		return
	}
	decision := s.guard.Check(arg)
	target := route.Clean(arg)
	if !decision.Allowed {
		s.from = decision.From
		target = decision.Redirect
		s.send(fmt.Sprintf("%s requires login.", decision.From))
	}
	if err := s.history.Navigate(target, route.NavigateOptions{}); err != nil {
		s.logger.Debug("navigation failed", "path", target, "error", err)
		s.send("Cannot go to " + arg)
		return
	}
	s.send("At " + s.history.Current())
}

func (s *Shell) handleWhoami() {
	user := s.store.User()
	if user == nil {
		s.send("Not signed in.")
		return
	}
	s.send(fmt.Sprintf("%s (@%s, %s)", user.DisplayName(), user.Username, user.Email))
}

func (s *Shell) handleRequests(arg string) {
	if !s.store.Authenticated() {
		s.send("You must log in first.")
		return
	}
	kind, err := session.ParseRequestKind(arg)
	if err != nil {
		s.send("Unknown request kind. One of: " + kindList())
		return
	}
	reqs := s.store.Requests(kind)
	s.send(fmt.Sprintf("%d %s request(s)", len(reqs), kind))
	for _, r := range reqs {
		s.send(fmt.Sprintf("  %s %s", r.ID, r.From.DisplayName()))
	}
}

func kindList() string {
	kinds := session.RequestKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func (s *Shell) handleHelp() {
	for _, line := range []string{
		"login [email|username] <identifier> <password>",
		"toggle                 switch between email and username login",
		"signup <email> <username> <first-name> <last-name|-> <password>",
		"goto <path>            open a page",
		"where                  show the current page",
		"whoami                 show the signed-in user",
		"requests <kind>        list cached requests (" + kindList() + ")",
		"quit",
	} {
		s.send(line)
	}
}

func (s *Shell) prompt() {
	if _, err := io.WriteString(s.out, Prompt); err != nil {
		s.logger.Debug("failed to write prompt", "error", err)
	}
}

func (s *Shell) send(msg string) {
	if _, err := fmt.Fprintln(s.out, msg); err != nil {
		s.logger.Debug("failed to write to shell output", "error", err)
	}
}
