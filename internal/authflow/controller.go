// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package authflow

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devroot/devroot/internal/form"
	"github.com/devroot/devroot/internal/gateway"
	"github.com/devroot/devroot/internal/notify"
	"github.com/devroot/devroot/internal/observability"
	"github.com/devroot/devroot/internal/route"
	"github.com/devroot/devroot/internal/session"
	"github.com/devroot/devroot/pkg/errutil"
)

var tracer = otel.Tracer("devroot/authflow")

// Flow names the kind of attempt.
type Flow string

// Flows.
const (
	FlowLogin  Flow = "login"
	FlowSignup Flow = "signup"
)

// State is a controller state.
type State int32

// Controller states.
const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Gateway submits credentials to the identity service.
type Gateway interface {
	Submit(ctx context.Context, kind gateway.Kind, payload any) (*gateway.SessionPayload, error)
}

// Store installs a session.
type Store interface {
	Commit(c session.Commit) error
}

// Rehydrator reloads client state from the server after a signup.
type Rehydrator interface {
	Rehydrate(ctx context.Context) error
}

// Deps holds the collaborators of a Controller.
type Deps struct {
	Gateway   Gateway         // required
	Store     Store           // required
	Notifier  notify.Notifier // required
	Navigator route.Navigator // required
	// Rehydrator runs after a successful signup. Optional.
	Rehydrator Rehydrator
	// Logger for diagnostics. Optional.
	Logger *slog.Logger
}

// Outcome describes how one attempt ended.
type Outcome struct {
	AttemptID string
	Flow      Flow
	// State is StateSuccess, StateFailed, or StateIdle when the attempt never
	// reached the gateway or was abandoned by its caller.
	State State
	// Validation is set when the form was checked.
	Validation form.Result
	// User is the installed profile on success.
	User *session.UserProfile
	// Message is the text shown to the user, if any.
	Message string
	// Redirect is the path navigated to on success.
	Redirect string
}

// Succeeded reports whether the attempt installed a session.
func (o Outcome) Succeeded() bool {
	return o.State == StateSuccess
}

// Controller runs login and signup attempts one at a time.
type Controller struct {
	gateway    Gateway
	store      Store
	notifier   notify.Notifier
	navigator  route.Navigator
	rehydrator Rehydrator
	logger     *slog.Logger

	state atomic.Int32
}

// NewController creates a controller from deps.
func NewController(deps Deps) (*Controller, error) {
	switch {
	case deps.Gateway == nil:
		return nil, oops.Code(CodeMissingDeps).With("dependency", "gateway").Errorf("gateway is required")
	case deps.Store == nil:
		return nil, oops.Code(CodeMissingDeps).With("dependency", "store").Errorf("store is required")
	case deps.Notifier == nil:
		return nil, oops.Code(CodeMissingDeps).With("dependency", "notifier").Errorf("notifier is required")
	case deps.Navigator == nil:
		return nil, oops.Code(CodeMissingDeps).With("dependency", "navigator").Errorf("navigator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		gateway:    deps.Gateway,
		store:      deps.Store,
		notifier:   deps.Notifier,
		navigator:  deps.Navigator,
		rehydrator: deps.Rehydrator,
		logger:     logger,
	}, nil
}

// State returns the current controller state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Busy reports whether an attempt is in flight.
func (c *Controller) Busy() bool {
	return c.State() != StateIdle
}

// Login validates l, submits it and, on success, navigates to from
// (or the default landing page when from is empty or an auth page).
func (c *Controller) Login(ctx context.Context, l form.Login, from string) (Outcome, error) {
	return c.run(ctx, attempt{
		flow:     FlowLogin,
		kind:     gateway.KindLogin,
		validate: func() form.Result { return form.ValidateLogin(l) },
		payload:  func() any { return gateway.NewLoginRequest(l) },
		target:   route.LoginTarget(from),
		replace:  true,
		success:  MessageLoginSuccess,
	})
}

// Signup validates s, submits it and, on success, navigates to the profile
// page and re-hydrates client state.
func (c *Controller) Signup(ctx context.Context, s form.Signup) (Outcome, error) {
	return c.run(ctx, attempt{
		flow:      FlowSignup,
		kind:      gateway.KindSignup,
		validate:  func() form.Result { return form.ValidateSignup(s) },
		payload:   func() any { return gateway.NewSignupRequest(s) },
		target:    route.SignupTarget,
		success:   MessageSignupSuccess,
		rehydrate: true,
	})
}

type attempt struct {
	flow      Flow
	kind      gateway.Kind
	validate  func() form.Result
	payload   func() any
	target    string
	replace   bool
	success   string
	rehydrate bool
}

func (c *Controller) run(ctx context.Context, a attempt) (out Outcome, err error) {
	out = Outcome{AttemptID: ulid.Make().String(), Flow: a.flow, State: StateIdle}
	logger := c.logger.With("attempt_id", out.AttemptID, "flow", string(a.flow))

	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateValidating)) {
		RecordAttempt(a.flow, OutcomeBusy)
		logger.WarnContext(ctx, "submit rejected while busy",
			"event", "auth_busy",
			"state", c.State().String(),
		)
		out.Message = MessageBusy
		c.notifier.Notify(notify.Error, MessageBusy)
		return out, ErrBusy(a.flow)
	}
	defer c.state.Store(int32(StateIdle))

	out.Validation = a.validate()
	if !out.Validation.Valid() {
		RecordAttempt(a.flow, OutcomeInvalid)
		logger.DebugContext(ctx, "form rejected by validation",
			"event", "auth_invalid",
			"fields", len(out.Validation.Errors()),
		)
		return out, ErrInvalid(a.flow, out.Validation)
	}

	c.state.Store(int32(StateSubmitting))
	ctx, span := tracer.Start(ctx, "authflow.submit",
		trace.WithAttributes(
			attribute.String("auth.flow", string(a.flow)),
			attribute.String("auth.attempt_id", out.AttemptID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, errutil.CodeOf(err))
		}
		span.SetAttributes(attribute.String("auth.state", out.State.String()))
		span.End()
	}()

	logger.InfoContext(ctx, "submitting credentials", "event", "auth_submit")
	start := time.Now()
	payload, err := c.gateway.Submit(ctx, a.kind, a.payload())
	RecordDuration(a.flow, time.Since(start))

	if err == nil && ctx.Err() != nil {
		// The caller went away while the response was in flight.
		err = gateway.ErrCanceled(context.Cause(ctx))
	}
	if err == nil && (payload == nil || payload.User == nil) {
		err = gateway.ErrUnexpected("submit", errors.New("response carried no user"))
	}
	if err != nil {
		return c.fail(ctx, logger, a.flow, out, err)
	}

	c.state.Store(int32(StateSuccess))
	return c.succeed(ctx, logger, a, out, payload)
}

func (c *Controller) fail(ctx context.Context, logger *slog.Logger, flow Flow, out Outcome, err error) (Outcome, error) {
	outcome := outcomeFor(err)
	RecordAttempt(flow, outcome)

	if outcome == OutcomeCanceled {
		logger.InfoContext(ctx, "attempt abandoned by caller", "event", "auth_canceled")
		return out, err
	}

	c.state.Store(int32(StateFailed))
	out.State = StateFailed
	out.Message = gateway.ServerMessage(err)

	level := slog.LevelError
	if outcome == OutcomeRejected {
		level = slog.LevelWarn
	}
	errutil.LogErrorLevel(logger.With("event", "auth_failed"), level, "authentication attempt failed", err)

	c.notifier.Notify(notify.Error, out.Message)
	return out, err
}

func (c *Controller) succeed(ctx context.Context, logger *slog.Logger, a attempt, out Outcome, payload *gateway.SessionPayload) (Outcome, error) {
	if err := c.store.Commit(session.Commit{User: payload.User, ClearRequests: true}); err != nil {
		observability.RecordSessionCommit(observability.CommitFailed)
		RecordAttempt(a.flow, OutcomeCommitFailed)
		errutil.LogError(logger.With("event", "session_commit_failed"), "session commit failed", err)

		c.state.Store(int32(StateFailed))
		out.State = StateFailed
		out.Message = MessageCommitFailed
		c.notifier.Notify(notify.Error, MessageCommitFailed)
		return out, err
	}
	observability.RecordSessionCommit(observability.CommitOK)
	RecordAttempt(a.flow, OutcomeSuccess)

	out.State = StateSuccess
	out.User = payload.User.Clone()
	out.Message = payload.Message
	if out.Message == "" {
		out.Message = a.success
	}
	logger.InfoContext(ctx, "session installed",
		"event", "auth_success",
		"user_id", payload.User.ID,
	)
	c.notifier.Notify(notify.Success, out.Message)

	if err := c.navigator.Navigate(a.target, route.NavigateOptions{Replace: a.replace}); err != nil {
		errutil.LogError(logger, "navigation after sign-in failed", err)
	} else {
		out.Redirect = a.target
	}

	if a.rehydrate && c.rehydrator != nil {
		if err := c.rehydrator.Rehydrate(ctx); err != nil {
			errutil.LogError(logger.With("event", "rehydrate_failed"), "re-hydration after signup failed", err)
		}
	}
	return out, nil
}

// outcomeFor maps a gateway error to its metric label.
func outcomeFor(err error) string {
	switch errutil.CodeOf(err) {
	case gateway.CodeServerRejected:
		return OutcomeRejected
	case gateway.CodeNoResponse:
		return OutcomeNoResponse
	case gateway.CodeTimeout:
		return OutcomeTimeout
	case gateway.CodeCanceled:
		return OutcomeCanceled
	default:
		return OutcomeUnexpected
	}
}
