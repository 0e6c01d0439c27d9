// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package authflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/devroot/devroot/internal/authflow"
	"github.com/devroot/devroot/internal/form"
	"github.com/devroot/devroot/internal/gateway"
	"github.com/devroot/devroot/internal/notify"
	"github.com/devroot/devroot/internal/route"
	"github.com/devroot/devroot/internal/session"
	"github.com/devroot/devroot/pkg/errutil"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Submit(ctx context.Context, kind gateway.Kind, payload any) (*gateway.SessionPayload, error) {
	args := m.Called(ctx, kind, payload)
	if p := args.Get(0); p != nil {
		return p.(*gateway.SessionPayload), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRehydrator struct {
	mock.Mock
}

func (m *mockRehydrator) Rehydrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type harness struct {
	gw      *mockGateway
	store   *session.Store
	notes   *notify.Recorder
	history *route.History
	ctrl    *authflow.Controller
}

func newHarness(t *testing.T, rehydrator authflow.Rehydrator) *harness {
	t.Helper()
	h := &harness{
		gw:      &mockGateway{},
		store:   session.NewStore(),
		notes:   &notify.Recorder{},
		history: route.NewHistory(route.LoginPath),
	}
	for _, kind := range session.RequestKinds() {
		require.NoError(t, h.store.SetRequests(kind, []session.Request{{ID: "stale-" + string(kind)}}))
	}
	ctrl, err := authflow.NewController(authflow.Deps{
		Gateway:    h.gw,
		Store:      h.store,
		Notifier:   h.notes,
		Navigator:  h.history,
		Rehydrator: rehydrator,
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) assertStoreUntouched(t *testing.T) {
	t.Helper()
	assert.False(t, h.store.Authenticated())
	assert.Nil(t, h.store.User())
	for _, kind := range session.RequestKinds() {
		assert.Len(t, h.store.Requests(kind), 1, kind)
	}
}

func ada() *session.UserProfile {
	return &session.UserProfile{ID: "u-ada", FirstName: "Ada", Username: "ada", Email: "ada@example.com"}
}

func emailLogin() form.Login {
	return form.Login{Identifier: "ada@example.com", Kind: form.IdentifierEmail, Password: "secret"}
}

func validSignup() form.Signup {
	return form.Signup{
		Email:     "ada@example.com",
		Username:  "adalove",
		FirstName: "Augusta",
		LastName:  "King",
		Password:  "Passw0rd!",
	}
}

func TestNewController_RequiresDependencies(t *testing.T) {
	full := authflow.Deps{
		Gateway:   &mockGateway{},
		Store:     session.NewStore(),
		Notifier:  notify.Discard,
		Navigator: route.NewHistory("/"),
	}
	tests := []struct {
		name   string
		mutate func(*authflow.Deps)
	}{
		{name: "gateway", mutate: func(d *authflow.Deps) { d.Gateway = nil }},
		{name: "store", mutate: func(d *authflow.Deps) { d.Store = nil }},
		{name: "notifier", mutate: func(d *authflow.Deps) { d.Notifier = nil }},
		{name: "navigator", mutate: func(d *authflow.Deps) { d.Navigator = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.mutate(&deps)
			ctrl, err := authflow.NewController(deps)
			errutil.AssertErrorCode(t, err, authflow.CodeMissingDeps)
			errutil.AssertErrorContext(t, err, "dependency", tt.name)
			assert.Nil(t, ctrl)
		})
	}

	ctrl, err := authflow.NewController(full)
	require.NoError(t, err)
	assert.Equal(t, authflow.StateIdle, ctrl.State())
}

func TestLogin_SuccessInstallsSessionAndNavigates(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.On("Submit", mock.Anything, gateway.KindLogin,
		gateway.LoginRequest{Email: "ada@example.com", Password: "secret"}).
		Return(&gateway.SessionPayload{User: ada(), Message: "Welcome back"}, nil).Once()

	out, err := h.ctrl.Login(context.Background(), emailLogin(), "/requests/incoming")
	require.NoError(t, err)

	assert.True(t, out.Succeeded())
	assert.NotEmpty(t, out.AttemptID)
	assert.Equal(t, "u-ada", out.User.ID)
	assert.Equal(t, "/requests/incoming", out.Redirect)

	assert.True(t, h.store.Authenticated())
	assert.Equal(t, "u-ada", h.store.User().ID)
	for _, kind := range session.RequestKinds() {
		assert.Empty(t, h.store.Requests(kind), kind)
	}

	assert.Equal(t, []notify.Notification{{Kind: notify.Success, Message: "Welcome back"}}, h.notes.All())
	assert.Equal(t, []string{"/requests/incoming"}, h.history.Entries(), "login replaces the current entry")
	assert.Equal(t, authflow.StateIdle, h.ctrl.State())
	h.gw.AssertExpectations(t)
}

func TestLogin_DefaultMessageAndTarget(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()

	out, err := h.ctrl.Login(context.Background(), emailLogin(), route.LoginPath)
	require.NoError(t, err)

	assert.Equal(t, authflow.MessageLoginSuccess, out.Message)
	assert.Equal(t, route.DefaultLoginTarget, h.history.Current())
}

func TestLogin_UsernameKindSendsUsername(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.On("Submit", mock.Anything, gateway.KindLogin,
		gateway.LoginRequest{Username: "adalove", Password: "secret"}).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()

	_, err := h.ctrl.Login(context.Background(),
		form.Login{Identifier: "adalove", Kind: form.IdentifierUsername, Password: "secret"}, "")
	require.NoError(t, err)
	h.gw.AssertExpectations(t)
}

func TestLogin_InvalidFormNeverReachesGateway(t *testing.T) {
	h := newHarness(t, nil)

	out, err := h.ctrl.Login(context.Background(),
		form.Login{Identifier: "ab", Kind: form.IdentifierUsername, Password: "secret"}, "")

	errutil.AssertErrorCode(t, err, authflow.CodeInvalid)
	errutil.AssertErrorContext(t, err, "fields", []string{form.FieldUsername})
	assert.Equal(t, "Username must be more than 3 characters long.", out.Validation[form.FieldUsername])
	assert.Equal(t, authflow.StateIdle, out.State)
	assert.Empty(t, h.notes.All(), "validation errors are shown on the form, not as notifications")
	h.gw.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
	h.assertStoreUntouched(t)
}

func TestLogin_ServerRejectedLeavesStoreUnchanged(t *testing.T) {
	h := newHarness(t, nil)
	before := h.store.Version()
	rejected := testutil.ToFloat64(authflow.AuthAttempts.WithLabelValues("login", authflow.OutcomeRejected))

	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(nil, gateway.ErrServerRejected(401, "Invalid credentials")).Once()

	out, err := h.ctrl.Login(context.Background(), emailLogin(), "")

	errutil.AssertErrorCode(t, err, gateway.CodeServerRejected)
	assert.Equal(t, authflow.StateFailed, out.State)
	assert.Equal(t, "Invalid credentials", out.Message)
	assert.Equal(t, []notify.Notification{{Kind: notify.Error, Message: "Invalid credentials"}}, h.notes.All())
	assert.Equal(t, before, h.store.Version())
	h.assertStoreUntouched(t)
	assert.Equal(t, []string{route.LoginPath}, h.history.Entries())
	assert.Equal(t, authflow.StateIdle, h.ctrl.State())
	assert.Equal(t, rejected+1, testutil.ToFloat64(authflow.AuthAttempts.WithLabelValues("login", authflow.OutcomeRejected)))
}

func TestLogin_FailureTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{
			name:    "no response",
			err:     gateway.ErrNoResponse(errors.New("connection refused")),
			code:    gateway.CodeNoResponse,
			message: gateway.MessageNoResponse,
		},
		{
			name:    "timeout",
			err:     gateway.ErrTimeout(context.DeadlineExceeded),
			code:    gateway.CodeTimeout,
			message: gateway.MessageTimeout,
		},
		{
			name:    "unexpected",
			err:     gateway.ErrUnexpected("decode response", errors.New("bad json")),
			code:    gateway.CodeUnexpected,
			message: gateway.MessageUnexpected,
		},
		{
			name:    "rejected without message",
			err:     gateway.ErrServerRejected(200, gateway.MessageRejectedFallback),
			code:    gateway.CodeServerRejected,
			message: gateway.MessageRejectedFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).Return(nil, tt.err).Once()

			out, err := h.ctrl.Login(context.Background(), emailLogin(), "")

			errutil.AssertErrorCode(t, err, tt.code)
			assert.Equal(t, authflow.StateFailed, out.State)
			last, ok := h.notes.Last()
			require.True(t, ok)
			assert.Equal(t, notify.Notification{Kind: notify.Error, Message: tt.message}, last)
			h.assertStoreUntouched(t)
		})
	}
}

func TestLogin_CanceledIsSilent(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(nil, gateway.ErrCanceled(context.Canceled)).Once()

	out, err := h.ctrl.Login(context.Background(), emailLogin(), "")

	errutil.AssertErrorCode(t, err, gateway.CodeCanceled)
	assert.Equal(t, authflow.StateIdle, out.State)
	assert.Empty(t, h.notes.All())
	h.assertStoreUntouched(t)
}

func TestLogin_ResponseAfterCallerLeftIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()

	out, err := h.ctrl.Login(ctx, emailLogin(), "")

	errutil.AssertErrorCode(t, err, gateway.CodeCanceled)
	assert.False(t, out.Succeeded())
	assert.Empty(t, h.notes.All())
	h.assertStoreUntouched(t)
	assert.Equal(t, []string{route.LoginPath}, h.history.Entries())
}

func TestLogin_PayloadWithoutUserIsUnexpected(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(&gateway.SessionPayload{Message: "ok"}, nil).Once()

	_, err := h.ctrl.Login(context.Background(), emailLogin(), "")

	errutil.AssertErrorCode(t, err, gateway.CodeUnexpected)
	h.assertStoreUntouched(t)
}

func TestLogin_CommitFailureIsReported(t *testing.T) {
	h := newHarness(t, nil)
	h.store.SetCommitHook(func(session.Snapshot) error { return errors.New("disk full") })
	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()

	out, err := h.ctrl.Login(context.Background(), emailLogin(), "")

	errutil.AssertErrorCode(t, err, session.CodeCommitFailed)
	assert.Equal(t, authflow.StateFailed, out.State)
	assert.Equal(t, []notify.Notification{{Kind: notify.Error, Message: authflow.MessageCommitFailed}}, h.notes.All())
	h.assertStoreUntouched(t)
	assert.Equal(t, []string{route.LoginPath}, h.history.Entries(), "no navigation without a session")
}

func TestSignup_PasswordWithoutSpecialCharacter(t *testing.T) {
	h := newHarness(t, nil)
	s := validSignup()
	s.Password = "Password1"

	out, err := h.ctrl.Signup(context.Background(), s)

	errutil.AssertErrorCode(t, err, authflow.CodeInvalid)
	assert.Equal(t, "Password must contain at least one special character.", out.Validation[form.FieldPassword])
	h.gw.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignup_SuccessNavigatesAndRehydrates(t *testing.T) {
	rh := &mockRehydrator{}
	h := newHarness(t, rh)
	s := validSignup()

	h.gw.On("Submit", mock.Anything, gateway.KindSignup, gateway.NewSignupRequest(s)).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()
	rh.On("Rehydrate", mock.Anything).Return(nil).Once()

	out, err := h.ctrl.Signup(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, authflow.MessageSignupSuccess, out.Message)
	assert.Equal(t, route.SignupTarget, out.Redirect)
	assert.Equal(t, []string{route.LoginPath, route.SignupTarget}, h.history.Entries(), "signup pushes a new entry")
	assert.True(t, h.store.Authenticated())
	rh.AssertExpectations(t)
	h.gw.AssertExpectations(t)
}

// step is what a collaborator observed when it was called.
type step struct {
	name          string
	authenticated bool
	cachedEntries int
	page          string
}

// stepLog records the store and page as seen by each success side effect.
type stepLog struct {
	store   *session.Store
	history *route.History
	steps   []step
}

func (l *stepLog) record(name string) {
	total := 0
	for _, kind := range session.RequestKinds() {
		total += len(l.store.Requests(kind))
	}
	l.steps = append(l.steps, step{
		name:          name,
		authenticated: l.store.Authenticated(),
		cachedEntries: total,
		page:          l.history.Current(),
	})
}

// recordingNavigator records the call, then navigates history.
type recordingNavigator struct {
	log *stepLog
}

func (n recordingNavigator) Navigate(p string, opts route.NavigateOptions) error {
	n.log.record("navigate")
	return n.log.history.Navigate(p, opts)
}

func newOrderedController(t *testing.T, gw authflow.Gateway, rh authflow.Rehydrator) (*authflow.Controller, *stepLog) {
	t.Helper()
	log := &stepLog{store: session.NewStore(), history: route.NewHistory(route.LoginPath)}
	for _, kind := range session.RequestKinds() {
		require.NoError(t, log.store.SetRequests(kind, []session.Request{{ID: "stale-" + string(kind)}}))
	}
	ctrl, err := authflow.NewController(authflow.Deps{
		Gateway:    gw,
		Store:      log.store,
		Notifier:   notify.Func(func(notify.Kind, string) { log.record("notify") }),
		Navigator:  recordingNavigator{log: log},
		Rehydrator: rh,
	})
	require.NoError(t, err)
	return ctrl, log
}

func TestLogin_SuccessCommitsThenNotifiesThenNavigates(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()
	ctrl, log := newOrderedController(t, gw, nil)

	_, err := ctrl.Login(context.Background(), emailLogin(), "")
	require.NoError(t, err)

	assert.Equal(t, []step{
		{name: "notify", authenticated: true, cachedEntries: 0, page: route.LoginPath},
		{name: "navigate", authenticated: true, cachedEntries: 0, page: route.LoginPath},
	}, log.steps)
	assert.Equal(t, route.DefaultLoginTarget, log.history.Current())
}

func TestSignup_SuccessRehydratesAfterNavigating(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Submit", mock.Anything, gateway.KindSignup, mock.Anything).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()
	rh := &mockRehydrator{}
	ctrl, log := newOrderedController(t, gw, rh)
	rh.On("Rehydrate", mock.Anything).Run(func(mock.Arguments) { log.record("rehydrate") }).Return(nil).Once()

	_, err := ctrl.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	assert.Equal(t, []step{
		{name: "notify", authenticated: true, cachedEntries: 0, page: route.LoginPath},
		{name: "navigate", authenticated: true, cachedEntries: 0, page: route.LoginPath},
		{name: "rehydrate", authenticated: true, cachedEntries: 0, page: route.SignupTarget},
	}, log.steps)
	rh.AssertExpectations(t)
}

func TestSignup_RehydrateFailureKeepsSession(t *testing.T) {
	rh := &mockRehydrator{}
	h := newHarness(t, rh)

	h.gw.On("Submit", mock.Anything, gateway.KindSignup, mock.Anything).
		Return(&gateway.SessionPayload{User: ada(), Message: "Account created"}, nil).Once()
	rh.On("Rehydrate", mock.Anything).Return(gateway.ErrNoResponse(errors.New("down"))).Once()

	out, err := h.ctrl.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	assert.True(t, out.Succeeded())
	assert.True(t, h.store.Authenticated())
	assert.Equal(t, []notify.Notification{{Kind: notify.Success, Message: "Account created"}}, h.notes.All())
}

func TestLogin_RehydratorNotUsed(t *testing.T) {
	rh := &mockRehydrator{}
	h := newHarness(t, rh)
	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()

	_, err := h.ctrl.Login(context.Background(), emailLogin(), "")
	require.NoError(t, err)
	rh.AssertNotCalled(t, "Rehydrate", mock.Anything)
}

func TestController_RejectsSubmitWhileBusy(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()

	type result struct {
		out authflow.Outcome
		err error
	}
	first := make(chan result, 1)
	go func() {
		out, err := h.ctrl.Login(context.Background(), emailLogin(), "")
		first <- result{out: out, err: err}
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first submit never reached the gateway")
	}
	assert.Equal(t, authflow.StateSubmitting, h.ctrl.State())
	assert.True(t, h.ctrl.Busy())

	out, err := h.ctrl.Signup(context.Background(), validSignup())
	errutil.AssertErrorCode(t, err, authflow.CodeBusy)
	assert.Equal(t, authflow.MessageBusy, out.Message)

	close(release)
	var res result
	select {
	case res = <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first submit never finished")
	}
	require.NoError(t, res.err)
	assert.True(t, res.out.Succeeded())
	assert.Equal(t, authflow.StateIdle, h.ctrl.State())

	assert.Equal(t, []notify.Notification{
		{Kind: notify.Error, Message: authflow.MessageBusy},
		{Kind: notify.Success, Message: authflow.MessageLoginSuccess},
	}, h.notes.All())
	h.gw.AssertNumberOfCalls(t, "Submit", 1)
}

func TestController_AcceptsNextSubmitAfterFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(nil, gateway.ErrServerRejected(401, "Invalid credentials")).Once()
	h.gw.On("Submit", mock.Anything, gateway.KindLogin, mock.Anything).
		Return(&gateway.SessionPayload{User: ada()}, nil).Once()

	_, err := h.ctrl.Login(context.Background(), emailLogin(), "")
	require.Error(t, err)

	out, err := h.ctrl.Login(context.Background(), emailLogin(), "")
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", authflow.StateIdle.String())
	assert.Equal(t, "validating", authflow.StateValidating.String())
	assert.Equal(t, "submitting", authflow.StateSubmitting.String())
	assert.Equal(t, "success", authflow.StateSuccess.String())
	assert.Equal(t, "failed", authflow.StateFailed.String())
	assert.Equal(t, "unknown", authflow.State(42).String())
}
