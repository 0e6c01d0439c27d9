// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"

	"github.com/devroot/devroot/internal/session"
	"github.com/devroot/devroot/pkg/errutil"
)

var tracer = otel.Tracer("devroot/gateway")

// DefaultTimeout bounds one request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// ProfilePath is fetched to re-hydrate the session after signup.
const ProfilePath = "/profile/view"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Config configures a Client.
type Config struct {
	// BaseURL of the identity service, e.g. https://api.example.com. Required.
	BaseURL string
	// Timeout per request. Zero means DefaultTimeout; negative disables it.
	Timeout time.Duration
	// HTTPClient is used as a template; its Jar is replaced. Optional.
	HTTPClient *http.Client
	// Logger for diagnostics. Optional.
	Logger *slog.Logger
}

// Client talks to the remote identity service. It keeps the session cookies
// the server sets, and sends them on every request.
type Client struct {
	base    *url.URL
	http    *http.Client
	jar     *recordingJar
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base, err := ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, oops.Code(CodeUnexpected).With("operation", "create cookie jar").Wrap(err)
	}
	jar := newRecordingJar(inner, base)

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		cp := *cfg.HTTPClient
		httpClient = &cp
	}
	httpClient.Jar = jar

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:    base,
		http:    httpClient,
		jar:     jar,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// ParseBaseURL checks that raw is an absolute http(s) URL and drops any
// trailing slash.
func ParseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, oops.Code(CodeUnexpected).
			With("operation", "parse base url").
			Errorf("backend base URL is not configured")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, oops.Code(CodeUnexpected).
			With("operation", "parse base url").
			With("base_url", raw).
			Wrap(err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, oops.Code(CodeUnexpected).
			With("operation", "parse base url").
			With("base_url", raw).
			Errorf("backend base URL must be an absolute http(s) URL")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Timeout returns the per-request timeout (<= 0 when disabled).
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Submit posts payload to the endpoint for kind and returns the session the
// server installed.
func (c *Client) Submit(ctx context.Context, kind Kind, payload any) (result *SessionPayload, err error) {
	ctx, span := tracer.Start(ctx, "gateway.submit",
		trace.WithAttributes(attribute.String("auth.kind", string(kind))),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, errutil.CodeOf(err))
		}
		span.End()
	}()

	if kind != KindLogin && kind != KindSignup {
		return nil, ErrUnexpected("submit", fmt.Errorf("unknown submission kind %q", kind))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ErrUnexpected("encode payload", err)
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/"+string(kind), body)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	if status < 200 || status > 299 {
		return nil, ErrServerRejected(status, statusMessage(respBody))
	}

	env, err := decodeEnvelope(respBody)
	if err != nil {
		return nil, ErrUnexpected("decode response", err)
	}
	if env.rejected() {
		msg := env.message()
		if msg == "" {
			msg = MessageRejectedFallback
		}
		return nil, ErrServerRejected(status, msg)
	}

	return &SessionPayload{User: env.User, Message: env.message()}, nil
}

// FetchProfile loads the signed-in user's profile using the stored cookies.
func (c *Client) FetchProfile(ctx context.Context) (user *session.UserProfile, err error) {
	ctx, span := tracer.Start(ctx, "gateway.fetch_profile")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, errutil.CodeOf(err))
		}
		span.End()
	}()

	status, body, err := c.do(ctx, http.MethodGet, ProfilePath, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, ErrServerRejected(status, statusMessage(body))
	}

	user, err = decodeProfile(body)
	if err != nil {
		return nil, ErrUnexpected("decode profile", err)
	}
	return user, nil
}

// decodeProfile accepts {"user": {...}}, {"data": {...}} or a bare profile.
func decodeProfile(body []byte) (*session.UserProfile, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	raw := json.RawMessage(body)
	for _, key := range []string{"user", "data"} {
		if v, ok := fields[key]; ok {
			raw = v
			break
		}
	}
	var user session.UserProfile
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("profile has no id")
	}
	return &user, nil
}

// Cookies returns the cookies the jar would send to the identity service,
// with the path, expiry and secure flag the service set.
func (c *Client) Cookies() []session.Cookie {
	return c.jar.snapshot(c.base)
}

// SetCookies seeds the jar, e.g. from a restored session snapshot. Cookies
// that have already expired are dropped.
func (c *Client) SetCookies(cookies []session.Cookie) {
	c.jar.restore(c.base, cookies)
}

// ClearCookies forgets every cookie for the identity service.
func (c *Client) ClearCookies() {
	c.jar.clear(c.base)
}

// do performs one request and classifies transport failures.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.base.JoinPath(path)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, endpoint.String(), reader)
	if err != nil {
		return 0, nil, ErrUnexpected("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		classified := c.classify(ctx, err)
		c.logger.DebugContext(ctx, "identity request failed",
			"method", method,
			"path", path,
			"duration", time.Since(start),
			"code", errutil.CodeOf(classified),
		)
		return 0, nil, classified
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // body fully read or abandoned
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, c.classify(ctx, err)
	}

	c.logger.DebugContext(ctx, "identity request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp.StatusCode, respBody, nil
}

// classify maps a transport error. The caller's own cancellation wins over
// everything else; a deadline (ours or the caller's) is a timeout.
func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ErrCanceled(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout(err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrNoResponse(err)
	}
	return ErrUnexpected("transport", err)
}
