// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, ready ReadinessChecker, opts ...Option) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready, opts...)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, func() bool { return true }, WithVersion("1.2.3"))

	RecordSessionCommit(CommitOK)
	RecordShellCommand("login")

	status, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `devroot_build_info{version="1.2.3"} 1`)
	assert.Contains(t, body, "devroot_session_commits_total")
	assert.Contains(t, body, `devroot_shell_commands_total{command="login"}`)
}

func TestServer_Registry_ServesExtraCollectors(t *testing.T) {
	extra := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devroot_test_extra_total",
		Help: "test counter",
	})
	server := NewServer("127.0.0.1:0", nil)
	server.Registry().MustRegister(extra)
	extra.Inc()

	_, err := server.Start()
	require.NoError(t, err)
	defer func() { _ = server.Stop(context.Background()) }()

	_, body := get(t, server, "/metrics")
	assert.Contains(t, body, "devroot_test_extra_total 1")
}

func TestRecordSessionCommit(t *testing.T) {
	before := testutil.ToFloat64(sessionCommits.WithLabelValues(CommitFailed))
	RecordSessionCommit(CommitFailed)
	RecordSessionCommit(CommitFailed)
	assert.InDelta(t, before+2, testutil.ToFloat64(sessionCommits.WithLabelValues(CommitFailed)), 0)
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, nil)

	status, body := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		ready      ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{name: "ready", ready: func() bool { return true }, wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "not ready", ready: func() bool { return false }, wantStatus: http.StatusServiceUnavailable, wantBody: "not ready"},
		{name: "nil checker", ready: nil, wantStatus: http.StatusOK, wantBody: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, tt.ready)
			status, body := get(t, server, "/healthz/readiness")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(body))
		})
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)
	_, err := server.Start()
	assert.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	assert.NoError(t, server.Stop(context.Background()))
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	errCh, err := server.Start()
	require.NoError(t, err)
	defer func() { _ = server.Stop(context.Background()) }()

	require.NotNil(t, server.listener)
	_ = server.listener.Close()

	select {
	case serveErr := <-errCh:
		assert.Error(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error on error channel")
	}
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	errCh, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error channel to close")
	}
}
