// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package authflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/devroot/devroot/internal/gateway"
	"github.com/devroot/devroot/internal/session"
)

// Re-hydration defaults.
const (
	DefaultRehydrateRetries = 3
	DefaultRehydrateBackoff = 200 * time.Millisecond
)

// ProfileFetcher loads the signed-in user's profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context) (*session.UserProfile, error)
}

// StoreRehydrator refreshes the store from the server's view of the user.
// Transient gateway failures are retried with exponential backoff.
type StoreRehydrator struct {
	fetcher ProfileFetcher
	store   Store
	retries uint64
	base    time.Duration
	logger  *slog.Logger
}

// RehydratorOption configures a StoreRehydrator.
type RehydratorOption func(*StoreRehydrator)

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n uint64) RehydratorOption {
	return func(r *StoreRehydrator) { r.retries = n }
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(base time.Duration) RehydratorOption {
	return func(r *StoreRehydrator) {
		if base > 0 {
			r.base = base
		}
	}
}

// WithRehydrateLogger sets the logger.
func WithRehydrateLogger(logger *slog.Logger) RehydratorOption {
	return func(r *StoreRehydrator) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewStoreRehydrator creates a rehydrator that commits fetched profiles to store.
func NewStoreRehydrator(fetcher ProfileFetcher, store Store, opts ...RehydratorOption) (*StoreRehydrator, error) {
	if fetcher == nil {
		return nil, oops.Code(CodeMissingDeps).With("dependency", "fetcher").Errorf("profile fetcher is required")
	}
	if store == nil {
		return nil, oops.Code(CodeMissingDeps).With("dependency", "store").Errorf("store is required")
	}
	r := &StoreRehydrator{
		fetcher: fetcher,
		store:   store,
		retries: DefaultRehydrateRetries,
		base:    DefaultRehydrateBackoff,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Rehydrate fetches the profile and installs it with every cache cleared.
func (r *StoreRehydrator) Rehydrate(ctx context.Context) error {
	backoff := retry.WithMaxRetries(r.retries, retry.NewExponential(r.base))

	attempt := 0
	var user *session.UserProfile
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		u, err := r.fetcher.FetchProfile(ctx)
		if err != nil {
			if gateway.IsTransient(err) {
				r.logger.DebugContext(ctx, "profile fetch failed, retrying",
					"attempt", attempt,
					"error", err,
				)
				return retry.RetryableError(err)
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return err
	}
	return r.store.Commit(session.Commit{User: user, ClearRequests: true})
}
