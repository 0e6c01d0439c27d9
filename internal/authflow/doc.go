// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package authflow drives one login or signup attempt from form submission
// to an installed session.
//
// A Controller moves through Idle, Validating, Submitting and then Success or
// Failed before settling back to Idle. Only one attempt runs at a time; a
// second submit while one is in flight fails with CodeBusy.
//
// On success the session store is committed as one unit (every request cache
// cleared, user installed, authenticated set), the user is notified, and the
// navigator is asked to move on. On failure the store is left untouched and
// the user sees a message derived from the gateway error.
package authflow
