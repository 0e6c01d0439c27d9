// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package route decides which client pages need a signed-in user and keeps
// the in-memory navigation history the auth flow hands off to.
package route
