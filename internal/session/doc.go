// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package session holds the client-side session state of a DevRoot client.
//
// # State
//
// A Store owns three things:
//   - the current user profile (nil while anonymous)
//   - the authenticated flag, which is true exactly when a user is installed
//   - one RequestCache per RequestKind (interested, connection, follower,
//     following, ignored, rejected)
//
// The store is an explicit object. Create one with NewStore and pass it to the
// components that need it; there is no package-level instance.
//
// # Transitions
//
// Commit installs a new session and, when asked, clears every request cache
// in the same critical section. Readers holding the store lock never observe
// a user without the flag, nor a new user next to caches from the previous
// session. A CommitHook (for example FileSnapshotter.Save) runs inside that
// critical section; if it fails the store is left exactly as it was.
package session
