// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package session

// Error codes returned by this package.
const (
	CodeUnknownKind    = "SESSION_UNKNOWN_KIND"
	CodeUserRequired   = "SESSION_USER_REQUIRED"
	CodeCommitFailed   = "SESSION_COMMIT_FAILED"
	CodeInvalidRestore = "SESSION_INVALID_SNAPSHOT"
	CodeSnapshotIO     = "SESSION_SNAPSHOT_IO"
)
