// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package authflow

import (
	"maps"
	"slices"

	"github.com/samber/oops"

	"github.com/devroot/devroot/internal/form"
)

// Error codes returned by the controller. Gateway and session errors are
// returned as they are, with their own codes.
const (
	CodeInvalid     = "AUTHFLOW_INVALID"
	CodeBusy        = "AUTHFLOW_BUSY"
	CodeMissingDeps = "AUTHFLOW_MISSING_DEPENDENCY"
)

// User-facing messages owned by the controller.
const (
	MessageLoginSuccess  = "Logged In successful!"
	MessageSignupSuccess = "Signup successful!"
	MessageBusy          = "A request is already in progress."
	MessageCommitFailed  = "Could not save your session. Please try again."
)

// ErrBusy reports a submit rejected because another attempt is in flight.
func ErrBusy(flow Flow) error {
	return oops.Code(CodeBusy).
		With("flow", string(flow)).
		Errorf("%s rejected: another attempt is in progress", flow)
}

// ErrInvalid reports a form that did not pass validation.
func ErrInvalid(flow Flow, res form.Result) error {
	errs := res.Errors()
	fields := slices.Sorted(maps.Keys(errs))
	return oops.Code(CodeInvalid).
		With("flow", string(flow)).
		With("fields", fields).
		Errorf("%s form has %d invalid field(s)", flow, len(errs))
}
