// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package gateway

import (
	"github.com/samber/oops"
)

// Error codes returned by the gateway.
const (
	// CodeServerRejected: the server answered and refused the request.
	CodeServerRejected = "GATEWAY_SERVER_REJECTED"
	// CodeNoResponse: the request was sent but nothing came back.
	CodeNoResponse = "GATEWAY_NO_RESPONSE"
	// CodeUnexpected: any other local or protocol fault.
	CodeUnexpected = "GATEWAY_UNEXPECTED"
	// CodeTimeout: the configured timeout elapsed first.
	CodeTimeout = "GATEWAY_TIMEOUT"
	// CodeCanceled: the caller's context was canceled.
	CodeCanceled = "GATEWAY_CANCELED"
)

// Fallback user-facing messages.
const (
	MessageRejectedFallback = "An error occurred"
	MessageStatusFallback   = "Something went wrong!"
	MessageNoResponse       = "No response from the server. Please try again."
	MessageUnexpected       = "An unexpected error occurred."
	MessageTimeout          = "The server took too long to respond. Please try again."
)

// ErrServerRejected creates an error carrying the server's message.
func ErrServerRejected(status int, message string) error {
	return oops.Code(CodeServerRejected).
		With("status", status).
		With("message", message).
		Errorf("server rejected request: %s", message)
}

// ErrNoResponse wraps a transport failure where no response arrived.
func ErrNoResponse(cause error) error {
	return oops.Code(CodeNoResponse).Wrap(cause)
}

// ErrUnexpected wraps a local or protocol fault.
func ErrUnexpected(operation string, cause error) error {
	return oops.Code(CodeUnexpected).
		With("operation", operation).
		Wrap(cause)
}

// ErrTimeout wraps a request that ran out of time.
func ErrTimeout(cause error) error {
	return oops.Code(CodeTimeout).Wrap(cause)
}

// ErrCanceled wraps a request abandoned by its caller.
func ErrCanceled(cause error) error {
	return oops.Code(CodeCanceled).Wrap(cause)
}

// ServerMessage returns the user-facing text for a gateway error.
// Cancellation has no user-facing text and yields "".
func ServerMessage(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return MessageUnexpected
	}
	switch oopsErr.Code() {
	case CodeServerRejected:
		if msg, ok := oopsErr.Context()["message"].(string); ok && msg != "" {
			return msg
		}
		return MessageRejectedFallback
	case CodeNoResponse:
		return MessageNoResponse
	case CodeTimeout:
		return MessageTimeout
	case CodeCanceled:
		return ""
	default:
		return MessageUnexpected
	}
}

// IsTransient reports whether retrying err could succeed.
func IsTransient(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	switch oopsErr.Code() {
	case CodeNoResponse, CodeTimeout:
		return true
	default:
		return false
	}
}
