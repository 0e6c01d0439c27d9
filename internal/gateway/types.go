// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package gateway

import (
	"github.com/devroot/devroot/internal/form"
	"github.com/devroot/devroot/internal/session"
)

// Kind selects the identity endpoint.
type Kind string

// Submission kinds, also the endpoint path segment.
const (
	KindLogin  Kind = "login"
	KindSignup Kind = "signup"
)

// LoginRequest is the login body. Exactly one of Email and Username is set.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// NewLoginRequest builds the body for l according to its identifier kind.
func NewLoginRequest(l form.Login) LoginRequest {
	if l.Kind == form.IdentifierUsername {
		return LoginRequest{Username: l.Identifier, Password: l.Password}
	}
	return LoginRequest{Email: l.Identifier, Password: l.Password}
}

// SignupRequest is the signup body.
type SignupRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// NewSignupRequest builds the body for s.
func NewSignupRequest(s form.Signup) SignupRequest {
	return SignupRequest{
		Email:     s.Email,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Username:  s.Username,
		Password:  s.Password,
	}
}

// SessionPayload is a successful login or signup.
type SessionPayload struct {
	User *session.UserProfile
	// Message is the server's message, possibly empty.
	Message string
}
