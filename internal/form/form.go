// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package form

import "sort"

// Field names used as Result keys and as JSON keys on the wire.
const (
	FieldEmail     = "email"
	FieldUsername  = "username"
	FieldPassword  = "password"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
)

// IdentifierKind selects how a login identifies the user.
type IdentifierKind int

// Identifier kinds. Email is the zero value.
const (
	IdentifierEmail IdentifierKind = iota
	IdentifierUsername
)

// String returns "email" or "username".
func (k IdentifierKind) String() string {
	if k == IdentifierUsername {
		return FieldUsername
	}
	return FieldEmail
}

// Login is the login form.
type Login struct {
	Identifier string
	Kind       IdentifierKind
	Password   string
}

// Toggle switches between email and username mode and clears the typed
// credentials.
func (l *Login) Toggle() {
	if l.Kind == IdentifierUsername {
		l.Kind = IdentifierEmail
	} else {
		l.Kind = IdentifierUsername
	}
	l.Identifier = ""
	l.Password = ""
}

// Signup is the signup form.
type Signup struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// Result maps field name to error message; "" means valid.
type Result map[string]string

// Valid reports whether every field maps to "".
func (r Result) Valid() bool {
	for _, msg := range r {
		if msg != "" {
			return false
		}
	}
	return true
}

// Errors returns only the failing fields.
func (r Result) Errors() map[string]string {
	out := make(map[string]string)
	for field, msg := range r {
		if msg != "" {
			out[field] = msg
		}
	}
	return out
}

// Messages returns the non-empty messages ordered by field name.
func (r Result) Messages() []string {
	fields := make([]string, 0, len(r))
	for field, msg := range r {
		if msg != "" {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		out = append(out, r[field])
	}
	return out
}
