// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package form holds the login and signup credential forms and their
// validation rules.
//
// Validation is pure: a Result maps every field of the form to a message,
// with "" meaning the field is valid. Nothing here touches the network or
// the session.
package form
