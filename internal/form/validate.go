// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package form

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Field rules. validator stops at the first failing tag of a field, so the
// tag order is the order in which rules are reported.
type loginEmailFields struct {
	Email    string `form:"email" validate:"required_trimmed,email_shape"`
	Password string `form:"password" validate:"required_trimmed"`
}

type loginUsernameFields struct {
	Username string `form:"username" validate:"trimmed_min=4"`
	Password string `form:"password" validate:"required_trimmed"`
}

type signupFields struct {
	Email     string `form:"email" validate:"required_trimmed,email_shape"`
	Username  string `form:"username" validate:"trimmed_min=4"`
	FirstName string `form:"firstName" validate:"trimmed_min=4,plain_name"`
	LastName  string `form:"lastName" validate:"omitempty,plain_name"`
	Password  string `form:"password" validate:"trimmed_min=8,has_upper,has_digit,has_special"`
}

// messages is keyed by "field|tag".
var messages = map[string]string{
	FieldEmail + "|" + tagRequiredTrimmed:    "Email is required.",
	FieldEmail + "|" + tagEmailShape:         "Enter a valid email address.",
	FieldUsername + "|" + tagTrimmedMin:      "Username must be more than 3 characters long.",
	FieldFirstName + "|" + tagTrimmedMin:     "Name must be more than 3 characters long.",
	FieldFirstName + "|" + tagPlainName:      "Name should contain only characters",
	FieldLastName + "|" + tagPlainName:       "Name should contain only characters",
	FieldPassword + "|" + tagRequiredTrimmed: "Enter A Password.",
	FieldPassword + "|" + tagTrimmedMin:      "Password must be at least 8 characters long.",
	FieldPassword + "|" + tagHasUpper:        "Password must contain at least one uppercase letter.",
	FieldPassword + "|" + tagHasDigit:        "Password must contain at least one number.",
	FieldPassword + "|" + tagHasSpecial:      "Password must contain at least one special character.",
}

const fallbackMessage = "Invalid value."

// Validator checks forms. The zero value is not usable; use NewValidator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a validator with the form rules registered.
func NewValidator() (*Validator, error) {
	v := validator.New()
	if err := registerRules(v); err != nil {
		return nil, err
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}, nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

func std() *Validator {
	defaultOnce.Do(func() {
		v, err := NewValidator()
		if err != nil {
			// Only reachable if a rule tag is malformed.
			panic(err)
		}
		defaultValidator = v
	})
	return defaultValidator
}

// ValidateLogin validates l with the package validator.
func ValidateLogin(l Login) Result { return std().ValidateLogin(l) }

// ValidateSignup validates s with the package validator.
func ValidateSignup(s Signup) Result { return std().ValidateSignup(s) }

// ValidateLogin returns a Result with keys email, username and password.
// Only the key for the active identifier kind can carry a message.
func (v *Validator) ValidateLogin(l Login) Result {
	res := Result{FieldEmail: "", FieldUsername: "", FieldPassword: ""}
	if l.Kind == IdentifierUsername {
		v.collect(res, loginUsernameFields{Username: l.Identifier, Password: l.Password})
	} else {
		v.collect(res, loginEmailFields{Email: l.Identifier, Password: l.Password})
	}
	return res
}

// ValidateSignup returns a Result with one key per signup field.
func (v *Validator) ValidateSignup(s Signup) Result {
	res := Result{
		FieldEmail:     "",
		FieldUsername:  "",
		FieldFirstName: "",
		FieldLastName:  "",
		FieldPassword:  "",
	}
	v.collect(res, signupFields(s))
	return res
}

func (v *Validator) collect(res Result, fields any) {
	err := v.validate.Struct(fields)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"|"+fe.Tag()]
		if !ok {
			msg = fallbackMessage
		}
		res[fe.Field()] = msg
	}
}
