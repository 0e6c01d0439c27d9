// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package form

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// SpecialCharacters is the set a password must draw from and a name must avoid.
const SpecialCharacters = `!@#$%^&*(),.?":{}|<>`

const digits = "0123456789"

// emailShape rejects Unicode separators such as NBSP as well as ASCII whitespace.
var emailShape = regexp.MustCompile(`^[^\s\p{Z}]+@[^\s\p{Z}]+\.[^\s\p{Z}]+$`)

// Custom validator tags.
const (
	tagRequiredTrimmed = "required_trimmed"
	tagEmailShape      = "email_shape"
	tagTrimmedMin      = "trimmed_min"
	tagPlainName       = "plain_name"
	tagHasUpper        = "has_upper"
	tagHasDigit        = "has_digit"
	tagHasSpecial      = "has_special"
)

func registerRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		tagRequiredTrimmed: validateRequiredTrimmed,
		tagEmailShape:      validateEmailShape,
		tagTrimmedMin:      validateTrimmedMin,
		tagPlainName:       validatePlainName,
		tagHasUpper:        validateHasUpper,
		tagHasDigit:        validateHasDigit,
		tagHasSpecial:      validateHasSpecial,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func validateRequiredTrimmed(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// The shape check runs on the raw value, so surrounding blanks fail it.
func validateEmailShape(fl validator.FieldLevel) bool {
	return emailShape.MatchString(fl.Field().String())
}

func validateTrimmedMin(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
}

func validatePlainName(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), digits+SpecialCharacters)
}

func validateHasUpper(fl validator.FieldLevel) bool {
	return strings.ContainsAny(fl.Field().String(), "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
}

func validateHasDigit(fl validator.FieldLevel) bool {
	return strings.ContainsAny(fl.Field().String(), digits)
}

func validateHasSpecial(fl validator.FieldLevel) bool {
	return strings.ContainsAny(fl.Field().String(), SpecialCharacters)
}
