// Package validate holds the input-validation collaborators consumed by the
// session state machine.
package validate

import (
	"regexp"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email reports whether the string is a syntactically plausible email address
func Email(email string) bool {
	return emailPattern.MatchString(email)
}

// PasswordResult carries the full list of password strength violations. The
// state machine surfaces only the first one; callers wanting the whole list
// use this directly.
type PasswordResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Password checks the password strength rules: minimum length, at least one
// letter and at least one digit
func Password(password string) PasswordResult {
	var errs []string

	if len(password) < 6 {
		errs = append(errs, "password must be at least 6 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		errs = append(errs, "password must contain at least one letter")
	}
	if !hasDigit {
		errs = append(errs, "password must contain at least one number")
	}

	return PasswordResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}
