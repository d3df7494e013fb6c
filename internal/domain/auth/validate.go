package auth

import (
	"strings"
	"unicode/utf8"
)

const (
	minIdentifierLen = 3
	minPasswordLen   = 8
)

// Credentials is what a user submits on a login form.
type Credentials struct {
	LoginIdentifier string `json:"loginIdentifier"`
	Password        string `json:"password"`
}

// Validate checks credentials before any request is made.
// The first failing field is reported.
func (c Credentials) Validate() error {
	id := strings.TrimSpace(c.LoginIdentifier)
	switch {
	case id == "":
		return ValidationError("loginIdentifier", ReasonRequired, "login identifier is required")
	case utf8.RuneCountInString(id) < minIdentifierLen:
		return ValidationError("loginIdentifier", ReasonTooShort, "login identifier is too short")
	}

	switch {
	case c.Password == "":
		return ValidationError("password", ReasonRequired, "password is required")
	case utf8.RuneCountInString(c.Password) < minPasswordLen:
		return ValidationError("password", ReasonTooShort, "password is too short")
	}
	return nil
}
