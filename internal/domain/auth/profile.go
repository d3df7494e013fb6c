package auth

import (
	"net/mail"
	"strings"
)

// ReasonInvalid marks a value that is present but malformed.
const ReasonInvalid = "invalid"

// ProfileUpdate is the set of identity fields a signed-in user may change
// themselves. Phone is a pointer so "clear my phone" and "leave it" differ.
type ProfileUpdate struct {
	Name  string  `json:"name"`
	Email string  `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Validate mirrors the backend's own checks so obvious mistakes never leave the client.
func (p ProfileUpdate) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ValidationError("name", ReasonRequired, "name is required")
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil || !strings.Contains(p.Email, ".") {
			return ValidationError("email", ReasonInvalid, "invalid email format")
		}
	}
	return nil
}

// Apply returns a copy of id with the update's fields written over it.
// The backend's response remains authoritative; this is only used by
// in-process backends.
func (p ProfileUpdate) Apply(id Identity) Identity {
	out := id
	out.Name = strings.TrimSpace(p.Name)
	if p.Email != "" {
		out.Email = p.Email
	}
	if p.Phone != nil {
		out.Phone = *p.Phone
	}
	return out
}
