package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind categorizes an authentication failure so callers can react
// (and localize) without inspecting message text.
type ErrorKind string

const (
	// KindValidation is a client-side input problem; no request was made.
	KindValidation ErrorKind = "validation"
	// KindInvalidCredentials means the backend rejected the password.
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	// KindUserNotFound means no user matches the login identifier.
	KindUserNotFound ErrorKind = "user_not_found"
	// KindAccountDisabled means the account exists but may not sign in.
	KindAccountDisabled ErrorKind = "account_disabled"
	// KindRateLimited means too many attempts were made recently.
	KindRateLimited ErrorKind = "rate_limited"
	// KindNetwork means the backend could not be reached.
	KindNetwork ErrorKind = "network"
	// KindTimeout means the backend did not answer in time.
	KindTimeout ErrorKind = "timeout"
	// KindServer means the backend failed while handling the request.
	KindServer ErrorKind = "server"
	// KindUnauthenticated means there is no valid session.
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindLoginInProgress means another login call is still pending.
	KindLoginInProgress ErrorKind = "login_in_progress"
	// KindCanceled means the caller abandoned the request or it was superseded.
	KindCanceled ErrorKind = "canceled"
	// KindUnrecognized covers backend failures this client does not know yet.
	KindUnrecognized ErrorKind = "unrecognized"
)

// Validation reasons.
const (
	ReasonRequired = "required"
	ReasonTooShort = "too_short"
)

// Error is the typed failure returned by Login and UpdateProfile.
type Error struct {
	Kind ErrorKind
	// Message is the backend's (or our) human-readable text, unlocalized.
	Message string
	// Field and Reason are set for validation errors.
	Field  string
	Reason string
	// Status is the backend HTTP status, zero when no response was received.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether retrying the same request could succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// ValidationError builds a field-level validation failure.
func ValidationError(field, reason, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason, Message: message}
}

// KindOf extracts the kind from err. Context errors map to timeout/canceled;
// anything else that is not an *Error is unrecognized.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindUnrecognized
}

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	k := KindOf(err)
	return k == KindTimeout
}

var statusKinds = map[int]ErrorKind{
	http.StatusBadRequest:      KindValidation,
	http.StatusUnauthorized:    KindInvalidCredentials,
	http.StatusForbidden:       KindAccountDisabled,
	http.StatusNotFound:        KindUserNotFound,
	http.StatusRequestTimeout:  KindTimeout,
	http.StatusTooManyRequests: KindRateLimited,
	http.StatusGatewayTimeout:  KindTimeout,
}

// legacyPhrases covers older backends that report failures under a generic
// status. Keys are matched case-insensitively as substrings.
var legacyPhrases = []struct {
	phrase string
	kind   ErrorKind
}{
	{"too many", KindRateLimited},
	{"user not found", KindUserNotFound},
	{"incorrect password", KindInvalidCredentials},
	{"invalid credentials", KindInvalidCredentials},
	{"please provide login identifier", KindValidation},
	{"network error", KindNetwork},
	{"server error", KindServer},
}

// KindForResponse infers the kind of a failed backend response. The status
// code decides whenever it is specific; the phrase table is only consulted
// for statuses without a fixed meaning.
func KindForResponse(status int, message string) ErrorKind {
	if k, ok := statusKinds[status]; ok {
		return k
	}
	if status >= http.StatusInternalServerError {
		return KindServer
	}
	lower := strings.ToLower(message)
	for _, p := range legacyPhrases {
		if strings.Contains(lower, p.phrase) {
			return p.kind
		}
	}
	return KindUnrecognized
}
