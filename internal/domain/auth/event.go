package auth

import "time"

// EventType names an auth event worth auditing.
type EventType string

const (
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventLogout          EventType = "logout"
	EventSessionRestored EventType = "session_restored"
	EventRestoreFailed   EventType = "restore_failed"
	EventProfileUpdated  EventType = "profile_updated"
)

// Event is one audited auth occurrence. UserID is zero when nobody was signed in.
type Event struct {
	Type       EventType
	VisitorID  string
	UserID     int64
	Audience   Audience
	ErrorKind  ErrorKind
	Identifier string
	RemoteAddr string
	UserAgent  string
	At         time.Time
}
