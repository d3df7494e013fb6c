package auth

// Package auth contains domain-level types for portal authentication state.
// It is pure and free of framework/adapter concerns.

// Audience is the portion of the user base a page is built for.
// Staff is the residual audience: anything not customer or technician.
type Audience string

const (
	AudienceStaff      Audience = "staff"
	AudienceTechnician Audience = "technician"
	AudienceCustomer   Audience = "customer"
)

// TypeCustomer is the identity type sentinel some backend responses use
// instead of (or inconsistently with) the numeric role.
const TypeCustomer = "customer"

// Identity is the canonical user record returned by the backend.
// Build it with DecodeIdentity; callers never patch fields in place.
type Identity struct {
	ID                 int64
	Name               string
	Email              string
	Phone              string
	RoleID             RoleID
	Type               string
	CustomerID         int64
	ForcePasswordReset bool
}

// State is the client's belief about who is logged in.
// IsAuthenticated is true if and only if User is non-nil.
type State struct {
	IsAuthenticated bool
	User            *Identity
	// Token is kept for older clients that still read it; cookie auth does not use it.
	Token string
	// Resolved reports whether the backend has confirmed (or denied) the session
	// at least once. Cached state is never resolved.
	Resolved bool
}

// Unauthenticated returns the empty state.
func Unauthenticated(resolved bool) State {
	return State{Resolved: resolved}
}

// Authenticated returns a resolved state for the given identity.
func Authenticated(id Identity, token string) State {
	u := id
	return State{IsAuthenticated: true, User: &u, Token: token, Resolved: true}
}

// Clone returns a deep copy so callers cannot mutate the owner's record.
func (s State) Clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.IsAuthenticated = out.User != nil
	return out
}

// Audience classifies the current user. Unauthenticated states have no audience.
func (s State) Audience() (Audience, bool) {
	if !s.IsAuthenticated || s.User == nil {
		return "", false
	}
	return Classify(*s.User), true
}

// CustomerRef returns the customer id used by customer pages, falling back to the user id.
func (i Identity) CustomerRef() int64 {
	if i.CustomerID != 0 {
		return i.CustomerID
	}
	return i.ID
}
