package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
)

// AuthBackend is the FixZone REST backend's auth surface. Credentials travel
// as HTTP-only cookies, so implementations carry them out of band (see
// authapi.WithJar); none of these methods take a token.
type AuthBackend interface {
	// Login exchanges credentials for a backend session and returns the signed-in identity.
	Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error)

	// Me returns the identity of the current backend session.
	Me(ctx context.Context) (domainauth.Identity, error)

	// Logout ends the backend session.
	Logout(ctx context.Context) error

	// UpdateProfile changes the caller's own identity fields and returns the stored record.
	UpdateProfile(ctx context.Context, upd domainauth.ProfileUpdate) (domainauth.Identity, error)
}

// ErrStateNotFound is returned by StateStorage.Load when nothing is stored under the key.
var ErrStateNotFound = errors.New("persisted state not found")

// StateStorage is durable key/value storage for serialized session state.
type StateStorage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// AuthEventRecorder keeps an audit trail of auth events.
type AuthEventRecorder interface {
	Record(ctx context.Context, ev domainauth.Event) error
}

// AuditPruner deletes audit events older than maxAge and reports how many went.
type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}
