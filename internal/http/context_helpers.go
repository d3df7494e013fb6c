package httpx

import (
	"context"

	"github.com/fixzone/fixzone-portal/internal/domain/guard"
	"github.com/fixzone/fixzone-portal/internal/service"
)

// Unexported context key types to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same keys.
type (
	visitorKey  struct{}
	storeKey    struct{}
	decisionKey struct{}
)

// WithVisitorID returns a child context carrying the visitor id.
func WithVisitorID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, visitorKey{}, id)
}

// VisitorIDFromContext returns the visitor id set by the Visitor middleware.
func VisitorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(visitorKey{}).(string)
	return id, ok && id != ""
}

// WithSessionStore returns a child context carrying the visitor's session store.
// If store is nil, the original ctx is returned unchanged.
func WithSessionStore(ctx context.Context, store *service.SessionStore) context.Context {
	if store == nil {
		return ctx
	}
	return context.WithValue(ctx, storeKey{}, store)
}

// SessionStoreFromContext returns the store set by the Sessions middleware.
func SessionStoreFromContext(ctx context.Context) (*service.SessionStore, bool) {
	s, ok := ctx.Value(storeKey{}).(*service.SessionStore)
	return s, ok && s != nil
}

func withDecision(ctx context.Context, d guard.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFromContext returns the guard decision that let the request through.
func DecisionFromContext(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(guard.Decision)
	return d, ok
}
