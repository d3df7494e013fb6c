package service

import "context"

// ClientInfo describes the client on whose behalf a call is made. It only
// feeds the audit trail.
type ClientInfo struct {
	RemoteAddr string
	UserAgent  string
}

type clientInfoKey struct{}

type flightScopeKey struct{}

// WithClientInfo attaches client details to ctx.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFromContext returns the details attached by WithClientInfo.
func ClientInfoFromContext(ctx context.Context) (ClientInfo, bool) {
	info, ok := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info, ok
}

// WithFlightScope narrows restore de-duplication to calls carrying the same
// scope, typically a fingerprint of the credentials sent to the backend.
func WithFlightScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, flightScopeKey{}, scope)
}

func flightScope(ctx context.Context) string {
	s, _ := ctx.Value(flightScopeKey{}).(string)
	return s
}
