package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fixzone/fixzone-portal/internal/adapters/authapi"
	"github.com/fixzone/fixzone-portal/internal/service"
)

// SessionsConfig wires the Sessions middleware.
type SessionsConfig struct {
	Registry *service.SessionRegistry
	Relay    CookieRelay
	Logger   *slog.Logger
}

// Sessions attaches the visitor's SessionStore and a request-scoped cookie
// jar seeded from the browser. Backend cookie changes made while serving the
// request are relayed back to the browser. Requires the Visitor middleware.
func Sessions(cfg SessionsConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID, ok := VisitorIDFromContext(r.Context())
			if !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusInternalServerError,
					ErrCode: "visitor_missing",
					Err:     errors.New("visitor id missing from request"),
				})
				return
			}
			jar, err := authapi.NewJar()
			if err != nil {
				logger.ErrorContext(r.Context(), "cookie jar", "error", err)
				WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: err})
				return
			}

			scope := cfg.Relay.Seed(r, jar)
			ctx := authapi.WithJar(r.Context(), jar)
			ctx = service.WithFlightScope(ctx, scope)
			ctx = service.WithClientInfo(ctx, service.ClientInfo{
				RemoteAddr: clientIP(r),
				UserAgent:  r.UserAgent(),
			})
			store := cfg.Registry.Get(ctx, visitorID)
			ctx = WithSessionStore(ctx, store)

			rw := &relayWriter{
				ResponseWriter: w,
				relay:          cfg.Relay,
				req:            r,
				jar:            jar,
				before:         cfg.Relay.Snapshot(jar),
			}
			next.ServeHTTP(rw, r.WithContext(ctx))
			rw.flush()
		})
	}
}

func storeOrError(w http.ResponseWriter, r *http.Request) (*service.SessionStore, bool) {
	store, ok := SessionStoreFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "session_missing",
			Err:     errors.New("session store missing from request"),
		})
	}
	return store, ok
}
