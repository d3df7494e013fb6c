package httpx

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/fixzone/fixzone-portal/internal/domain/guard"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
	"github.com/fixzone/fixzone-portal/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Registry *service.SessionRegistry
	Policy   guard.Policy
	Relay    CookieRelay
	Visitors *VisitorCookies
	Renderer *TemplateRenderer
	// StaticFS is served under /static/. Optional.
	StaticFS fs.FS
	Health   []HealthCheck
	Metrics  statsd.Sink
	Logger   *slog.Logger
}

// NewRouter creates the gateway router. Everything except health and static
// assets runs behind the visitor and session middleware; page routes also
// pass the guard.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Registry == nil {
		return nil, errors.New("session registry is required")
	}
	if services.Visitors == nil {
		return nil, errors.New("visitor cookies are required")
	}
	if services.Renderer == nil {
		return nil, errors.New("template renderer is required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	health := HealthHandler(services.Health...)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if services.StaticFS != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(services.StaticFS)))
	}

	session := func(h http.Handler) http.Handler {
		return Chain(h,
			Visitor(services.Visitors),
			Sessions(SessionsConfig{Registry: services.Registry, Relay: services.Relay, Logger: logger}),
		)
	}
	auth := &AuthHandlers{Policy: services.Policy, Renderer: services.Renderer, Logger: logger}
	registerAuthRoutes(mux, auth, session)

	shell := Chain(ShellHandler(services.Renderer),
		Visitor(services.Visitors),
		Sessions(SessionsConfig{Registry: services.Registry, Relay: services.Relay, Logger: logger}),
		Guard(GuardConfig{Policy: services.Policy, Metrics: services.Metrics, Logger: logger}),
	)
	mux.Handle("GET /", shell)

	return Chain(mux,
		RequestID(),
		Logging(logger),
		Recover(logger),
		BrowserDetection(),
		Compression(CompressionConfig{MinSize: 512}),
	), nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, session func(http.Handler) http.Handler) {
	mux.Handle("POST /api/auth/login", session(http.HandlerFunc(h.Login)))
	mux.Handle("GET /api/auth/me", session(http.HandlerFunc(h.Me)))
	mux.Handle("POST /api/auth/logout", session(http.HandlerFunc(h.Logout)))
	mux.Handle("PUT /api/auth/profile", session(http.HandlerFunc(h.UpdateProfile)))
	mux.Handle("GET /api/auth/decision", session(http.HandlerFunc(h.Decision)))
	mux.Handle("GET "+guard.LoginStaff, session(http.HandlerFunc(h.StaffLoginPage)))
	mux.Handle("GET "+guard.LoginCustomer, session(http.HandlerFunc(h.CustomerLoginPage)))
}
