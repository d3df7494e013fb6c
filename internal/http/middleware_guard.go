package httpx

import (
	"log/slog"
	"net/http"

	"github.com/fixzone/fixzone-portal/internal/domain/guard"
	"github.com/fixzone/fixzone-portal/internal/observability/metrics"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
)

// GuardConfig wires the Guard middleware.
type GuardConfig struct {
	Policy  guard.Policy
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// Guard confirms the visitor's session with the backend, then lets the page
// render or redirects. Browsers get 303 redirects; API clients get JSON with
// the redirect target. Requires the Sessions middleware.
func Guard(cfg GuardConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Policy.IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			store, ok := storeOrError(w, r)
			if !ok {
				return
			}

			store.RestoreSession(r.Context())
			d := cfg.Policy.Decide(guard.Input{State: store.State(), Path: r.URL.RequestURI()})
			metrics.EmitGuardDecision(cfg.Metrics, metrics.GuardMetric{
				Area:     d.Area,
				Decision: string(d.Kind),
				Audience: string(d.Audience),
			})
			logger.DebugContext(r.Context(), "guard decision",
				"path", r.URL.Path, "kind", d.Kind, "area", d.Area, "location", d.Location)

			switch d.Kind {
			case guard.KindRender, guard.KindPublic:
				next.ServeHTTP(w, r.WithContext(withDecision(r.Context(), d)))
			case guard.KindRedirectLogin:
				denied(w, r, d, http.StatusUnauthorized, "authentication_required")
			case guard.KindRedirectHome:
				denied(w, r, d, http.StatusForbidden, "wrong_audience")
			default:
				w.Header().Set("Retry-After", "1")
				WriteJSON(w, http.StatusServiceUnavailable, decisionBody(d))
			}
		})
	}
}

func denied(w http.ResponseWriter, r *http.Request, d guard.Decision, status int, code string) {
	if IsBrowserRequest(r) {
		http.Redirect(w, r, d.Location, http.StatusSeeOther)
		return
	}
	body := decisionBody(d)
	body.Error = code
	WriteJSON(w, status, body)
}

type decisionResponse struct {
	Error    string `json:"error,omitempty"`
	Kind     string `json:"kind"`
	Area     string `json:"area,omitempty"`
	Location string `json:"redirect_to,omitempty"`
	Layout   string `json:"layout,omitempty"`
	Audience string `json:"audience,omitempty"`
}

func decisionBody(d guard.Decision) decisionResponse {
	return decisionResponse{
		Kind:     string(d.Kind),
		Area:     d.Area,
		Location: d.Location,
		Layout:   string(d.Layout),
		Audience: string(d.Audience),
	}
}
