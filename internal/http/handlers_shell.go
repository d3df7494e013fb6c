package httpx

import (
	"net/http"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/domain/guard"
)

type shellData struct {
	Lang     domainauth.Lang
	Title    string
	Layout   guard.Layout
	Area     string
	Audience domainauth.Audience
	Path     string
	User     *domainauth.Identity
	Text     PageText
}

// ShellHandler renders the layout the guard chose around the SPA mount point.
// Requests that reach it without a render decision are not pages.
func ShellHandler(renderer *TemplateRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := DecisionFromContext(r.Context())
		if !ok || d.Kind != guard.KindRender {
			http.NotFound(w, r)
			return
		}
		store, ok := storeOrError(w, r)
		if !ok {
			return
		}
		lang := requestLang(r)
		text := textFor(lang)
		renderer.Render(w, r, http.StatusOK, TemplateLayout, shellData{
			Lang:     lang,
			Title:    text.AppTitle,
			Layout:   d.Layout,
			Area:     d.Area,
			Audience: d.Audience,
			Path:     r.URL.Path,
			User:     store.State().User,
			Text:     text,
		})
	}
}
