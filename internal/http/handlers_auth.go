package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/domain/guard"
)

// AuthHandlers serves the gateway's auth endpoints and login pages.
type AuthHandlers struct {
	Policy   guard.Policy
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	LoginIdentifier string `json:"loginIdentifier"`
	Password        string `json:"password"`
	Area            string `json:"area,omitempty"`
	RedirectURI     string `json:"redirect_uri,omitempty"`
}

// sessionResponse is the JSON view of a session state.
type sessionResponse struct {
	Authenticated bool                 `json:"authenticated"`
	User          *domainauth.Identity `json:"user,omitempty"`
	Audience      domainauth.Audience  `json:"audience,omitempty"`
	RedirectTo    string               `json:"redirect_to,omitempty"`
}

func sessionBody(st domainauth.State) sessionResponse {
	out := sessionResponse{Authenticated: st.IsAuthenticated, User: st.User}
	if aud, ok := st.Audience(); ok {
		out.Audience = aud
	}
	return out
}

// Login signs the visitor in. It accepts JSON from the SPA and url-encoded
// posts from the login page.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	store, ok := storeOrError(w, r)
	if !ok {
		return
	}

	var req loginRequest
	browser := IsBrowserRequest(r)
	if browser {
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return
		}
		req = loginRequest{
			LoginIdentifier: r.PostForm.Get("loginIdentifier"),
			Password:        r.PostForm.Get("password"),
			Area:            r.PostForm.Get("area"),
			RedirectURI:     r.PostForm.Get("redirect_uri"),
		}
	} else if !DecodeJSON(w, r, &req) {
		return
	}

	if err := store.Login(r.Context(), req.LoginIdentifier, req.Password); err != nil {
		h.logger().InfoContext(r.Context(), "login rejected", "kind", domainauth.KindOf(err), "area", req.Area)
		if browser {
			h.renderLogin(w, r, loginPage{
				Area:        normalizeArea(req.Area),
				RedirectURI: safeRedirectPath(req.RedirectURI),
				Identifier:  strings.TrimSpace(req.LoginIdentifier),
				Err:         err,
			})
			return
		}
		WriteAuthError(w, r, err)
		return
	}

	st := store.State()
	dest := h.postLoginDestination(st, req.RedirectURI)
	if browser {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}
	body := sessionBody(st)
	body.RedirectTo = dest
	WriteJSON(w, http.StatusOK, body)
}

// postLoginDestination honors redirect_uri only when the guard would render
// it for the new session; otherwise the audience's home wins.
func (h *AuthHandlers) postLoginDestination(st domainauth.State, redirectURI string) string {
	if target := safeRedirectPath(redirectURI); target != "" {
		if d := h.Policy.Decide(guard.Input{State: st, Path: target}); d.Kind == guard.KindRender {
			return target
		}
	}
	return guard.HomeForState(st)
}

// Me confirms the session with the backend and returns it.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	store, ok := storeOrError(w, r)
	if !ok {
		return
	}
	store.RestoreSession(r.Context())
	st := store.State()
	status := http.StatusOK
	if !st.IsAuthenticated {
		status = http.StatusUnauthorized
	}
	WriteJSON(w, status, sessionBody(st))
}

// Logout clears the session locally and at the backend. It always succeeds.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := storeOrError(w, r)
	if !ok {
		return
	}
	store.Logout(r.Context())

	loginPath := guard.LoginStaff
	if normalizeArea(r.FormValue("area")) == AreaCustomer {
		loginPath = guard.LoginCustomer
	}
	if IsBrowserRequest(r) {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": loginPath})
}

// UpdateProfile changes the signed-in user's own fields.
func (h *AuthHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	store, ok := storeOrError(w, r)
	if !ok {
		return
	}
	var upd domainauth.ProfileUpdate
	if !DecodeJSON(w, r, &upd) {
		return
	}
	if !store.State().Resolved {
		store.RestoreSession(r.Context())
	}
	if err := store.UpdateProfile(r.Context(), upd); err != nil {
		WriteAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessionBody(store.State()))
}

// Decision evaluates the guard for ?path= so the SPA router can ask before
// navigating client-side.
func (h *AuthHandlers) Decision(w http.ResponseWriter, r *http.Request) {
	store, ok := storeOrError(w, r)
	if !ok {
		return
	}
	target := safeRedirectPath(r.URL.Query().Get("path"))
	if target == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_path", "message": "path must be a same-origin absolute path"})
		return
	}
	if !h.Policy.IsPublic(strings.SplitN(target, "?", 2)[0]) {
		store.RestoreSession(r.Context())
	}
	WriteJSON(w, http.StatusOK, decisionBody(h.Policy.Decide(guard.Input{State: store.State(), Path: target})))
}

// StaffLoginPage renders the staff login form.
func (h *AuthHandlers) StaffLoginPage(w http.ResponseWriter, r *http.Request) {
	h.loginPage(w, r, AreaStaff)
}

// CustomerLoginPage renders the customer portal login form.
func (h *AuthHandlers) CustomerLoginPage(w http.ResponseWriter, r *http.Request) {
	h.loginPage(w, r, AreaCustomer)
}

// loginPage sends an already signed-in visitor on to where they belong.
// Only a cached authenticated state triggers a backend check, so anonymous
// visitors see the form without a round trip.
func (h *AuthHandlers) loginPage(w http.ResponseWriter, r *http.Request, area string) {
	store, ok := storeOrError(w, r)
	if !ok {
		return
	}
	redirect := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	if st := store.State(); st.IsAuthenticated {
		if !st.Resolved {
			store.RestoreSession(r.Context())
		}
		if st = store.State(); st.IsAuthenticated {
			http.Redirect(w, r, h.postLoginDestination(st, redirect), http.StatusSeeOther)
			return
		}
	}
	h.renderLogin(w, r, loginPage{Area: area, RedirectURI: redirect})
}

type loginPage struct {
	Area        string
	RedirectURI string
	Identifier  string
	Err         error
}

type loginData struct {
	Lang        domainauth.Lang
	Title       string
	Area        string
	Error       string
	RedirectURI string
	Identifier  string
	Text        PageText
}

func (h *AuthHandlers) renderLogin(w http.ResponseWriter, r *http.Request, p loginPage) {
	lang := requestLang(r)
	text := textFor(lang)
	data := loginData{
		Lang:        lang,
		Title:       text.StaffLogin,
		Area:        p.Area,
		RedirectURI: p.RedirectURI,
		Identifier:  p.Identifier,
		Text:        text,
	}
	if p.Area == AreaCustomer {
		data.Title = text.CustomerLogin
	}
	status := http.StatusOK
	if p.Err != nil {
		data.Error = domainauth.Localize(p.Err, lang)
		status = AuthErrorStatus(domainauth.KindOf(p.Err))
	}
	h.Renderer.Render(w, r, status, TemplateLogin, data)
}

func normalizeArea(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), AreaCustomer) {
		return AreaCustomer
	}
	return AreaStaff
}
