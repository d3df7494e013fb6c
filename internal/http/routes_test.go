package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixzone/fixzone-portal/internal/adapters/devauth"
	"github.com/fixzone/fixzone-portal/internal/domain/guard"
)

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestNewRouter_RequiresServices(t *testing.T) {
	_, err := NewRouter(RouterServices{})
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	g := newGateway(t)

	resp := g.api(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeJSON(t, resp)["status"])

	req, err := http.NewRequest(http.MethodHead, g.url("/healthz"), nil)
	require.NoError(t, err)
	head := g.send(g.client, req)
	assert.Equal(t, http.StatusOK, head.StatusCode)
	assert.Empty(t, readBody(t, head))
}

func TestHealthz_FailingCheck(t *testing.T) {
	g := newGateway(t, HealthCheck{Name: "redis", Check: func(context.Context) error {
		return errors.New("connection refused")
	}})

	resp := g.api(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]any)["redis"])
}

func TestStaticAssets(t *testing.T) {
	g := newGateway(t)
	resp := g.page("/static/portal.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestGuard_AnonymousBrowserRedirectsToLogin(t *testing.T) {
	g := newGateway(t)

	resp := g.page("/repairs")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?redirect_uri=%2Frepairs", resp.Header.Get("Location"))

	_, ok := g.browserCookie(g.client, VisitorCookieName)
	assert.True(t, ok, "visitor cookie issued on first visit")

	decisions := g.metrics.Named("guard.decision")
	require.NotEmpty(t, decisions)
	assert.Equal(t, string(guard.KindRedirectLogin), decisions[len(decisions)-1].Tags["decision"])
}

func TestGuard_AnonymousCustomerRouteUsesCustomerLogin(t *testing.T) {
	g := newGateway(t)
	resp := g.page("/customer/invoices")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/customer/login?redirect_uri=%2Fcustomer%2Finvoices", resp.Header.Get("Location"))
}

func TestGuard_APIClientGetsJSON(t *testing.T) {
	g := newGateway(t)

	resp := g.api(http.MethodGet, "/inventory", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "authentication_required", body["error"])
	assert.Equal(t, "/login?redirect_uri=%2Finventory", body["redirect_to"])
}

func TestLoginPage_Renders(t *testing.T) {
	g := newGateway(t)

	resp := g.page("/customer/login?redirect_uri=/customer/repairs", "Accept-Language", "en-US")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	html := readBody(t, resp)
	assert.Contains(t, html, "Customer portal")
	assert.Contains(t, html, `name="redirect_uri" value="/customer/repairs"`)
	assert.Contains(t, html, `dir="ltr"`)

	resp = g.page("/login?redirect_uri=https://evil.example")
	html = readBody(t, resp)
	assert.Contains(t, html, `dir="rtl"`)
	assert.Contains(t, html, `name="redirect_uri" value=""`)
}

func TestFormLogin_TechnicianFlow(t *testing.T) {
	g := newGateway(t)

	resp := g.form("/api/auth/login", url.Values{
		"loginIdentifier": {"tech@fixzone.test"},
		"password":        {devPassword},
		"redirect_uri":    {"/repairs"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/repairs", resp.Header.Get("Location"))

	token, ok := g.browserCookie(g.client, devauth.CookieName)
	require.True(t, ok, "backend session cookie relayed to the browser")
	assert.NotEmpty(t, token.Value)

	page := g.page("/repairs")
	require.Equal(t, http.StatusOK, page.StatusCode)
	html := readBody(t, page)
	assert.Contains(t, html, "tech-shell")
	assert.Contains(t, html, "Dev Technician")

	wrong := g.page("/customer/dashboard")
	assert.Equal(t, http.StatusSeeOther, wrong.StatusCode)
	assert.Equal(t, guard.HomeTechnician, wrong.Header.Get("Location"))
}

func TestFormLogin_RedirectOutsideAudienceFallsBackHome(t *testing.T) {
	g := newGateway(t)

	resp := g.form("/api/auth/login", url.Values{
		"loginIdentifier": {"customer@fixzone.test"},
		"password":        {devPassword},
		"area":            {"customer"},
		"redirect_uri":    {"/inventory"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, guard.HomeCustomer, resp.Header.Get("Location"))

	page := g.page("/customer/dashboard")
	require.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, readBody(t, page), "customer-shell")
}

func TestFormLogin_ErrorRerendersLocalized(t *testing.T) {
	g := newGateway(t)

	resp := g.form("/api/auth/login", url.Values{
		"loginIdentifier": {"admin@fixzone.test"},
		"password":        {"not-the-password"},
		"area":            {"staff"},
	}, "Accept-Language", "en")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	html := readBody(t, resp)
	assert.Contains(t, html, "Incorrect password")
	assert.Contains(t, html, `value="admin@fixzone.test"`)

	_, ok := g.browserCookie(g.client, devauth.CookieName)
	assert.False(t, ok)
}

func TestJSONLogin(t *testing.T) {
	g := newGateway(t)

	resp := g.loginJSON("admin@fixzone.test")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "staff", body["audience"])
	assert.Equal(t, guard.HomeStaff, body["redirect_to"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin@fixzone.test", user["email"])
	assert.Equal(t, user["role"], user["roleId"])
}

func TestJSONLogin_Failures(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		lang   string
		status int
		kind   string
		msg    string
	}{
		{
			name:   "validation in arabic by default",
			body:   `{"loginIdentifier":"","password":"x"}`,
			status: http.StatusBadRequest,
			kind:   "validation",
			msg:    "لازم تدخل الإيميل أو الموبايل",
		},
		{
			name:   "wrong password in english",
			body:   `{"loginIdentifier":"admin@fixzone.test","password":"wrong-password"}`,
			lang:   "en",
			status: http.StatusUnauthorized,
			kind:   "invalid_credentials",
			msg:    "Incorrect password",
		},
		{
			name:   "unknown user",
			body:   `{"loginIdentifier":"nobody@fixzone.test","password":"whatever123"}`,
			lang:   "en",
			status: http.StatusNotFound,
			kind:   "user_not_found",
			msg:    "No user matches these details",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGateway(t)
			resp := g.api(http.MethodPost, "/api/auth/login", tt.body, "Accept-Language", tt.lang)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeJSON(t, resp)
			assert.Equal(t, tt.kind, body["error"])
			assert.Equal(t, tt.msg, body["message"])
		})
	}
}

func TestJSONLogin_RejectsUnknownFields(t *testing.T) {
	g := newGateway(t)
	resp := g.api(http.MethodPost, "/api/auth/login", `{"user":"a"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_json", decodeJSON(t, resp)["error"])
}

func TestMe(t *testing.T) {
	g := newGateway(t)

	resp := g.api(http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, decodeJSON(t, resp)["authenticated"])

	require.Equal(t, http.StatusOK, g.loginJSON("customer@fixzone.test").StatusCode)

	resp = g.api(http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "customer", body["audience"])
	assert.EqualValues(t, 301, body["user"].(map[string]any)["customerId"])
}

func TestBackendCookieIsTheCredential(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.loginJSON("admin@fixzone.test").StatusCode)
	token, ok := g.browserCookie(g.client, devauth.CookieName)
	require.True(t, ok)

	// A fresh browser holding only the backend cookie is a new visitor,
	// and the restore against the backend still signs it in.
	other := g.newClient()
	u, err := url.Parse(g.server.URL)
	require.NoError(t, err)
	other.Jar.SetCookies(u, []*http.Cookie{{Name: token.Name, Value: token.Value, Path: "/"}})

	req, err := http.NewRequest(http.MethodGet, g.url("/api/auth/me"), nil)
	require.NoError(t, err)
	resp := g.send(other, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, g.registry.Len())
}

func TestLogout_JSON(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.loginJSON("admin@fixzone.test").StatusCode)

	resp := g.api(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, guard.LoginStaff, body["redirect_to"])

	_, ok := g.browserCookie(g.client, devauth.CookieName)
	assert.False(t, ok, "backend cookie deleted in the browser")

	me := g.api(http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
}

func TestLogout_CustomerFormGoesToCustomerLogin(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.loginJSON("customer@fixzone.test").StatusCode)

	resp := g.form("/api/auth/logout", url.Values{"area": {"customer"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, guard.LoginCustomer, resp.Header.Get("Location"))
}

func TestLoginPage_SignedInVisitorIsSentHome(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.loginJSON("customer@fixzone.test").StatusCode)

	resp := g.page("/customer/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, guard.HomeCustomer, resp.Header.Get("Location"))
}

func TestDecisionEndpoint(t *testing.T) {
	g := newGateway(t)
	require.Equal(t, http.StatusOK, g.loginJSON("customer@fixzone.test").StatusCode)

	resp := g.api(http.MethodGet, "/api/auth/decision?path="+url.QueryEscape("/inventory"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, string(guard.KindRedirectHome), body["kind"])
	assert.Equal(t, guard.HomeCustomer, body["redirect_to"])

	resp = g.api(http.MethodGet, "/api/auth/decision?path="+url.QueryEscape("/customer/repairs"), "")
	body = decodeJSON(t, resp)
	assert.Equal(t, string(guard.KindRender), body["kind"])
	assert.Equal(t, string(guard.LayoutCustomer), body["layout"])

	resp = g.api(http.MethodGet, "/api/auth/decision?path="+url.QueryEscape("//evil.example/x"), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateProfile(t *testing.T) {
	g := newGateway(t)

	resp := g.api(http.MethodPut, "/api/auth/profile", `{"name":"New Name"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, http.StatusOK, g.loginJSON("customer@fixzone.test").StatusCode)

	resp = g.api(http.MethodPut, "/api/auth/profile", `{"name":"  "}`, "Accept-Language", "en")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "name", body["field"])
	assert.Equal(t, "Name is required", body["message"])

	resp = g.api(http.MethodPut, "/api/auth/profile", `{"name":"Renamed Customer"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeJSON(t, resp)
	assert.Equal(t, "Renamed Customer", body["user"].(map[string]any)["name"])
}

func TestUnknownPublicPathIsNotFound(t *testing.T) {
	g := newGateway(t)
	resp := g.page("/track/REP-1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
