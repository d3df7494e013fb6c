package httpx

import (
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/require"

	portal "github.com/fixzone/fixzone-portal"
	"github.com/fixzone/fixzone-portal/internal/adapters/devauth"
	"github.com/fixzone/fixzone-portal/internal/domain/guard"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
	"github.com/fixzone/fixzone-portal/internal/service"
)

const devPassword = "fixzone-dev"

// gateway is a running router backed by the in-process dev backend, plus a
// browser-like client that keeps cookies and does not follow redirects.
type gateway struct {
	t        *testing.T
	backend  *devauth.Backend
	registry *service.SessionRegistry
	metrics  *statsd.Memory
	server   *httptest.Server
	client   *http.Client
}

func testRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	tfs, err := fs.Sub(portal.TemplateFS, "web/templates")
	require.NoError(t, err)
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: tfs})
	require.NoError(t, err)
	return r
}

func newGateway(t *testing.T, health ...HealthCheck) *gateway {
	t.Helper()
	backend, err := devauth.NewBackend(devauth.Config{Accounts: devauth.DefaultAccounts(devPassword)})
	require.NoError(t, err)

	mem := &statsd.Memory{}
	reg, err := service.NewSessionRegistry(service.SessionRegistryOptions{Backend: backend, Metrics: mem})
	require.NoError(t, err)

	visitors, err := NewVisitorCookies(securecookie.GenerateRandomKey(32), nil, "", false)
	require.NoError(t, err)
	sfs, err := fs.Sub(portal.StaticFS, "web/static")
	require.NoError(t, err)

	h, err := NewRouter(RouterServices{
		Registry: reg,
		Policy:   guard.DefaultPolicy(),
		Relay:    CookieRelay{Names: []string{devauth.CookieName}, Backend: backend.BaseURL()},
		Visitors: visitors,
		Renderer: testRenderer(t),
		StaticFS: sfs,
		Health:   health,
		Metrics:  mem,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g := &gateway{t: t, backend: backend, registry: reg, metrics: mem, server: srv}
	g.client = g.newClient()
	return g
}

func (g *gateway) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(g.t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (g *gateway) url(path string) string { return g.server.URL + path }

// page fetches path the way a browser navigation does.
func (g *gateway) page(path string, header ...string) *http.Response {
	g.t.Helper()
	req, err := http.NewRequest(http.MethodGet, g.url(path), nil)
	require.NoError(g.t, err)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	setHeaders(req, header)
	return g.send(g.client, req)
}

// api calls path the way the SPA's fetch client does.
func (g *gateway) api(method, path, body string, header ...string) *http.Response {
	g.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, g.url(path), rd)
	require.NoError(g.t, err)
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	setHeaders(req, header)
	return g.send(g.client, req)
}

func (g *gateway) form(path string, values url.Values, header ...string) *http.Response {
	g.t.Helper()
	req, err := http.NewRequest(http.MethodPost, g.url(path), strings.NewReader(values.Encode()))
	require.NoError(g.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	setHeaders(req, header)
	return g.send(g.client, req)
}

func (g *gateway) send(c *http.Client, req *http.Request) *http.Response {
	g.t.Helper()
	resp, err := c.Do(req)
	require.NoError(g.t, err)
	g.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (g *gateway) loginJSON(identifier string) *http.Response {
	g.t.Helper()
	return g.api(http.MethodPost, "/api/auth/login",
		`{"loginIdentifier":"`+identifier+`","password":"`+devPassword+`"}`)
}

// browserCookie returns the named cookie the client would send to the gateway.
func (g *gateway) browserCookie(c *http.Client, name string) (*http.Cookie, bool) {
	u, err := url.Parse(g.server.URL)
	require.NoError(g.t, err)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == name {
			return ck, true
		}
	}
	return nil, false
}

func setHeaders(req *http.Request, kv []string) {
	for i := 0; i+1 < len(kv); i += 2 {
		req.Header.Set(kv[i], kv[i+1])
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
