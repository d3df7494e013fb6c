package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const techRecord = `{"id":7,"name":"Mona Tech","email":"mona@fixzone.test","roleId":3}`

// fakeBackend speaks the four auth endpoints with a cookie session.
type fakeBackend struct {
	mu      sync.Mutex
	token   string
	logouts int
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.URL.Path {
	case "/api/auth/login":
		var body struct {
			LoginIdentifier string `json:"loginIdentifier"`
			Password        string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.LoginIdentifier != "mona@fixzone.test" || body.Password != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		b.token = "session-1"
		http.SetCookie(w, &http.Cookie{Name: "token", Value: b.token, Path: "/", HttpOnly: true})
		_, _ = io.WriteString(w, techRecord)
	case "/api/auth/me":
		c, err := r.Cookie("token")
		if err != nil || b.token == "" || c.Value != b.token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Not authorized"}`)
			return
		}
		_, _ = io.WriteString(w, techRecord)
	case "/api/auth/logout":
		b.token = ""
		b.logouts++
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		_, _ = io.WriteString(w, `{"status":"success"}`)
	default:
		http.NotFound(w, r)
	}
}

type cliHarness struct {
	t     *testing.T
	api   string
	state string
}

func newCLIHarness(t *testing.T) (*cliHarness, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return &cliHarness{t: t, api: srv.URL + "/api", state: filepath.Join(t.TempDir(), "state.db")}, backend
}

func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append(args, "--api", h.api, "--state", h.state))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_SessionSurvivesBetweenCommands(t *testing.T) {
	h, backend := newCLIHarness(t)

	out, err := h.run("auth", "login", "mona@fixzone.test", "--password", "correct-horse")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Mona Tech (technician). Home: /tech/dashboard")

	out, err = h.run("auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Mona Tech")

	out, err = h.run("auth", "whoami", "--json")
	require.NoError(t, err)
	var user map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.EqualValues(t, 7, user["id"])

	out, err = h.run("auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")
	assert.Equal(t, 1, backend.logouts)

	out, err = h.run("auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")

	_, err = h.run("auth", "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestCLI_LoginFailureIsLocalized(t *testing.T) {
	h, _ := newCLIHarness(t)

	_, err := h.run("auth", "login", "-u", "mona@fixzone.test", "-p", "wrong-password")
	require.Error(t, err)

	_, err = h.run("auth", "login", "-u", "mo", "-p", "correct-horse")
	require.Error(t, err, "validation happens before any backend call")

	out, err := h.run("auth", "status", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"authenticated":false}`, out)
}

func TestCLI_PasswordFromStdin(t *testing.T) {
	h, _ := newCLIHarness(t)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("correct-horse\n"))
	cmd.SetArgs([]string{"auth", "login", "mona@fixzone.test", "--api", h.api, "--state", h.state})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Signed in as Mona Tech")
}

func TestCLI_RouteCheck(t *testing.T) {
	h, _ := newCLIHarness(t)

	out, err := h.run("route", "check", "/tech/dashboard", "--json")
	require.NoError(t, err)
	var anon []routeResult
	require.NoError(t, json.Unmarshal([]byte(out), &anon))
	require.Len(t, anon, 1)
	assert.Equal(t, "redirect_login", anon[0].Decision)

	_, err = h.run("auth", "login", "mona@fixzone.test", "-p", "correct-horse")
	require.NoError(t, err)

	out, err = h.run("route", "check", "/tech/dashboard", "/customer/dashboard", "/login", "--json")
	require.NoError(t, err)
	var results []routeResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "render", results[0].Decision)
	assert.Equal(t, "technician", results[0].Layout)
	assert.Equal(t, "redirect_home", results[1].Decision)
	assert.Equal(t, "/tech/dashboard", results[1].Location)
	assert.Equal(t, "public", results[2].Decision)

	out, err = h.run("route", "check", "/tech/dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "DECISION")
	assert.Contains(t, out, "render")
}

func TestCLI_RejectsRelativeAPI(t *testing.T) {
	h, _ := newCLIHarness(t)
	h.api = "/api"
	_, err := h.run("auth", "status")
	require.Error(t, err)
}
