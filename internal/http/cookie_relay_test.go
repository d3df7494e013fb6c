package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixzone/fixzone-portal/internal/adapters/authapi"
)

func testRelay(t *testing.T) CookieRelay {
	t.Helper()
	u, err := url.Parse("https://api.fixzone.test/api")
	require.NoError(t, err)
	return CookieRelay{Names: []string{"token"}, Backend: u, Domain: "portal.fixzone.test"}
}

func TestCookieRelay_SeedAndSnapshot(t *testing.T) {
	relay := testRelay(t)
	jar, err := authapi.NewJar()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "abc"})
	req.AddCookie(&http.Cookie{Name: "fz_visitor", Value: "ignored"})

	fp := relay.Seed(req, jar)
	assert.NotEmpty(t, fp)
	assert.Equal(t, map[string]string{"token": "abc"}, relay.Snapshot(jar))

	jar2, err := authapi.NewJar()
	require.NoError(t, err)
	assert.Equal(t, fp, relay.Seed(req, jar2), "fingerprint is stable for the same cookies")
}

func TestCookieRelay_SeedWithoutCookies(t *testing.T) {
	relay := testRelay(t)
	jar, err := authapi.NewJar()
	require.NoError(t, err)

	assert.Empty(t, relay.Seed(httptest.NewRequest(http.MethodGet, "/", nil), jar))
	assert.Empty(t, relay.Snapshot(jar))
}

func TestCookieRelay_Apply(t *testing.T) {
	relay := testRelay(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	t.Run("new value is set", func(t *testing.T) {
		h := http.Header{}
		relay.Apply(h, req, map[string]string{}, map[string]string{"token": "new"})
		cookies := (&http.Response{Header: h}).Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "new", cookies[0].Value)
		assert.Equal(t, "portal.fixzone.test", cookies[0].Domain)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("unchanged value is left alone", func(t *testing.T) {
		h := http.Header{}
		relay.Apply(h, req, map[string]string{"token": "same"}, map[string]string{"token": "same"})
		assert.Empty(t, h.Values("Set-Cookie"))
	})

	t.Run("vanished value is deleted", func(t *testing.T) {
		h := http.Header{}
		relay.Apply(h, req, map[string]string{"token": "old"}, map[string]string{})
		cookies := (&http.Response{Header: h}).Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestRelayWriter_FlushesOnce(t *testing.T) {
	relay := testRelay(t)
	jar, err := authapi.NewJar()
	require.NoError(t, err)
	jar.SetCookies(relay.Backend, []*http.Cookie{{Name: "token", Value: "fresh", Path: "/"}})

	rec := httptest.NewRecorder()
	rw := &relayWriter{
		ResponseWriter: rec,
		relay:          relay,
		req:            httptest.NewRequest(http.MethodGet, "/", nil),
		jar:            jar,
		before:         map[string]string{},
	}
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte("ok"))
	rw.flush()
	assert.Len(t, rec.Result().Cookies(), 1)
}
