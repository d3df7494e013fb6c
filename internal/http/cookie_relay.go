package httpx

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// CookieRelay mirrors the backend's session cookies between the browser and
// the per-request jar used for backend calls. The browser holds the cookies
// under the gateway's domain; the jar holds them for the backend origin.
type CookieRelay struct {
	// Names lists the backend cookies to relay, e.g. "token".
	Names   []string
	Backend *url.URL
	Domain  string
	Secure  bool
}

// Seed copies the relayed browser cookies into jar and returns a
// fingerprint of their values, "" when the browser sent none.
func (c CookieRelay) Seed(r *http.Request, jar http.CookieJar) string {
	var seeded []*http.Cookie
	for _, name := range c.Names {
		bc, err := r.Cookie(name)
		if err != nil || bc.Value == "" {
			continue
		}
		seeded = append(seeded, &http.Cookie{Name: name, Value: bc.Value, Path: "/"})
	}
	if len(seeded) == 0 || c.Backend == nil {
		return ""
	}
	jar.SetCookies(c.Backend, seeded)
	return fingerprint(seeded)
}

// Snapshot returns the relayed cookie values currently in jar.
func (c CookieRelay) Snapshot(jar http.CookieJar) map[string]string {
	out := make(map[string]string, len(c.Names))
	if c.Backend == nil {
		return out
	}
	for _, jc := range jar.Cookies(c.Backend) {
		if c.relays(jc.Name) {
			out[jc.Name] = jc.Value
		}
	}
	return out
}

// Apply writes Set-Cookie headers for every relayed cookie that changed
// between before and after. Vanished cookies are deleted in the browser.
func (c CookieRelay) Apply(h http.Header, r *http.Request, before, after map[string]string) {
	secure := c.Secure || isSecure(r)
	for _, name := range c.Names {
		prev, now := before[name], after[name]
		switch {
		case now != "" && now != prev:
			// cookiejar hides expiry, so the browser copy lives for the browser session.
			h.Add("Set-Cookie", (&http.Cookie{
				Name: name, Value: now, Path: "/", Domain: c.Domain,
				HttpOnly: true, Secure: secure, SameSite: http.SameSiteLaxMode,
			}).String())
		case now == "" && prev != "":
			h.Add("Set-Cookie", (&http.Cookie{
				Name: name, Value: "", Path: "/", Domain: c.Domain, MaxAge: -1,
				HttpOnly: true, Secure: secure, SameSite: http.SameSiteLaxMode,
			}).String())
		}
	}
}

func (c CookieRelay) relays(name string) bool {
	for _, n := range c.Names {
		if n == name {
			return true
		}
	}
	return false
}

func fingerprint(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:8])
}

// relayWriter applies cookie changes just before the response header is sent.
type relayWriter struct {
	http.ResponseWriter
	relay  CookieRelay
	req    *http.Request
	jar    http.CookieJar
	before map[string]string
	done   bool
}

func (w *relayWriter) flush() {
	if w.done {
		return
	}
	w.done = true
	w.relay.Apply(w.Header(), w.req, w.before, w.relay.Snapshot(w.jar))
}

func (w *relayWriter) WriteHeader(status int) {
	w.flush()
	w.ResponseWriter.WriteHeader(status)
}

func (w *relayWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *relayWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
