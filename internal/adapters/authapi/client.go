// Package authapi is the HTTP client of the FixZone backend's auth endpoints.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/net/publicsuffix"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
)

const (
	pathLogin   = "/auth/login"
	pathMe      = "/auth/me"
	pathLogout  = "/auth/logout"
	pathProfile = "/auth/profile"

	maxBodyBytes = 1 << 20
)

// Config configures the backend client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport is used for every call; nil means http.DefaultTransport.
	Transport http.RoundTripper
	// IdentityPath locates the user record in login and me responses.
	IdentityPath string
	// ProfileIdentityPath locates the user record in profile update responses.
	ProfileIdentityPath string
	Logger              *slog.Logger
}

// Client talks to the backend with cookie credentials. Each call uses the
// jar carried by its context (see WithJar), falling back to the client's own.
type Client struct {
	base         *url.URL
	timeout      time.Duration
	transport    http.RoundTripper
	identityPath string
	profilePath  string
	jar          http.CookieJar
	logger       *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("backend base url must be absolute: %q", raw)
	}

	identityPath := fallback(cfg.IdentityPath, "@")
	profilePath := fallback(cfg.ProfileIdentityPath, "user")
	for _, expr := range []string{identityPath, profilePath} {
		if _, cerr := jmespath.Compile(expr); cerr != nil {
			return nil, fmt.Errorf("compile identity path %q: %w", expr, cerr)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	jar, err := NewJar()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:         base,
		timeout:      timeout,
		transport:    transport,
		identityPath: identityPath,
		profilePath:  profilePath,
		jar:          jar,
		logger:       logger.With("component", "authapi"),
	}, nil
}

// NewJar returns an empty cookie jar with public-suffix aware domain rules.
func NewJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return jar, nil
}

type jarKey struct{}

// WithJar makes every backend call under ctx send and store cookies in jar.
func WithJar(ctx context.Context, jar http.CookieJar) context.Context {
	return context.WithValue(ctx, jarKey{}, jar)
}

// BaseURL returns the backend root the client targets.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Jar returns the client's fallback jar.
func (c *Client) Jar() http.CookieJar { return c.jar }

// JarFromContext returns the jar installed by WithJar, if any.
func JarFromContext(ctx context.Context) (http.CookieJar, bool) {
	jar, ok := ctx.Value(jarKey{}).(http.CookieJar)
	return jar, ok && jar != nil
}

func (c *Client) jarFor(ctx context.Context) http.CookieJar {
	if jar, ok := JarFromContext(ctx); ok {
		return jar
	}
	return c.jar
}

// Login posts credentials and returns the signed-in identity.
func (c *Client) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	body, err := c.do(ctx, http.MethodPost, pathLogin, map[string]string{
		"loginIdentifier": strings.TrimSpace(creds.LoginIdentifier),
		"password":        creds.Password,
	})
	if err != nil {
		return domainauth.Identity{}, err
	}
	return c.extract(body, c.identityPath)
}

// Me returns the identity of the session carried by the jar. A 401 or 403
// means there is no session and is reported as KindUnauthenticated.
func (c *Client) Me(ctx context.Context) (domainauth.Identity, error) {
	body, err := c.do(ctx, http.MethodGet, pathMe, nil)
	if err != nil {
		var ae *domainauth.Error
		if errors.As(err, &ae) && (ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden) {
			ae.Kind = domainauth.KindUnauthenticated
		}
		return domainauth.Identity{}, err
	}
	return c.extract(body, c.identityPath)
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, pathLogout, nil)
	return err
}

// UpdateProfile sends the changed fields and returns the stored record.
func (c *Client) UpdateProfile(ctx context.Context, upd domainauth.ProfileUpdate) (domainauth.Identity, error) {
	body, err := c.do(ctx, http.MethodPut, pathProfile, upd)
	if err != nil {
		return domainauth.Identity{}, err
	}
	return c.extract(body, c.profilePath)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := &http.Client{Transport: c.transport, Jar: c.jarFor(ctx)}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, transportError(ctx, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(ctx, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := backendMessage(body)
		kind := domainauth.KindForResponse(resp.StatusCode, msg)
		c.logger.DebugContext(ctx, "backend rejected auth call",
			"path", path, "status", resp.StatusCode, "kind", kind)
		return nil, &domainauth.Error{Kind: kind, Message: msg, Status: resp.StatusCode}
	}
	return body, nil
}

func (c *Client) extract(body []byte, expr string) (domainauth.Identity, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return domainauth.Identity{}, malformed(err)
	}
	found, err := jmespath.Search(expr, doc)
	if err != nil {
		return domainauth.Identity{}, malformed(err)
	}
	if found == nil {
		return domainauth.Identity{}, malformed(domainauth.ErrEmptyIdentity)
	}
	raw, err := json.Marshal(found)
	if err != nil {
		return domainauth.Identity{}, malformed(err)
	}
	id, err := domainauth.DecodeIdentity(raw)
	if err != nil {
		return domainauth.Identity{}, malformed(err)
	}
	return id, nil
}

func malformed(cause error) error {
	return &domainauth.Error{
		Kind:    domainauth.KindUnrecognized,
		Message: "malformed identity in backend response",
		Cause:   cause,
	}
}

func transportError(ctx context.Context, path string, err error) error {
	kind := domainauth.KindNetwork
	var ne net.Error
	switch {
	case errors.Is(err, context.Canceled) && errors.Is(ctx.Err(), context.Canceled):
		kind = domainauth.KindCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		kind = domainauth.KindTimeout
	}
	return &domainauth.Error{Kind: kind, Message: "backend " + path + " call failed", Cause: err}
}

func backendMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return strings.TrimSpace(string(body))
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
