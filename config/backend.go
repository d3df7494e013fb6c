package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DevBackendURL is used when no backend URL is configured in development.
const DevBackendURL = "http://localhost:3001/api"

// BackendConfig points the gateway at the FixZone REST backend.
type BackendConfig struct {
	// BaseURL is the absolute API root, e.g. https://api.fixzone.example/api.
	BaseURL string `env:"FIXZONE_API_BASE_URL"`

	// Timeout bounds every backend call except restore, which has its own.
	Timeout time.Duration `env:"FIXZONE_API_TIMEOUT" envDefault:"15s"`

	// IdentityPath and ProfileIdentityPath are JMESPath expressions locating
	// the user record in auth responses.
	IdentityPath        string `env:"FIXZONE_API_IDENTITY_PATH"         envDefault:"@"`
	ProfileIdentityPath string `env:"FIXZONE_API_PROFILE_IDENTITY_PATH" envDefault:"user"`

	// RelayCookies names the backend cookies forwarded between browser and backend.
	RelayCookies []string `env:"FIXZONE_API_RELAY_COOKIES" envDefault:"token" envSeparator:","`
}

// Sanitize trims values and drops empty cookie names.
func (b *BackendConfig) Sanitize() {
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if b.Timeout <= 0 {
		b.Timeout = 15 * time.Second
	}
	if strings.TrimSpace(b.IdentityPath) == "" {
		b.IdentityPath = "@"
	}
	if strings.TrimSpace(b.ProfileIdentityPath) == "" {
		b.ProfileIdentityPath = "user"
	}
	names := b.RelayCookies[:0]
	for _, n := range b.RelayCookies {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	b.RelayCookies = names
	if len(b.RelayCookies) == 0 {
		b.RelayCookies = []string{"token"}
	}
}

// ResolveBaseURL returns the backend URL to use. Development falls back to
// DevBackendURL; any other build must configure an absolute URL.
func (b BackendConfig) ResolveBaseURL(isDev bool) (string, error) {
	raw := strings.TrimSpace(b.BaseURL)
	if raw == "" {
		if isDev {
			return DevBackendURL, nil
		}
		return "", errors.New("FIXZONE_API_BASE_URL is required outside development")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse FIXZONE_API_BASE_URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("FIXZONE_API_BASE_URL must be an absolute URL, got %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("FIXZONE_API_BASE_URL must use http or https, got %q", u.Scheme)
	}
	return raw, nil
}
