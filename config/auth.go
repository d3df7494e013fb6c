package config

import (
	"fmt"
	"strings"
)

// AuthMode selects which auth backend the gateway talks to.
type AuthMode string

const (
	// AuthModeBackend uses the FixZone REST backend.
	AuthModeBackend AuthMode = "backend"
	// AuthModeMock uses the in-process dev backend (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "backend", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: backend, mock)", v)
	}
}

// DevAuthConfig controls the dev backend used when AUTH_MODE=mock.
// Every seeded account (admin, technician, customer) shares Password.
type DevAuthConfig struct {
	Password string `env:"PASSWORD" envDefault:"fixzone-dev"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	Mode    AuthMode      `env:"AUTH_MODE" envDefault:"backend"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}
