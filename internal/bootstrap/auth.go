package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/fixzone/fixzone-portal/config"
	"github.com/fixzone/fixzone-portal/internal/adapters/authapi"
	"github.com/fixzone/fixzone-portal/internal/adapters/devauth"
	"github.com/fixzone/fixzone-portal/internal/ports"
)

// AuthConfig contains configuration for the auth backend.
type AuthConfig struct {
	App    *config.AppConfig
	Logger *slog.Logger
}

// AuthWiring is the backend the session stores talk to, plus where its
// session cookies live so the gateway can relay them to browsers.
type AuthWiring struct {
	Backend      ports.AuthBackend
	Origin       *url.URL
	RelayCookies []string
}

// BuildAuthBackend picks the backend for the configured auth mode. Mock mode
// runs the in-process dev backend with the seeded accounts.
func BuildAuthBackend(cfg AuthConfig) (AuthWiring, error) {
	if cfg.App == nil {
		return AuthWiring{}, errors.New("app config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := cfg.App

	switch app.Auth.Mode {
	case config.AuthModeMock:
		backend, err := devauth.NewBackend(devauth.Config{
			Accounts: devauth.DefaultAccounts(app.Auth.DevAuth.Password),
		})
		if err != nil {
			return AuthWiring{}, fmt.Errorf("create dev auth backend: %w", err)
		}
		logger.Warn("using in-process dev auth backend", "origin", backend.BaseURL().String())
		return AuthWiring{
			Backend:      backend,
			Origin:       backend.BaseURL(),
			RelayCookies: []string{devauth.CookieName},
		}, nil

	case config.AuthModeBackend, "":
		base, err := app.Backend.ResolveBaseURL(app.IsDev)
		if err != nil {
			return AuthWiring{}, err
		}
		client, err := authapi.NewClient(authapi.Config{
			BaseURL:             base,
			Timeout:             app.Backend.Timeout,
			IdentityPath:        app.Backend.IdentityPath,
			ProfileIdentityPath: app.Backend.ProfileIdentityPath,
			Logger:              logger,
		})
		if err != nil {
			return AuthWiring{}, fmt.Errorf("create backend client: %w", err)
		}
		logger.Info("using FixZone backend", "base_url", base)
		return AuthWiring{
			Backend:      client,
			Origin:       client.BaseURL(),
			RelayCookies: app.Backend.RelayCookies,
		}, nil

	default:
		return AuthWiring{}, fmt.Errorf("unsupported auth mode %q", app.Auth.Mode)
	}
}
