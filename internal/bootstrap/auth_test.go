package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixzone/fixzone-portal/config"
	"github.com/fixzone/fixzone-portal/internal/adapters/authapi"
	"github.com/fixzone/fixzone-portal/internal/adapters/devauth"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildAuthBackend(t *testing.T) {
	t.Run("mock mode uses the dev backend", func(t *testing.T) {
		app := &config.AppConfig{IsDev: true}
		app.Auth.Mode = config.AuthModeMock
		app.Auth.DevAuth.Password = "fixzone-dev"

		w, err := BuildAuthBackend(AuthConfig{App: app, Logger: quietLogger()})
		require.NoError(t, err)
		assert.IsType(t, &devauth.Backend{}, w.Backend)
		assert.Equal(t, devauth.DefaultOrigin, w.Origin.String())
		assert.Equal(t, []string{devauth.CookieName}, w.RelayCookies)
	})

	t.Run("backend mode falls back to the dev url in development", func(t *testing.T) {
		app := &config.AppConfig{IsDev: true}
		app.Auth.Mode = config.AuthModeBackend
		app.Backend.RelayCookies = []string{"token", "refresh"}

		w, err := BuildAuthBackend(AuthConfig{App: app, Logger: quietLogger()})
		require.NoError(t, err)
		assert.IsType(t, &authapi.Client{}, w.Backend)
		assert.Equal(t, config.DevBackendURL, w.Origin.String())
		assert.Equal(t, []string{"token", "refresh"}, w.RelayCookies)
	})

	t.Run("backend mode without a url fails outside development", func(t *testing.T) {
		app := &config.AppConfig{}
		app.Auth.Mode = config.AuthModeBackend

		_, err := BuildAuthBackend(AuthConfig{App: app, Logger: quietLogger()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FIXZONE_API_BASE_URL")
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := BuildAuthBackend(AuthConfig{})
		require.Error(t, err)
	})
}
