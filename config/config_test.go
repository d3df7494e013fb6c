package config

import (
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func parse(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	t.Setenv("NODE_ENV", "")
	var cfg AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: vars}))
	cfg.Sanitize()
	return cfg
}

func TestParseServices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[ServiceMode]bool
		wantErr bool
	}{
		{name: "http", input: "http", want: map[ServiceMode]bool{ServiceModeHTTP: true}},
		{name: "both with spaces", input: " http , reaper ", want: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeReaper: true}},
		{name: "duplicates", input: "http,http", want: map[ServiceMode]bool{ServiceModeHTTP: true}},
		{name: "empty", input: "", wantErr: true},
		{name: "only commas", input: ",,", wantErr: true},
		{name: "unknown", input: "http,scheduler", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := parse(t, map[string]string{})

	assert.False(t, cfg.IsDev)
	assert.Equal(t, AuthModeBackend, cfg.Auth.Mode)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"token"}, cfg.Backend.RelayCookies)
	assert.Equal(t, "@", cfg.Backend.IdentityPath)
	assert.Equal(t, "user", cfg.Backend.ProfileIdentityPath)
	assert.Equal(t, 10*time.Second, cfg.Session.RestoreTimeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Postgres.Enabled)
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsReaperEnabled())
}

func TestValidate_ProductionRequiresBackendURL(t *testing.T) {
	cfg := parse(t, map[string]string{"VISITOR_COOKIE_HASH_KEY": testHashKey})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIXZONE_API_BASE_URL is required")
}

func TestValidate_RejectsRelativeBackendURL(t *testing.T) {
	cfg := parse(t, map[string]string{
		"FIXZONE_API_BASE_URL":    "/api",
		"VISITOR_COOKIE_HASH_KEY": testHashKey,
	})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")
}

func TestValidate_ProductionOK(t *testing.T) {
	cfg := parse(t, map[string]string{
		"FIXZONE_API_BASE_URL":    "https://api.fixzone.example/api/",
		"VISITOR_COOKIE_HASH_KEY": testHashKey,
	})
	require.NoError(t, cfg.Validate())

	u, err := cfg.Backend.ResolveBaseURL(cfg.IsDev)
	require.NoError(t, err)
	assert.Equal(t, "https://api.fixzone.example/api", u)
}

func TestValidate_DevFallsBackToLocalBackend(t *testing.T) {
	cfg := parse(t, map[string]string{"DEV": "true"})
	require.NoError(t, cfg.Validate())

	u, err := cfg.Backend.ResolveBaseURL(cfg.IsDev)
	require.NoError(t, err)
	assert.Equal(t, DevBackendURL, u)
}

func TestValidate_NodeEnvEnablesDev(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}))
	t.Setenv("NODE_ENV", "development")
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}

func TestValidate_MockModeNeedsDev(t *testing.T) {
	cfg := parse(t, map[string]string{
		"AUTH_MODE":               "mock",
		"VISITOR_COOKIE_HASH_KEY": testHashKey,
	})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_MODE=mock")

	cfg = parse(t, map[string]string{"AUTH_MODE": "MOCK", "DEV": "true", "DEV_AUTH_PASSWORD": "short"})
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEV_AUTH_PASSWORD")
}

func TestAuthMode_Invalid(t *testing.T) {
	var cfg AppConfig
	err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{"AUTH_MODE": "oauth"}})
	assert.Error(t, err)
}

func TestValidate_VisitorKeys(t *testing.T) {
	cfg := parse(t, map[string]string{
		"FIXZONE_API_BASE_URL":    "https://api.fixzone.example/api",
		"VISITOR_COOKIE_HASH_KEY": "abcd",
	})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 or 64 bytes")

	cfg = parse(t, map[string]string{
		"FIXZONE_API_BASE_URL":     "https://api.fixzone.example/api",
		"VISITOR_COOKIE_HASH_KEY":  testHashKey,
		"VISITOR_COOKIE_BLOCK_KEY": strings.Repeat("ab", 16),
	})
	require.NoError(t, cfg.Validate())
	hash, block, err := cfg.HTTP.VisitorKeys()
	require.NoError(t, err)
	assert.Len(t, hash, 32)
	assert.Len(t, block, 16)
}

func TestValidate_ReaperNeedsDatabase(t *testing.T) {
	cfg := parse(t, map[string]string{
		"DEV":      "true",
		"SERVICES": "http,reaper",
	})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_ENABLED")
}

func TestSanitize_Guardrails(t *testing.T) {
	cfg := parse(t, map[string]string{
		"FIXZONE_API_RELAY_COOKIES":            " token , ,refresh ",
		"SESSION_SWEEP_INTERVAL":               "2h",
		"SESSION_IDLE_TTL":                     "10m",
		"REAPER_INTERVAL":                      "1s",
		"REAPER_AUDIT_MAX_AGE":                 "1h",
		"OBSERVABILITY_METRICS_ENABLED":        "true",
		"OBSERVABILITY_METRICS_STATSD_ADDRESS": "  ",
	})

	assert.Equal(t, []string{"token", "refresh"}, cfg.Backend.RelayCookies)
	assert.Equal(t, 10*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, time.Minute, cfg.Reaper.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Reaper.MaxAge)
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
}
