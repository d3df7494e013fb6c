package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - backend.go: FixZone REST backend connection
//   - auth.go: auth mode and dev accounts
//   - database.go: audit database and Redis
//   - http.go: HTTP server and visitor cookies
//   - session.go: session store timing
//   - services.go: service mode and audit reaper
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Backend BackendConfig
	Auth    AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP    HTTPConfig
	Session SessionConfig

	// Services is a comma-delimited list of services to run.
	Services string `env:"SERVICES" envDefault:"http"`

	Reaper        ReaperConfig
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.Backend.Sanitize()
	c.HTTP.Sanitize()
	c.Session.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
}

// Validate fails loudly on configurations that cannot run.
// A production build without an absolute backend URL is rejected here rather
// than silently pointing at a development default.
func (c *AppConfig) Validate() error {
	var errs []error
	if _, err := c.Backend.ResolveBaseURL(c.IsDev || c.Auth.Mode == AuthModeMock); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.GetEnabledServices(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.Mode == AuthModeMock && !c.IsDev {
		errs = append(errs, errors.New("AUTH_MODE=mock is only allowed with DEV=true"))
	}
	if c.Auth.Mode == AuthModeMock && len(c.Auth.DevAuth.Password) < 8 {
		errs = append(errs, errors.New("DEV_AUTH_PASSWORD must be at least 8 characters"))
	}
	if err := c.HTTP.validateKeys(c.IsDev); err != nil {
		errs = append(errs, err)
	}
	if c.IsReaperEnabled() && !c.Postgres.Enabled {
		errs = append(errs, errors.New("the reaper service needs DB_ENABLED=true"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsReaperEnabled returns true if the audit reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeReaper]
}
