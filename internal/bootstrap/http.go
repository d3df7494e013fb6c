package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	portal "github.com/fixzone/fixzone-portal"
	"github.com/fixzone/fixzone-portal/config"
	"github.com/fixzone/fixzone-portal/internal/domain/guard"
	httpx "github.com/fixzone/fixzone-portal/internal/http"
)

const (
	templatesDir = "web/templates"
	staticDir    = "web/static"

	shutdownTimeout = 10 * time.Second
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPHandler assembles the gateway router from the service container.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("http server config, app config, and services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := cfg.Config

	hashKey, blockKey, err := app.HTTP.VisitorKeys()
	if err != nil {
		return nil, err
	}
	if len(hashKey) == 0 {
		logger.Warn("visitor cookie keys are not configured; visitors are forgotten on restart")
	}
	visitors, err := httpx.NewVisitorCookies(hashKey, blockKey, app.HTTP.CookieDomain, app.HTTP.CookieSecure)
	if err != nil {
		return nil, fmt.Errorf("visitor cookies: %w", err)
	}

	templates, err := assetFS(app.IsDev, portal.TemplateFS, templatesDir)
	if err != nil {
		return nil, err
	}
	renderer, err := httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{
		TemplateFS: templates,
		DevMode:    app.IsDev,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	static, err := assetFS(app.IsDev, portal.StaticFS, staticDir)
	if err != nil {
		return nil, err
	}

	svc := cfg.Services
	return httpx.NewRouter(httpx.RouterServices{
		Registry: svc.Registry,
		Policy:   guard.DefaultPolicy(),
		Relay: httpx.CookieRelay{
			Names:   svc.Auth.RelayCookies,
			Backend: svc.Auth.Origin,
			Domain:  app.HTTP.CookieDomain,
			Secure:  app.HTTP.CookieSecure,
		},
		Visitors: visitors,
		Renderer: renderer,
		StaticFS: static,
		Health:   healthChecks(svc),
		Metrics:  svc.Metrics,
		Logger:   logger,
	})
}

// assetFS serves from disk in development when the directory exists, so
// template and stylesheet edits show up without a rebuild.
func assetFS(isDev bool, embedded fs.FS, dir string) (fs.FS, error) {
	if isDev {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir), nil
		}
	}
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		return nil, fmt.Errorf("embedded %s: %w", dir, err)
	}
	return sub, nil
}

func healthChecks(svc *ServiceContainer) []httpx.HealthCheck {
	var checks []httpx.HealthCheck
	if svc.DB != nil {
		checks = append(checks, httpx.HealthCheck{Name: "postgres", Check: svc.DB.PingContext})
	}
	if svc.Redis != nil {
		checks = append(checks, httpx.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return svc.Redis.Ping(ctx).Err()
		}})
	}
	return checks
}

func newServer(handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP runs server on ln until ctx is done, then shuts it down
// gracefully. A nil listener means listen on server.Addr.
func ServeHTTP(ctx context.Context, server *http.Server, ln net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting HTTP server", "addr", server.Addr)
		var err error
		if ln != nil {
			err = server.Serve(ln)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
