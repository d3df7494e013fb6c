package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fixzone/fixzone-portal/config"
	"github.com/fixzone/fixzone-portal/internal/adapters/reaper"
	redisadapter "github.com/fixzone/fixzone-portal/internal/adapters/redis"
	"github.com/fixzone/fixzone-portal/internal/data"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
	"github.com/fixzone/fixzone-portal/internal/ports"
	"github.com/fixzone/fixzone-portal/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth     AuthWiring
	Registry *service.SessionRegistry
	Audit    *data.AuthEventRepo
	Metrics  *statsd.Client
	DB       *sql.DB
	Redis    redis.UniversalClient
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the auth backend, the per-visitor session registry, and
// the optional audit trail and Redis session cache.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with app config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	wiring, err := BuildAuthBackend(AuthConfig{App: cfg, Logger: logger})
	if err != nil {
		return nil, err
	}

	metrics := buildMetrics(logger, cfg.Observability)

	opts := service.SessionRegistryOptions{
		Backend:        wiring.Backend,
		Logger:         logger,
		RestoreTimeout: cfg.Session.RestoreTimeout,
		IdleTTL:        cfg.Session.IdleTTL,
		Metrics:        metrics,
	}
	if deps.RedisClient != nil {
		storage := redisadapter.NewStateStorage(deps.RedisClient, redisadapter.StateStorageOptions{
			Prefix: cfg.Redis.KeyPrefix,
			TTL:    cfg.Redis.StateTTL,
		})
		opts.StorageFor = func(visitorID string) ports.StateStorage {
			return storage.ForVisitor(visitorID)
		}
	} else {
		logger.Warn("redis disabled; session state is kept in memory only")
	}

	var audit *data.AuthEventRepo
	if deps.DB != nil {
		audit = data.NewAuthEventRepo(deps.DB)
		opts.Events = audit
	}

	registry, err := service.NewSessionRegistry(opts)
	if err != nil {
		return nil, fmt.Errorf("create session registry: %w", err)
	}

	return &ServiceContainer{
		Auth:     wiring,
		Registry: registry,
		Audit:    audit,
		Metrics:  metrics,
		DB:       deps.DB,
		Redis:    deps.RedisClient,
	}, nil
}

// buildMetrics returns a StatsD client; a disabled or failed client drops
// every metric.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityConfig) *statsd.Client {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Metrics.IsEnabled(),
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		client, _ = statsd.NewClient(statsd.Config{Logger: logger})
	}
	return client
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// backgroundService describes a startable component owned by one service mode.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) ([]backgroundService, error) {
	app := cfg.Config
	svc := cfg.Services

	var services []backgroundService
	if app.IsHTTPServerEnabled() {
		handler, err := BuildHTTPHandler(&HTTPServerConfig{Config: app, Services: svc, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("build http handler: %w", err)
		}
		server := newServer(handler, app.HTTP.Addr)
		services = append(services,
			backgroundService{
				mode:  config.ServiceModeHTTP,
				name:  "http server",
				start: func(ctx context.Context) error { return ServeHTTP(ctx, server, nil, logger) },
			},
			backgroundService{
				mode: config.ServiceModeHTTP,
				name: "session sweeper",
				start: func(ctx context.Context) error {
					return svc.Registry.Run(ctx, app.Session.SweepInterval)
				},
			},
		)
	}
	if app.IsReaperEnabled() {
		runner, err := reaper.NewRunner(reaper.RunnerOptions{
			DB:      svc.DB,
			Config:  app.Reaper,
			Logger:  logger,
			Metrics: svc.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("create reaper runner: %w", err)
		}
		services = append(services, backgroundService{
			mode:  config.ServiceModeReaper,
			name:  "reaper",
			start: runner.Run,
		})
	}
	return services, nil
}

// RunServicesWithShutdown starts all enabled services and blocks until a
// shutdown signal arrives or one of them fails; the rest are then stopped.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config with app config and services is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	services, err := buildBackgroundServices(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runServices(ctx, services, logger)
}

func runServices(ctx context.Context, services []backgroundService, logger *slog.Logger) error {
	if len(services) == 0 {
		return errors.New("no services to run")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", svc.name, "mode", svc.mode)
			if err := svc.start(gctx); err != nil {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.InfoContext(gctx, svc.name+" stopped")
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		logger.ErrorContext(ctx, "service error", "error", err)
	}
	return err
}
