// Package reaper provides adapters for running the audit trail reaper.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fixzone/fixzone-portal/config"
	"github.com/fixzone/fixzone-portal/internal/data"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
	"github.com/fixzone/fixzone-portal/internal/ports"
	"github.com/fixzone/fixzone-portal/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
// It constructs the reaper service and runs the cleanup loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReaperConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Pruner     ports.AuditPruner
	Metrics    statsd.Sink
	SkipJitter bool
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Pruner == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pruner := opts.Pruner
	if pruner == nil {
		pruner = data.NewAuthEventRepo(opts.DB)
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Pruner:     pruner,
		Config:     opts.Config,
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
		SkipJitter: opts.SkipJitter,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
