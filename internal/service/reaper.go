package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/fixzone/fixzone-portal/config"
	"github.com/fixzone/fixzone-portal/internal/observability/metrics"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
	"github.com/fixzone/fixzone-portal/internal/ports"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Pruner  ports.AuditPruner   // Required
	Config  config.ReaperConfig // Required
	Logger  *slog.Logger        // Optional
	Metrics statsd.Sink         // Optional
	// SkipJitter starts the first pass immediately.
	SkipJitter bool
}

// ReaperService prunes the auth audit trail on a fixed interval so the
// auth_events table does not grow without bound.
type ReaperService struct {
	pruner     ports.AuditPruner
	config     config.ReaperConfig
	logger     *slog.Logger
	metrics    statsd.Sink
	skipJitter bool
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Pruner == nil {
		return nil, errors.New("AuditPruner is required")
	}
	if opts.Config.Interval <= 0 || opts.Config.MaxAge <= 0 {
		return nil, errors.New("reaper interval and max age must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized",
		"interval", opts.Config.Interval,
		"max_age", opts.Config.MaxAge,
	)

	return &ReaperService{
		pruner:     opts.Pruner,
		config:     opts.Config,
		logger:     logger,
		metrics:    opts.Metrics,
		skipJitter: opts.SkipJitter,
	}, nil
}

// Run prunes once after a short jitter, then on every tick until ctx ends.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	if !s.skipJitter {
		s.waitWithJitter(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logCleanupError(ctx, s.Prune(ctx), "initial cleanup")

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.logCleanupError(ctx, s.Prune(ctx), "cleanup")
		}
	}
}

// Prune deletes audit events older than the configured max age once.
func (s *ReaperService) Prune(ctx context.Context) error {
	start := time.Now()
	deleted, err := s.pruner.DeleteOlderThan(ctx, s.config.MaxAge)
	if isContextCancellation(err) {
		return err
	}
	metrics.EmitAuditPrune(s.metrics, metrics.PruneMetric{
		Deleted:  deleted,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "deleted old auth events", "count", deleted, "max_age", s.config.MaxAge)
	}
	return nil
}

// waitWithJitter adds a random delay up to 10% of the interval so several
// instances started together do not prune in lockstep.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *ReaperService) logCleanupError(ctx context.Context, err error, label string) {
	if err == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
