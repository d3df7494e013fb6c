package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/observability/metrics"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
	"github.com/fixzone/fixzone-portal/internal/ports"
)

// DefaultIdleTTL is how long an unused visitor session stays in memory.
const DefaultIdleTTL = 30 * time.Minute

// SessionRegistryOptions groups dependencies for SessionRegistry.
type SessionRegistryOptions struct {
	Backend ports.AuthBackend // Required
	// StorageFor returns the persistence slot of one visitor. Optional.
	StorageFor     func(visitorID string) ports.StateStorage
	Logger         *slog.Logger
	RestoreTimeout time.Duration
	IdleTTL        time.Duration
	Metrics        statsd.Sink
	Events         ports.AuthEventRecorder
	Now            func() time.Time
}

type registryEntry struct {
	store    *SessionStore
	lastSeen time.Time
}

// SessionRegistry owns one SessionStore per visitor. Stores are created on
// first use, rehydrated from storage, and evicted after IdleTTL without use.
// Evicted visitors keep their persisted state and rehydrate on return.
type SessionRegistry struct {
	opts   SessionRegistryOptions
	logger *slog.Logger
	flight singleflight.Group

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewSessionRegistry constructs a SessionRegistry.
func NewSessionRegistry(opts SessionRegistryOptions) (*SessionRegistry, error) {
	if opts.Backend == nil {
		return nil, errors.New("auth backend is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionRegistry{
		opts:    opts,
		logger:  opts.Logger.With("component", "session_registry"),
		entries: make(map[string]*registryEntry),
	}, nil
}

// Get returns the visitor's store, creating and rehydrating it when needed.
func (r *SessionRegistry) Get(ctx context.Context, visitorID string) *SessionStore {
	now := r.opts.Now()

	r.mu.Lock()
	if e, ok := r.entries[visitorID]; ok {
		e.lastSeen = now
		r.mu.Unlock()
		return e.store
	}
	store := r.newStore(visitorID)
	r.watchAudience(visitorID, store)
	r.entries[visitorID] = &registryEntry{store: store, lastSeen: now}
	r.mu.Unlock()

	store.Rehydrate(ctx)
	return store
}

// Peek returns the visitor's store without creating one.
func (r *SessionRegistry) Peek(visitorID string) (*SessionStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[visitorID]
	if !ok {
		return nil, false
	}
	return e.store, true
}

// Len reports how many visitor stores are held in memory.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts stores idle for longer than IdleTTL and returns how many went.
func (r *SessionRegistry) Sweep(ctx context.Context) int {
	cutoff := r.opts.Now().Add(-r.opts.IdleTTL)

	r.mu.Lock()
	evicted := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	remaining := len(r.entries)
	r.mu.Unlock()

	if evicted > 0 {
		r.logger.DebugContext(ctx, "evicted idle sessions", "evicted", evicted, "remaining", remaining)
	}
	if r.opts.Metrics != nil {
		r.opts.Metrics.Gauge("sessions.active", float64(remaining), nil)
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *SessionRegistry) newStore(visitorID string) *SessionStore {
	var storage ports.StateStorage
	if r.opts.StorageFor != nil {
		storage = r.opts.StorageFor(visitorID)
	}
	return NewSessionStore(SessionStoreOptions{
		Backend:        r.opts.Backend,
		Storage:        storage,
		Logger:         r.opts.Logger.With("visitor_id", visitorID),
		RestoreTimeout: r.opts.RestoreTimeout,
		Flight:         &r.flight,
		FlightKey:      "restore:" + visitorID,
		Metrics:        r.opts.Metrics,
		Events:         r.opts.Events,
		VisitorID:      visitorID,
		Now:            r.opts.Now,
	})
}

// watchAudience logs and counts every change of the visitor's audience.
// Notifications for one store never run concurrently, so prev needs no lock.
func (r *SessionRegistry) watchAudience(visitorID string, store *SessionStore) {
	logger := r.logger.With("visitor_id", visitorID)
	prev := audienceLabel(store.State())
	store.Subscribe(func(st domainauth.State) {
		cur := audienceLabel(st)
		if cur == prev {
			return
		}
		from := prev
		prev = cur
		logger.Info("visitor audience changed", "from", from, "to", cur, "resolved", st.Resolved)
		metrics.EmitAudienceChange(r.opts.Metrics, from, cur)
	})
}

func audienceLabel(st domainauth.State) string {
	aud, ok := st.Audience()
	if !ok {
		return metrics.AudienceNone
	}
	return string(aud)
}
