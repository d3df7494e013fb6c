package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	mockauth "github.com/fixzone/fixzone-portal/internal/mocks/auth"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
	"github.com/fixzone/fixzone-portal/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewSessionRegistry_RequiresBackend(t *testing.T) {
	_, err := NewSessionRegistry(SessionRegistryOptions{})
	require.Error(t, err)
}

func TestSessionRegistry_GetReturnsSameStore(t *testing.T) {
	r, err := NewSessionRegistry(SessionRegistryOptions{Backend: mockauth.NewFakeBackend()})
	require.NoError(t, err)

	a := r.Get(context.Background(), "v1")
	b := r.Get(context.Background(), "v1")
	c := r.Get(context.Background(), "v2")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())

	_, ok := r.Peek("v3")
	assert.False(t, ok)
}

func TestSessionRegistry_RehydratesFromVisitorStorage(t *testing.T) {
	slots := map[string]*mockauth.MemoryStorage{"v1": mockauth.NewMemoryStorage()}
	cached, err := domainauth.EncodeState(domainauth.Authenticated(domainauth.Identity{ID: 9, RoleID: domainauth.RoleTechnician}, ""))
	require.NoError(t, err)
	slots["v1"].Put(domainauth.StorageKey, cached)

	r, err := NewSessionRegistry(SessionRegistryOptions{
		Backend: mockauth.NewFakeBackend(),
		StorageFor: func(id string) ports.StateStorage {
			if s, ok := slots[id]; ok {
				return s
			}
			s := mockauth.NewMemoryStorage()
			slots[id] = s
			return s
		},
	})
	require.NoError(t, err)

	st := r.Get(context.Background(), "v1").State()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.Resolved)

	assert.False(t, r.Get(context.Background(), "v2").State().IsAuthenticated)
}

func TestSessionRegistry_VisitorsAreIsolated(t *testing.T) {
	r, err := NewSessionRegistry(SessionRegistryOptions{Backend: mockauth.NewFakeBackend()})
	require.NoError(t, err)

	require.NoError(t, r.Get(context.Background(), "v1").Login(context.Background(), "admin", "password123"))
	assert.True(t, r.Get(context.Background(), "v1").State().IsAuthenticated)
	assert.False(t, r.Get(context.Background(), "v2").State().IsAuthenticated)
}

func TestSessionRegistry_SweepEvictsIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	var sink statsd.Memory
	r, err := NewSessionRegistry(SessionRegistryOptions{
		Backend: mockauth.NewFakeBackend(),
		IdleTTL: 10 * time.Minute,
		Metrics: &sink,
		Now:     clock.Now,
	})
	require.NoError(t, err)

	r.Get(context.Background(), "old")
	clock.Advance(6 * time.Minute)
	r.Get(context.Background(), "fresh")
	clock.Advance(6 * time.Minute)

	assert.Equal(t, 1, r.Sweep(context.Background()))
	_, ok := r.Peek("old")
	assert.False(t, ok)
	_, ok = r.Peek("fresh")
	assert.True(t, ok)

	gauges := sink.Named("sessions.active")
	require.NotEmpty(t, gauges)
	assert.InDelta(t, 1, gauges[len(gauges)-1].Value, 0)
}

func TestSessionRegistry_RunStopsOnCancel(t *testing.T) {
	r, err := NewSessionRegistry(SessionRegistryOptions{Backend: mockauth.NewFakeBackend()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, 5*time.Millisecond) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSessionRegistry_CountsAudienceChanges(t *testing.T) {
	var sink statsd.Memory
	r, err := NewSessionRegistry(SessionRegistryOptions{Backend: mockauth.NewFakeBackend(), Metrics: &sink})
	require.NoError(t, err)

	store := r.Get(context.Background(), "v1")
	require.NoError(t, store.Login(context.Background(), "admin", "password123"))
	require.True(t, store.RestoreSession(context.Background()))
	store.Logout(context.Background())

	got := sink.Named("session.audience_change")
	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{"from": "none", "to": "staff"}, got[0].Tags)
	assert.Equal(t, map[string]string{"from": "staff", "to": "none"}, got[1].Tags)
}
