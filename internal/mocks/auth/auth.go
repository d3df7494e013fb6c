package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthBackend       = (*FakeBackend)(nil)
	_ ports.StateStorage      = (*MemoryStorage)(nil)
	_ ports.AuthEventRecorder = (*EventLog)(nil)
)

// FakeBackend is a programmable AuthBackend. Unset funcs fall back to a
// backend with one signed-out user, DefaultUser, whose password is DefaultPassword.
type FakeBackend struct {
	LoginFunc         func(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error)
	MeFunc            func(ctx context.Context) (domainauth.Identity, error)
	LogoutFunc        func(ctx context.Context) error
	UpdateProfileFunc func(ctx context.Context, upd domainauth.ProfileUpdate) (domainauth.Identity, error)

	DefaultUser     domainauth.Identity
	DefaultPassword string

	mu       sync.Mutex
	signedIn bool
	calls    map[string]int
}

// NewFakeBackend creates a FakeBackend with a staff user.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		DefaultUser:     domainauth.Identity{ID: 1, Name: "Mock Admin", Email: "admin@fixzone.test", RoleID: domainauth.RoleAdmin},
		DefaultPassword: "password123",
	}
}

// Calls reports how many times method was invoked.
func (f *FakeBackend) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeBackend) count(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

func (f *FakeBackend) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	f.count("Login")
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, creds)
	}
	if creds.Password != f.DefaultPassword {
		return domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindInvalidCredentials, Message: "Incorrect password", Status: 401}
	}
	f.mu.Lock()
	f.signedIn = true
	f.mu.Unlock()
	return f.DefaultUser, nil
}

func (f *FakeBackend) Me(ctx context.Context) (domainauth.Identity, error) {
	f.count("Me")
	if f.MeFunc != nil {
		return f.MeFunc(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signedIn {
		return domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindUnauthenticated, Status: 401}
	}
	return f.DefaultUser, nil
}

func (f *FakeBackend) Logout(ctx context.Context) error {
	f.count("Logout")
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx)
	}
	f.mu.Lock()
	f.signedIn = false
	f.mu.Unlock()
	return nil
}

func (f *FakeBackend) UpdateProfile(ctx context.Context, upd domainauth.ProfileUpdate) (domainauth.Identity, error) {
	f.count("UpdateProfile")
	if f.UpdateProfileFunc != nil {
		return f.UpdateProfileFunc(ctx, upd)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signedIn {
		return domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindUnauthenticated, Status: 401}
	}
	f.DefaultUser = upd.Apply(f.DefaultUser)
	return f.DefaultUser, nil
}

// MemoryStorage is an in-memory StateStorage for unit tests. SaveErr and
// LoadErr, when set, are returned by every call.
type MemoryStorage struct {
	SaveErr error
	LoadErr error

	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrStateNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if key == "" {
		return errors.New("state key cannot be empty")
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Saves reports how many Save calls were made, failed ones included.
func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Put seeds raw data under key.
func (m *MemoryStorage) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = data
}

// EventLog records auth events in memory.
type EventLog struct {
	mu     sync.Mutex
	events []domainauth.Event
}

func (l *EventLog) Record(_ context.Context, ev domainauth.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

// Events returns a copy of what has been recorded.
func (l *EventLog) Events() []domainauth.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domainauth.Event(nil), l.events...)
}

// Types returns the recorded event types in order.
func (l *EventLog) Types() []domainauth.EventType {
	var out []domainauth.EventType
	for _, ev := range l.Events() {
		out = append(out, ev.Type)
	}
	return out
}
