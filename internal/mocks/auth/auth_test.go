package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/ports"
)

func TestFakeBackend_DefaultFlow(t *testing.T) {
	b := NewFakeBackend()
	ctx := context.Background()

	_, err := b.Me(ctx)
	assert.Equal(t, domainauth.KindUnauthenticated, domainauth.KindOf(err))

	_, err = b.Login(ctx, domainauth.Credentials{LoginIdentifier: "admin", Password: "nope"})
	assert.Equal(t, domainauth.KindInvalidCredentials, domainauth.KindOf(err))

	id, err := b.Login(ctx, domainauth.Credentials{LoginIdentifier: "admin", Password: "password123"})
	require.NoError(t, err)
	me, err := b.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, me)

	updated, err := b.UpdateProfile(ctx, domainauth.ProfileUpdate{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	require.NoError(t, b.Logout(ctx))
	_, err = b.Me(ctx)
	require.Error(t, err)

	assert.Equal(t, 2, b.Calls("Login"))
	assert.Equal(t, 3, b.Calls("Me"))
}

func TestFakeBackend_Overrides(t *testing.T) {
	boom := errors.New("boom")
	b := &FakeBackend{LogoutFunc: func(context.Context) error { return boom }}
	assert.ErrorIs(t, b.Logout(context.Background()), boom)
	assert.Equal(t, 1, b.Calls("Logout"))
}

func TestMemoryStorage(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()

	_, err := m.Load(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrStateNotFound)

	require.NoError(t, m.Save(ctx, "k", []byte("v")))
	got, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	m.SaveErr = errors.New("disk full")
	assert.Error(t, m.Save(ctx, "k", []byte("w")))
	assert.Equal(t, 2, m.Saves())

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Load(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrStateNotFound)
}

func TestEventLog(t *testing.T) {
	var l EventLog
	require.NoError(t, l.Record(context.Background(), domainauth.Event{Type: domainauth.EventLogout}))
	assert.Equal(t, []domainauth.EventType{domainauth.EventLogout}, l.Types())
}
