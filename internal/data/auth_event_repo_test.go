package data

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/testutil"
)

func TestTruncate_RuneBoundary(t *testing.T) {
	s := strings.Repeat("ش", 10) // two bytes each
	got := truncate(s, 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 4, len(got))
	assert.Equal(t, "abc", truncate("abc", 10))
}

func TestAuthEventRepo_RecordAndList(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := NewAuthEventRepoWithTimeProvider(db, NewFixedTimeProvider(base))

	require.NoError(t, repo.Record(ctx, domainauth.Event{
		Type: domainauth.EventLoginFailed, VisitorID: "v1", Identifier: " Sara@FixZone.test ",
		ErrorKind: domainauth.KindInvalidCredentials, At: base.Add(-time.Minute),
	}))
	require.NoError(t, repo.Record(ctx, domainauth.Event{
		Type: domainauth.EventLoginSucceeded, VisitorID: "v1", UserID: 20,
		Audience: domainauth.AudienceCustomer, RemoteAddr: "10.0.0.1",
	}))
	require.NoError(t, repo.Record(ctx, domainauth.Event{Type: domainauth.EventLogout, VisitorID: "v2"}))

	all, err := repo.List(ctx, AuthEventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	byUser, err := repo.List(ctx, AuthEventFilter{UserID: 20})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	ev := byUser[0].Event()
	assert.Equal(t, domainauth.EventLoginSucceeded, ev.Type)
	assert.Equal(t, domainauth.AudienceCustomer, ev.Audience)
	assert.True(t, ev.At.Equal(base))

	failed, err := repo.List(ctx, AuthEventFilter{VisitorID: "v1", Type: domainauth.EventLoginFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "sara@fixzone.test", failed[0].Identifier)
	assert.Nil(t, failed[0].UserID)

	n, err := repo.RecentFailures(ctx, "SARA@fixzone.test", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAuthEventRepo_RejectsUnknownType(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	repo := NewAuthEventRepo(db)

	err := repo.Record(context.Background(), domainauth.Event{Type: "password_sprayed"})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	err = repo.Record(context.Background(), domainauth.Event{})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestAuthEventRepo_DeleteOlderThan(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := NewAuthEventRepoWithTimeProvider(db, NewFixedTimeProvider(now))

	require.NoError(t, repo.Record(ctx, domainauth.Event{Type: domainauth.EventLogout, At: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Record(ctx, domainauth.Event{Type: domainauth.EventLogout, At: now.Add(-time.Hour)}))

	deleted, err := repo.DeleteOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.DeleteOlderThan(ctx, 0)
	assert.Error(t, err)
}

func TestAuthEventRepo_MissingSchema(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, "DROP TABLE auth_events")
	require.NoError(t, err)

	err = NewAuthEventRepo(db).Record(ctx, domainauth.Event{Type: domainauth.EventLogout})
	assert.ErrorIs(t, err, ErrAuditSchemaMissing)
}
