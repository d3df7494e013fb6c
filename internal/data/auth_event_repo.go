package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fixzone/fixzone-portal/internal/data/pgxutil"
	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/ports"
)

var _ ports.AuthEventRecorder = (*AuthEventRepo)(nil)

const (
	maxIdentifierLen = 254
	maxUserAgentLen  = 512
	defaultListLimit = 50
	maxListLimit     = 500
)

// AuthEventRepo stores the auth audit trail in PostgreSQL.
type AuthEventRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAuthEventRepo creates an AuthEventRepo on the system clock.
func NewAuthEventRepo(db *sql.DB) *AuthEventRepo {
	return &AuthEventRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewAuthEventRepoWithTimeProvider creates an AuthEventRepo with a custom clock.
func NewAuthEventRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AuthEventRepo {
	return &AuthEventRepo{DB: db, timeProvider: tp}
}

// AuthEventRecord is a stored event.
type AuthEventRecord struct {
	ID         int64     `db:"id"`
	Type       string    `db:"event_type"`
	VisitorID  string    `db:"visitor_id"`
	UserID     *int64    `db:"user_id"`
	Audience   string    `db:"audience"`
	ErrorKind  string    `db:"error_kind"`
	Identifier string    `db:"identifier"`
	RemoteAddr string    `db:"remote_addr"`
	UserAgent  string    `db:"user_agent"`
	OccurredAt time.Time `db:"occurred_at"`
}

// Event converts the record back to the domain shape.
func (r AuthEventRecord) Event() domainauth.Event {
	var uid int64
	if r.UserID != nil {
		uid = *r.UserID
	}
	return domainauth.Event{
		Type:       domainauth.EventType(r.Type),
		VisitorID:  r.VisitorID,
		UserID:     uid,
		Audience:   domainauth.Audience(r.Audience),
		ErrorKind:  domainauth.ErrorKind(r.ErrorKind),
		Identifier: r.Identifier,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent,
		At:         r.OccurredAt,
	}
}

const authEventColumns = "id, event_type, visitor_id, user_id, audience, error_kind, identifier, remote_addr, user_agent, occurred_at"

// Record inserts one event. Passwords never reach this layer.
func (r *AuthEventRepo) Record(ctx context.Context, ev domainauth.Event) error {
	if ev.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidEvent)
	}
	at := ev.At
	if at.IsZero() {
		at = r.timeProvider.Now()
	}
	var userID *int64
	if ev.UserID != 0 {
		uid := ev.UserID
		userID = &uid
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO auth_events (
				event_type, visitor_id, user_id, audience, error_kind, identifier, remote_addr, user_agent, occurred_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			string(ev.Type),
			ev.VisitorID,
			userID,
			string(ev.Audience),
			string(ev.ErrorKind),
			truncate(strings.ToLower(strings.TrimSpace(ev.Identifier)), maxIdentifierLen),
			ev.RemoteAddr,
			truncate(ev.UserAgent, maxUserAgentLen),
			at.UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("record auth event: %w", mapWriteErr(err))
	}
	return nil
}

// AuthEventFilter narrows List. Zero fields match everything.
type AuthEventFilter struct {
	UserID    int64
	VisitorID string
	Type      domainauth.EventType
	Since     time.Time
	Limit     int
}

// List returns matching events, newest first.
func (r *AuthEventRepo) List(ctx context.Context, f AuthEventFilter) ([]AuthEventRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != 0 {
		add("user_id = $%d", f.UserID)
	}
	if f.VisitorID != "" {
		add("visitor_id = $%d", f.VisitorID)
	}
	if f.Type != "" {
		add("event_type = $%d", string(f.Type))
	}
	if !f.Since.IsZero() {
		add("occurred_at >= $%d", f.Since.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	query := "SELECT " + authEventColumns + " FROM auth_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d", len(args))

	var out []AuthEventRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[AuthEventRecord])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", mapWriteErr(err))
	}
	return out, nil
}

// RecentFailures counts failed logins for identifier since the given time.
func (r *AuthEventRepo) RecentFailures(ctx context.Context, identifier string, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM auth_events
		WHERE event_type = 'login_failed' AND lower(identifier) = $1 AND occurred_at >= $2`,
		strings.ToLower(strings.TrimSpace(identifier)), since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failed logins: %w", mapWriteErr(err))
	}
	return n, nil
}

// DeleteOlderThan removes events older than maxAge and returns how many went.
func (r *AuthEventRepo) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.New("maxAge must be positive")
	}
	cutoff := r.timeProvider.Now().Add(-maxAge).UTC()
	res, err := r.DB.ExecContext(ctx, `DELETE FROM auth_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old auth events: %w", mapWriteErr(err))
	}
	return res.RowsAffected()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Keep valid UTF-8 by cutting on a rune boundary.
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
