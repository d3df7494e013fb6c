package data

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAuditSchemaMissing means auth_events does not exist; migrations have not run.
	ErrAuditSchemaMissing = errors.New("audit schema missing: run migrations")
	// ErrInvalidEvent is returned for events the audit table would reject.
	ErrInvalidEvent = errors.New("invalid auth event")
	// ErrAuditUnavailable wraps connection-level failures.
	ErrAuditUnavailable = errors.New("audit store unavailable")
)

// mapWriteErr turns driver errors into the data-layer sentinels above.
// Unrecognised errors are returned unchanged.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UndefinedTable:
			return errors.Join(ErrAuditSchemaMissing, err)
		case pgErr.Code == pgerrcode.CheckViolation,
			pgErr.Code == pgerrcode.NotNullViolation,
			pgErr.Code == pgerrcode.StringDataRightTruncationDataException:
			return errors.Join(ErrInvalidEvent, err)
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code),
			pgErr.Code == pgerrcode.AdminShutdown,
			pgErr.Code == pgerrcode.CannotConnectNow:
			return errors.Join(ErrAuditUnavailable, err)
		}
		return err
	}
	if pgconn.SafeToRetry(err) {
		return errors.Join(ErrAuditUnavailable, err)
	}
	return err
}
