package data

import (
	"context"
	"database/sql"

	"github.com/fixzone/fixzone-portal/internal/migrate"
)

// RunMigrations sets up the audit schema by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
