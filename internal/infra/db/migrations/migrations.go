// Package migrations embeds the goose schema migrations for each dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed mysql/*.sql postgres/*.sql
var FS embed.FS

// Up applies every pending migration for dialect ("mysql" or "postgres").
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	if dialect != "mysql" && dialect != "postgres" {
		return fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := goose.UpContext(ctx, db, dialect); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Version reports the current schema version.
func Version(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}
