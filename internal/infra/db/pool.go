// Package db holds connection and schema plumbing shared by the SQL adapters.
package db

import (
	"context"
	"database/sql"
	"time"
)

// Configure applies the pool limits used for every dialect.
func Configure(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
}

// Ping checks the connection with a short deadline.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
