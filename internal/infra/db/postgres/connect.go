package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/bryanwahyu/brainscan/internal/infra/db"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.Configure(conn)

	if err := db.Ping(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
