package mysql

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/brainscan/internal/infra/db"
)

// Connect buka koneksi MySQL. DSN must carry parseTime=true.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.Configure(conn)

	// test ping
	if err := db.Ping(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
