package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/bryanwahyu/brainscan/internal/config"
	"github.com/bryanwahyu/brainscan/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
	"github.com/bryanwahyu/brainscan/internal/infra/db/memory"
	"github.com/bryanwahyu/brainscan/internal/infra/db/migrations"
	mysqlp "github.com/bryanwahyu/brainscan/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/brainscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/brainscan/internal/infra/mail"
	"github.com/bryanwahyu/brainscan/internal/infra/storage"
	"github.com/bryanwahyu/brainscan/internal/logging"
	"github.com/bryanwahyu/brainscan/internal/middleware"
)

type repositories struct {
	scans     domain.Repository
	incidents scanerrors.Repository
	db        *sql.DB
}

func (r repositories) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.New(os.Stdout, cfg.Log.Level).With("service", "brainscan")
}

// openDB connects to the configured SQL database. memory returns a nil DB.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		return mysqlp.Connect(ctx, cfg.MySQLDSN())
	case "postgres":
		return pgp.Connect(ctx, cfg.PostgresDSN())
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openRepositories(ctx context.Context, cfg *config.Config, log logging.Logger) (repositories, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return repositories{}, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}

	switch cfg.Database.Driver {
	case "mysql":
		if err := migrations.Up(ctx, db, "mysql"); err != nil {
			_ = db.Close()
			return repositories{}, err
		}
		return repositories{scans: mysqlp.NewScanRepository(db), incidents: mysqlp.NewScanErrorRepository(db), db: db}, nil
	case "postgres":
		if err := migrations.Up(ctx, db, "postgres"); err != nil {
			_ = db.Close()
			return repositories{}, err
		}
		return repositories{scans: pgp.NewScanRepository(db), incidents: pgp.NewScanErrorRepository(db), db: db}, nil
	default:
		log.Warn(ctx, "using in-memory repositories, records are lost on restart")
		return repositories{scans: memory.NewScanRepository(), incidents: memory.NewScanErrorRepository()}, nil
	}
}

type blobStore interface {
	domain.BlobStore
	Check(ctx context.Context) error
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blobStore, func(string) string, error) {
	switch cfg.Storage.Driver {
	case "minio":
		store, err := storage.NewMinio(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("minio init: %w", err)
		}
		return store, store.URL, nil
	default:
		store, err := storage.NewLocal(cfg.Storage.LocalRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("local storage init: %w", err)
		}
		return store, nil, nil
	}
}

func newNotifier(cfg *config.Config, log logging.Logger) domain.Notifier {
	if !cfg.SMTPEnabled() {
		return mail.LogNotifier{Log: log.With("component", "mail")}
	}
	return mail.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
}

func healthCheckers(repos repositories, blobs blobStore) map[string]middleware.HealthChecker {
	checks := map[string]middleware.HealthChecker{
		"blobs": middleware.CheckFunc(blobs.Check),
	}
	if repos.db != nil {
		checks["database"] = &middleware.DatabaseHealthChecker{DB: repos.db}
	}
	return checks
}
