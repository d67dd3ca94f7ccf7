package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/brainscan/internal/application"
	appscans "github.com/bryanwahyu/brainscan/internal/application/scans"
	"github.com/bryanwahyu/brainscan/internal/config"
	"github.com/bryanwahyu/brainscan/internal/infra/ai/openai"
	"github.com/bryanwahyu/brainscan/internal/infra/httpserver"
	"github.com/bryanwahyu/brainscan/internal/infra/report"
	"github.com/bryanwahyu/brainscan/internal/middleware"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the BrainScan API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger(cfg)
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (or JWT_SECRET) is required")
	}
	if cfg.AI.APIKey == "" {
		log.Warn(ctx, "ai.apiKey is empty, diagnosis requests will fail")
	}

	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.Close()

	blobs, imageURL, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := middleware.NewMetrics()
	svc := &appscans.Service{
		Repo:      repos.scans,
		Blobs:     blobs,
		Diagnoser: openai.NewClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL),
		Notifier:  newNotifier(cfg, log),
		Reports: &report.Generator{
			Blobs:    blobs,
			Compress: cfg.Report.Compress,
			Log:      log.With("component", "report"),
		},
		Incidents:       repos.incidents,
		Metrics:         metrics,
		Clock:           application.SystemClock{},
		Log:             log.With("component", "scans"),
		AnalysisTimeout: cfg.AnalysisTimeout(),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	defer limiter.Close()

	handler := httpserver.NewRouter(httpserver.Options{
		Scans:          svc,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		Log:            log.With("component", "http"),
		Metrics:        metrics,
		Limiter:        limiter,
		Health:         healthCheckers(repos, blobs),
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		ImageURL:       imageURL,
		Version:        version,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		// uploads wait on the diagnosis call
		WriteTimeout: cfg.AnalysisTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server listening", "addr", addr, "db", cfg.Database.Driver, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-stop:
	}
	log.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutdown error", "error", err)
	}
	svc.Wait()
	return nil
}
