package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/onboardhub/engine/internal/api"
	"github.com/onboardhub/engine/internal/api/handlers"
	"github.com/onboardhub/engine/internal/app"
	"github.com/onboardhub/engine/pkg/config"
	"github.com/onboardhub/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting onboarding api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatal("failed to initialise application", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.Blobs.EnsureBucket(bucketCtx); err != nil {
		// uploads fail with upstream errors until storage is reachable
		log.Warn("blob bucket check failed", zap.Error(err))
	}
	cancel()

	router := api.NewRouter(api.Dependencies{
		Gate:      a.Gate,
		Projects:  a.Projects,
		Templates: a.Templates,
		Tasks:     a.Tasks,
		Tags:      a.Tags,
		Comments:  a.Comments,
		Portal:    a.Portal,
		Reminders: a.Reminders,
		Checks: map[string]handlers.Check{
			"database": a.PingDB,
			"redis":    a.PingRedis,
			"storage":  a.Blobs.Ping,
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
