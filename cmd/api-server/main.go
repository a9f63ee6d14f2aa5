package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medimeet/scheduling/internal/account"
	"github.com/medimeet/scheduling/internal/api"
	"github.com/medimeet/scheduling/internal/appointment"
	"github.com/medimeet/scheduling/internal/availability"
	"github.com/medimeet/scheduling/internal/config"
	"github.com/medimeet/scheduling/internal/db"
	"github.com/medimeet/scheduling/internal/entitlement"
	"github.com/medimeet/scheduling/internal/ledger"
	"github.com/medimeet/scheduling/internal/logger"
	redisclient "github.com/medimeet/scheduling/internal/redis"
	"github.com/medimeet/scheduling/internal/video"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		zlog.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}()
	zlog.Info("connected to Redis")

	provider, err := video.NewJWTProvider(cfg.VideoAppID, cfg.VideoAPISecret)
	if err != nil {
		zlog.Fatal("video provider init error", zap.Error(err))
	}

	var plans entitlement.Checker
	if cfg.EntitlementBaseURL != "" {
		plans = entitlement.NewHTTPChecker(cfg.EntitlementBaseURL)
	} else {
		// Without an entitlement service every account defaults to no plan;
		// credits then only move through bookings and refunds.
		plans = &entitlement.StaticChecker{}
	}

	accounts := account.NewPgRepository(pgPool)
	ledgerRepo := ledger.NewPgRepository(pgPool)
	windowRepo := availability.NewPgRepository(pgPool)
	apptRepo := appointment.NewPgRepository(pgPool, ledgerRepo)
	viewCache := redisclient.NewViewCache(rdb, cfg.ViewCacheTTL)

	apptSvc := appointment.NewService(apptRepo, accounts, windowRepo, provider, viewCache, zlog)
	availSvc := availability.NewService(windowRepo, accounts, zlog)
	ledgerSvc := ledger.NewService(ledgerRepo, accounts, plans, zlog)

	router := api.NewRouter(api.RouterConfig{
		Appointments: apptSvc,
		Availability: availSvc,
		Ledger:       ledgerSvc,
		Accounts:     accounts,
		Logger:       zlog,
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		zlog.Info("shutdown signal received")
	case err := <-errCh:
		zlog.Error("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("graceful shutdown failed", zap.Error(err))
	}

	zlog.Info("api-server stopped")
}
