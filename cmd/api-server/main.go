package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/channelmed/booking-engine/internal/api"
	"github.com/channelmed/booking-engine/internal/booking"
	"github.com/channelmed/booking-engine/internal/config"
	"github.com/channelmed/booking-engine/internal/db"
	"github.com/channelmed/booking-engine/internal/payment"
	"github.com/channelmed/booking-engine/internal/redisclient"
	"github.com/channelmed/booking-engine/internal/schedule"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	stripe.Key = cfg.StripeSecretKey

	schedules := schedule.NewPgRepository(pgPool)
	bookingRepo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisWindowLocker(rdb, cfg.LockTTL)
	bookings := booking.NewService(schedules, bookingRepo, locker, logger)

	sessions := payment.NewSessionStore(rdb, cfg.SessionTTL)
	checkout := payment.NewStripeProvider(cfg.PaymentSuccessURL, cfg.PaymentCancelURL, cfg.PaymentsDryRun, logger)
	coordinator := payment.NewCoordinator(bookings, schedules, sessions, checkout, logger)

	router := api.NewRouter(api.RouterConfig{
		Schedules:   schedules,
		Bookings:    bookings,
		Coordinator: coordinator,
		PgPool:      pgPool,
		Redis:       rdb,
		Logger:      logger,
		JWTSecret:   cfg.JWTSecret,
		Env:         cfg.Env,
		Version:     version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
