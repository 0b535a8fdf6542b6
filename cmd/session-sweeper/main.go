package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/channelmed/booking-engine/internal/config"
	"github.com/channelmed/booking-engine/internal/payment"
	"github.com/channelmed/booking-engine/internal/redisclient"
)

// The sweeper closes the lost-callback risk window at the reporting level:
// pending sessions expire on their own via Redis TTL, but a session whose
// payment completed without a materialized appointment is a real patient who
// paid. Those are surfaced here for operator reconciliation through the
// administrative status path; they are never auto-booked, because a sweeper
// re-reserving windows would race the engine's own uniqueness guarantee.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("session-sweeper starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.SweepInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	sessions := payment.NewSessionStore(rdb, cfg.SessionTTL)

	// Run once at startup
	runOnce(rootCtx, sessions, logger)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping session sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, sessions, logger)
		}
	}
}

func runOnce(ctx context.Context, sessions *payment.SessionStore, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()

	candidates, err := sessions.ReconcileCandidates(runCtx)
	if err != nil {
		logger.Error("sweep error", zap.Error(err))
		return
	}

	for _, key := range candidates {
		logger.Warn("paid session awaiting reconciliation", zap.String("key", key))
	}

	logger.Info("sweep complete",
		zap.Int("reconcile_candidates", len(candidates)),
		zap.Duration("took", time.Since(start)),
	)
}
