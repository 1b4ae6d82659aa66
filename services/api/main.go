package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/elofiber/viabilidade-ftth/internal/logging"
	"github.com/elofiber/viabilidade-ftth/internal/observability"
	"github.com/elofiber/viabilidade-ftth/internal/proximity"
	"github.com/elofiber/viabilidade-ftth/internal/ratelimit"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
	"github.com/elofiber/viabilidade-ftth/services/api/config"
	httpserver "github.com/elofiber/viabilidade-ftth/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		logger.Fatal("metrics init failed", zap.Error(err))
	}

	wh, err := warehouse.Open(ctx, cfg.Warehouse)
	if err != nil {
		logger.Fatal("warehouse connection failed", zap.Error(err))
	}
	defer wh.Close()

	var limiter ratelimit.Store
	if cfg.RateLimitEnabled {
		if client := ratelimit.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); client != nil {
			defer client.Close()
			limiter = ratelimit.NewRedis(client, cfg.RateLimitMax, cfg.RateLimitWindow)
			logger.Info("rate limit backed by redis", zap.String("addr", cfg.RedisAddr))
		} else {
			limiter = ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow)
		}
	}

	svc := proximity.New(wh,
		proximity.WithQueryTimeout(cfg.QueryTimeout),
		proximity.WithCollector(metrics),
		proximity.WithLogger(logger),
	)

	srv := httpserver.New(cfg, svc, httpserver.Deps{
		Limiter: limiter,
		Metrics: metrics,
		Logger:  logger,
	})
	logger.Info("viability API listening",
		zap.String("addr", cfg.ListenAddr()),
		zap.String("warehouse", driverName(cfg.Warehouse.Driver)),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func driverName(driver string) string {
	if driver == "" {
		return warehouse.DriverBigQuery
	}
	return driver
}
