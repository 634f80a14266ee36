package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"ordercore-api-io/api/internal/common"
	"ordercore-api-io/api/internal/container"
	"ordercore-api-io/api/internal/events"
	"ordercore-api-io/api/internal/routers"
	"ordercore-api-io/api/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := util.LoadConfig()
	gin.SetMode(cfg.GinMode)

	logger, err := util.InitLogger(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra := connect(ctx, cfg)
	defer disconnect(infra)

	serviceContainer := container.NewServiceContainer(ctx, cfg, infra)
	serviceContainer.SessionService.StartReaper(ctx, common.REAPER_INTERVAL)

	router := routers.InitRoute(serviceContainer, cfg, infra.Redis)
	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: router,
	}

	go func() {
		util.LogInfo("order service starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	util.LogInfo("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), common.SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		util.LogError("server shutdown failed", err)
	}
	serviceContainer.Shutdown()
}

// connect opens the backing services. Each one is optional: a failed
// connection is logged and the feature it backs is disabled.
func connect(ctx context.Context, cfg *util.Config) container.Infrastructure {
	var infra container.Infrastructure

	if mongoClient, err := util.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
		util.LogWarning("mongo unavailable, order ledger disabled", zap.Error(err))
	} else {
		infra.Mongo = mongoClient
	}

	if redisClient, err := util.ConnectRedis(ctx, cfg.RedisURL); err != nil {
		util.LogWarning("redis unavailable, session events and submit lock disabled", zap.Error(err))
	} else {
		infra.Redis = redisClient
	}

	if rmq, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.OrderExchange); err != nil {
		util.LogWarning("rabbitmq unavailable, order events disabled", zap.Error(err))
	} else {
		infra.Rabbit = rmq
	}

	return infra
}

func disconnect(infra container.Infrastructure) {
	ctx, cancel := context.WithTimeout(context.Background(), common.SHUTDOWN_TIMEOUT)
	defer cancel()

	if infra.Rabbit != nil {
		infra.Rabbit.Close()
	}
	if infra.Redis != nil {
		if err := infra.Redis.Close(); err != nil {
			util.LogError("failed to close redis", err)
		}
	}
	if infra.Mongo != nil {
		if err := infra.Mongo.Disconnect(ctx); err != nil {
			util.LogError("failed to disconnect mongo", err)
		}
	}
}
