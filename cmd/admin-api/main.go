// Package main 后台设置与 webhook 服务入口
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

	"github.com/joho/godotenv"

	"alt-text-ai-api/internal/application/settings"
	"alt-text-ai-api/internal/config"
	"alt-text-ai-api/internal/infrastructure/credential"
	"alt-text-ai-api/internal/infrastructure/messaging"
	"alt-text-ai-api/internal/infrastructure/persistence/postgres"
	"alt-text-ai-api/internal/infrastructure/persistence/redis"
	"alt-text-ai-api/internal/interfaces/http/handler"
	"alt-text-ai-api/internal/interfaces/http/router"
	"alt-text-ai-api/pkg/logger"
	"alt-text-ai-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting admin-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    cfg.App.Name + "-admin",
		ServiceVersion: Version,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		if err := shutdownTracer(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化宿主数据库与 Redis
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	// 组装设置管理与事件发布
	store := credential.NewStore(nil, cfg.Credentials.Path)
	manager := settings.NewManager(store, postgres.NewOptionRepository(pgClient))
	producer := messaging.NewProducer(redisClient.Redis(),
		messaging.Stream(cfg.Messaging.RedisStream.Stream),
		int64(cfg.Messaging.RedisStream.MaxLen),
	)

	r := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(Version, map[string]handler.HealthChecker{
			"postgres": pgClient,
			"redis":    redisClient,
		}),
		Settings: handler.NewSettingsHandler(manager, cfg.Server.HTTP.MaxUploadBytes),
		Notices:  handler.NewNoticeHandler(),
		Hooks:    handler.NewHookHandler(producer),
	}, manager, redis.NewRateLimiter(redisClient))

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr, "credentials", store.Path(), "activated", store.Exists())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
