// Package main alt text 生成 worker 入口
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"alt-text-ai-api/internal/application/alttext"
	"alt-text-ai-api/internal/config"
	"alt-text-ai-api/internal/infrastructure/credential"
	"alt-text-ai-api/internal/infrastructure/messaging"
	"alt-text-ai-api/internal/infrastructure/persistence/postgres"
	"alt-text-ai-api/internal/infrastructure/persistence/redis"
	"alt-text-ai-api/internal/infrastructure/vision"
	"alt-text-ai-api/pkg/logger"
	"alt-text-ai-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var Version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    cfg.App.Name + "-worker",
		ServiceVersion: Version,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

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

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.Stream(cfg.Messaging.RedisStream.Stream),
		Group:        messaging.ConsumerGroup(cfg.Messaging.RedisStream.ConsumerGroup),
		ConsumerName: hostnameConsumerName(),
		BlockTimeout: cfg.Messaging.RedisStream.BlockTimeout,
	})

	store := credential.NewStore(nil, cfg.Credentials.Path)
	visionCfg := vision.Config{
		Endpoint:   cfg.Vision.Endpoint,
		MaxResults: cfg.Vision.MaxResults,
		Timeout:    cfg.Vision.Timeout,
	}
	deps := alttext.Deps{
		Credentials: store,
		NewDetector: func(ctx context.Context, credentialsJSON []byte) (alttext.LabelDetector, error) {
			return vision.NewClientFromCredentials(ctx, visionCfg, credentialsJSON)
		},
		Attachments:    postgres.NewAttachmentRepository(pgClient),
		Subscriber:     consumer,
		Threshold:      cfg.AltText.Threshold,
		PreserveManual: cfg.AltText.PreserveManual,
	}

	generator, active, err := alttext.Activate(ctx, deps)
	if err != nil {
		// 凭证内容有误时保持未激活，等待重新上传
		logger.Error(ctx, "failed to activate alt text generator", err)
	}

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Credentials.Watch {
		if err := os.MkdirAll(store.Dir(), 0o700); err != nil {
			logger.Fatal(ctx, "failed to create credential dir", err)
		}
		reloader := alttext.NewReloader(deps, store.Path(), generator)
		g.Go(func() error {
			return reloader.Run(gctx)
		})
	}

	if cfg.Observability.Metrics.Enabled {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Observability.Metrics)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		consumer.Stop()
		return nil
	})

	logger.Info(ctx, "alt-text-worker started", "activated", active, "credentials", store.Path())

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "alt-text-worker stopped with error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "alt-text-worker exited")
}

// serveMetrics 独立的指标端口
func serveMetrics(ctx context.Context, cfg config.MetricsConfig) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
