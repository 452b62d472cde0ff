package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"examhall/internal/common/cache"
	"examhall/internal/common/mq"
	"examhall/internal/exam/controller"
	"examhall/internal/exam/middleware"
	"examhall/internal/exam/repository"
	"examhall/internal/exam/runner"
	"examhall/internal/exam/service"
	"examhall/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/exam.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() { _ = logger.Sync() }()

	// Redis is optional: without it, code reservation and telemetry mirrors
	// degrade to in-memory-only behavior.
	var redisCache cache.Cache
	if appCfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() { _ = rc.Close() }()
		redisCache = rc
	}

	var events repository.EventPublisher = repository.NoopEventPublisher{}
	if appCfg.Events.Enabled {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() { _ = producer.Close() }()
		events = repository.NewMQEventPublisher(producer, appCfg.Events.Topic)
	}

	store := repository.NewExamStore()
	codes := repository.NewCodeAllocator(store, redisCache, appCfg.Exam.CodeReserveTTL, appCfg.Exam.CodeMaxRetries)

	var telemetry *repository.TelemetryLog
	if appCfg.Telemetry.Enabled && redisCache != nil {
		telemetry = repository.NewTelemetryLog(redisCache, appCfg.Telemetry.TTL)
	}

	execRunner := runner.NewHTTPRunner(appCfg.Executor.BaseURL, appCfg.Executor.Timeout)

	lifecycle := service.NewLifecycleService(store, codes, events, limitsFromConfig(appCfg.Exam))
	scoring := service.NewScoringService(store, execRunner, events, redisCache, appCfg.Executor.MaxCodeBytes)
	leaderboard := service.NewLeaderboardService(store)
	integrity := service.NewIntegrityService(store, events, telemetry, appCfg.Integrity)

	gin.SetMode(gin.ReleaseMode)
	maxAge := ""
	if appCfg.CORS.MaxAge > 0 {
		maxAge = fmt.Sprintf("%d", int(appCfg.CORS.MaxAge.Seconds()))
	}
	router := controller.NewRouter(controller.Controllers{
		Exam:        controller.NewExamController(lifecycle),
		Submission:  controller.NewSubmissionController(scoring),
		Leaderboard: controller.NewLeaderboardController(leaderboard),
		Integrity:   controller.NewIntegrityController(integrity),
	}, middleware.CORSConfig{
		Enabled:          appCfg.CORS.Enabled,
		AllowedOrigins:   appCfg.CORS.AllowedOrigins,
		AllowedMethods:   appCfg.CORS.AllowedMethods,
		AllowedHeaders:   appCfg.CORS.AllowedHeaders,
		ExposedHeaders:   appCfg.CORS.ExposedHeaders,
		AllowCredentials: appCfg.CORS.AllowCredentials,
		MaxAge:           maxAge,
	})

	httpServer := &http.Server{
		Addr:           appCfg.Server.Addr,
		Handler:        router,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxHeaderBytes: appCfg.Server.MaxHeaderBytes,
	}

	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "exam service started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}
