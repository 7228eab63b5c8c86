package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockwatch/internal/config"
	"github.com/mamadbah2/stockwatch/internal/lock"
	"github.com/mamadbah2/stockwatch/internal/repository/mongodb"
	"github.com/mamadbah2/stockwatch/internal/repository/sheets"
	"github.com/mamadbah2/stockwatch/internal/scheduler"
	"github.com/mamadbah2/stockwatch/internal/server/handlers"
	"github.com/mamadbah2/stockwatch/internal/server/router"
	"github.com/mamadbah2/stockwatch/internal/service/lowstock"
	"github.com/mamadbah2/stockwatch/internal/service/notification"
	reportingsvc "github.com/mamadbah2/stockwatch/internal/service/reporting"
	"github.com/mamadbah2/stockwatch/pkg/clients/email"
	"github.com/mamadbah2/stockwatch/pkg/logger"
	"github.com/mamadbah2/stockwatch/pkg/metrics"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	mongoRepo, err := mongodb.NewMongoDBRepository(startupCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()
	if err := mongoRepo.EnsureIndexes(startupCtx); err != nil {
		baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(startupCtx).Err(); err != nil {
			baseLogger.Fatal("failed to ping redis", zap.Error(err))
		}
		redisLocker, err := lock.NewRedisLocker(rdb, lock.DefaultKey, cfg.LowStock.LockTTL, baseLogger.Named("lock.redis"))
		if err != nil {
			baseLogger.Fatal("failed to init redis lock", zap.Error(err))
		}
		locker = redisLocker
		baseLogger.Info("redis run lock enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		baseLogger.Warn("redis not configured, run lock is process local")
	}

	var archive lowstock.Archiver
	if cfg.Sheets.Enabled() {
		alertArchive, err := sheets.NewAlertArchive(startupCtx, cfg.Sheets, cfg.LowStock.Location, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets archive", zap.Error(err))
		}
		archive = alertArchive
		baseLogger.Info("google sheets alert archive enabled")
	}

	emailClient := email.NewClient(cfg.Email)
	mailer := notification.NewEmailService(emailClient, baseLogger.Named("svc.notification"))
	reportingSvc := reportingsvc.NewService(cfg.LowStock.Location, baseLogger.Named("svc.reporting"))
	lowStockMetrics := metrics.NewLowStockMetrics(prometheus.DefaultRegisterer)

	evaluator, err := lowstock.NewEvaluator(lowstock.Params{
		Items:      mongoRepo,
		Recipients: mongoRepo,
		States:     mongoRepo,
		Mailer:     mailer,
		Reports:    reportingSvc,
		Locker:     locker,
		Archive:    archive,
		Metrics:    lowStockMetrics,
		Settings: lowstock.Settings{
			SenderAddress: cfg.Email.From,
			APIKey:        cfg.Email.APIKey,
			Location:      cfg.LowStock.Location,
			DigestHour:    cfg.LowStock.DigestHour,
			DigestWindow:  cfg.LowStock.DigestWindow,
		},
		Logger: baseLogger.Named("svc.lowstock"),
	})
	if err != nil {
		baseLogger.Fatal("failed to init low stock evaluator", zap.Error(err))
	}

	lowStockHandler := handlers.NewLowStockHandler(evaluator, reportingSvc, baseLogger.Named("handlers.lowstock"))
	engine := router.New(lowStockHandler, router.Options{
		Health:   mongoRepo,
		Metrics:  metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Gatherer: prometheus.DefaultGatherer,
	}, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.LowStock, evaluator, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LowStock.RunTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
