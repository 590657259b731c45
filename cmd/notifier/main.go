package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"linggo_sync/internal/adapters"
	"linggo_sync/internal/bootstrap"
	repo "linggo_sync/internal/repository"
	"linggo_sync/internal/scheduler"
	"linggo_sync/internal/usecase/notify"
	tokensUC "linggo_sync/internal/usecase/tokens"
)

func main() {
	logger := NewLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration: ", err)
		return
	}

	if cfg.SentryDsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDsn}); err != nil {
			logger.Warn("Failed to init Sentry: ", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mongoAdapter := adapters.NewAdapterMongo(cfg, logger)
	if err := mongoAdapter.Init(ctx); err != nil {
		logger.Fatal("Failed to initialize MongoDB: ", err)
	}
	defer mongoAdapter.Close(context.Background())

	redisAdapter := adapters.NewAdapterRedis(cfg, logger)
	var sentLog notify.SentLog
	if err := redisAdapter.Init(ctx); err != nil {
		logger.Warn("Redis unavailable, notifications will not be de-duplicated: ", err)
	} else {
		sentLog = repo.NewRedisSentLog(redisAdapter.GetClient())
		defer redisAdapter.Close(context.Background())
	}

	firebaseAdapter := adapters.NewAdapterFirebase(cfg)
	if err := firebaseAdapter.Init(ctx); err != nil {
		logger.Fatal("Failed to initialize Firebase: ", err)
	}

	tokens := tokensUC.NewUsecase(repo.NewTokenStorage(logger, mongoAdapter.Database), logger)
	dispatcher := notify.NewDispatcher(firebaseAdapter.Messaging, sentLog, tokens, notify.Config{
		Review:        notify.Message{Title: cfg.ReviewTitle, Body: cfg.ReviewBody},
		DaysAway:      notify.Message{Title: cfg.DaysAwayTitle, Body: cfg.DaysAwayBody},
		DaysAwayLower: cfg.DaysAwayLower,
		DaysAwayUpper: cfg.DaysAwayUpper,
	}, logger)

	jobs := scheduler.New(dispatcher, logger, cfg.DaysAwayAt)
	if err := jobs.Start(); err != nil {
		logger.Fatal("Failed to schedule notification jobs: ", err)
	}
	logger.Infof("Notifier started, days away reminders at %s UTC", cfg.DaysAwayAt)

	<-ctx.Done()
	logger.Info("Received shutdown signal")
	jobs.Stop()
	dispatcher.Wait()
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}
