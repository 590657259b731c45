package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"linggo_sync/internal/adapters"
	"linggo_sync/internal/bootstrap"
	"linggo_sync/internal/delivery"
	authDelivery "linggo_sync/internal/delivery/auth"
	cheatsDelivery "linggo_sync/internal/delivery/cheats"
	mailDelivery "linggo_sync/internal/delivery/mail"
	progressDelivery "linggo_sync/internal/delivery/progress"
	speechDelivery "linggo_sync/internal/delivery/speech"
	tokensDelivery "linggo_sync/internal/delivery/tokens"
	progressDomain "linggo_sync/internal/domain/progress"
	repo "linggo_sync/internal/repository"
	authUC "linggo_sync/internal/usecase/auth"
	cheatsUC "linggo_sync/internal/usecase/cheats"
	mailUC "linggo_sync/internal/usecase/mail"
	progressUC "linggo_sync/internal/usecase/progress"
	speechUC "linggo_sync/internal/usecase/speech"
	tokensUC "linggo_sync/internal/usecase/tokens"
)

type dataBaseAdapters struct {
	mongoAdapter *adapters.AdapterMongo
	awsAdapter   *adapters.AdapterAWS
}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	databaseAdapters := initDatabaseAdapters(ctx, logger, cfg)
	defer databaseAdapters.mongoAdapter.Close(context.Background())

	progressStorage := repo.NewProgressStorage(logger, databaseAdapters.mongoAdapter.Database)
	if err := progressStorage.EnsureIndexes(ctx,
		progressDomain.UserGlobal.Collection,
		progressDomain.UserLanguage.Collection,
		progressDomain.DailyExp.Collection,
		repo.TokenCollection,
	); err != nil {
		logger.Warn("Failed to ensure uid indexes: ", err)
	}

	authUsecase := authUC.NewAuthUsecaseHandler(cfg.JwtSecret, cfg.JwtMaxExpiry)
	handlers, err := initializeDeliveryHandlers(cfg, logger, progressStorage, databaseAdapters, authUsecase)
	if err != nil {
		logger.Error("Failed to initialize handlers: ", err)
		return
	}

	guards := delivery.Guards{
		Verifier: authUsecase,
		Devices:  cfg.Devices(),
		Secret:   cfg.InternalSecret,
	}
	if cfg.SentryDsn != "" {
		guards.Extra = append(guards.Extra, sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}

	r := chi.NewRouter()
	delivery.Router(r, handlers, guards, logger, cfg.IsLocalCors)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown server: ", err)
		}
	}()

	logger.Infof("Server is running on port %s in %s merge mode", cfg.ServerPort, cfg.MergeMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server: ", err)
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) *dataBaseAdapters {
	mongoAdapter := adapters.NewAdapterMongo(cfg, log)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Fatal("Failed to initialize MongoDB: ", err)
	}

	awsAdapter := adapters.NewAdapterAWS(cfg)
	if err := awsAdapter.Init(ctx); err != nil {
		log.Fatal("Failed to initialize AWS clients: ", err)
	}

	log.Info("Adapters initialized")
	return &dataBaseAdapters{
		mongoAdapter: mongoAdapter,
		awsAdapter:   awsAdapter,
	}
}

func initializeDeliveryHandlers(
	cfg *bootstrap.Config,
	log *zap.SugaredLogger,
	progressStorage *repo.ProgressStorage,
	databaseAdapters *dataBaseAdapters,
	authUsecase *authUC.AuthUsecaseHandler,
) (*delivery.Handlers, error) {
	engine := progressUC.NewEngine(progressStorage, log, cfg.MergeMode, cfg.MarkerClockSkew)
	tokenStorage := repo.NewTokenStorage(log, databaseAdapters.mongoAdapter.Database)

	cheats, err := cheatsUC.NewUsecase(cfg.CheatAppName, cfg.CheatTimezone)
	if err != nil {
		return nil, err
	}

	mailer := mailUC.NewUsecase(databaseAdapters.awsAdapter.SES, mailUC.Config{
		From:            cfg.MailFrom,
		WelcomeTemplate: cfg.MailWelcomeTemplate,
		SenderName:      cfg.MailSenderName,
		SenderAddress:   cfg.MailSenderAddress,
		SenderCity:      cfg.MailSenderCity,
		ContactList:     cfg.MailUnsubscribeGroup,
	}, log)

	return &delivery.Handlers{
		Auth:     authDelivery.NewAuthHandler(authUsecase, log),
		Progress: progressDelivery.NewProgressHandler(engine, log, cfg.Collections()),
		Tokens:   tokensDelivery.NewTokenHandler(tokensUC.NewUsecase(tokenStorage, log), log, cfg.DaysAwayLower, cfg.DaysAwayUpper),
		Speech:   speechDelivery.NewSpeechHandler(speechUC.NewUsecase(databaseAdapters.awsAdapter.Polly, log), log),
		Cheats:   cheatsDelivery.NewCheatsHandler(cheats, log),
		Mail:     mailDelivery.NewMailHandler(mailer, log),
	}, nil
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info("Received shutdown signal: ", strconv.Quote(sig.String()))
	cancelFunc()
}
