package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/oktavaklaster/radario-amocrm/internal/config"
	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/database"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/http/handlers"
	metrics "github.com/oktavaklaster/radario-amocrm/internal/infra/http/middleware"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/integration/amocrm"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/integration/radario"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/mail"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/queue"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/worker"
	"github.com/oktavaklaster/radario-amocrm/internal/mapping"
	"github.com/oktavaklaster/radario-amocrm/internal/usecase"
	"github.com/oktavaklaster/radario-amocrm/pkg/logging"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Audit log
	var (
		db   *sql.DB
		logs entity.WebhookLogRepository
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logs = database.NewWebhookLogRepository(db)
	} else {
		store, err := database.NewBoltWebhookLogStore(cfg.BoltPath)
		if err != nil {
			logger.Error("failed to open bolt store", "path", cfg.BoltPath, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		logger.Warn("DATABASE_URL not set, audit log kept in bolt file", "path", cfg.BoltPath)
		logs = store
	}

	// 2. amoCRM
	tokens, err := newTokenProvider(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up amocrm tokens", "error", err)
		os.Exit(1)
	}
	crm := amocrm.NewClient(cfg.AmoCRM, tokens, logger)

	// 3. Use case
	syncOrder := usecase.NewSyncOrderUseCase(
		logs,
		radario.NewExtractor(time.Now),
		mapping.NewMapper(mapping.DefaultEventTypeRegistry()),
		crm,
		cfg.AmoCRM.StatusPaidID,
		logger,
	)
	syncOrder.Metrics = metrics.SyncMetrics{}
	syncOrder.MaxAttempts = cfg.ReplayMaxAttempts

	if cfg.MailHost != "" && cfg.MailAlertTo != "" {
		syncOrder.Notifier = mail.NewEmailSender(
			cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPassword,
			cfg.MailFrom, cfg.MailAlertTo, cfg.ServiceName,
		)
	}

	// 4. Broker and replay
	var (
		rabbitMQ  *queue.RabbitMQ
		scheduler worker.ReplayScheduler = worker.DirectScheduler{Replayer: syncOrder}
	)
	if cfg.AMQPURL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()

		producer := queue.NewProducer(rabbitMQ.Ch)
		syncOrder.Publisher = producer
		scheduler = worker.QueueScheduler{Producer: producer}

		replayWorker := queue.NewWorker(rabbitMQ.Ch, syncOrder, logger)
		go func() {
			if err := replayWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("replay worker stopped", "error", err)
			}
		}()
	}

	if cfg.ReplayEnabled {
		sweeper := worker.NewFailedWebhookWorker(logs, scheduler, cfg.ReplayInterval, cfg.ReplayMinAge, cfg.ReplayMaxAttempts, logger)
		sweeper.OnScheduled(metrics.RecordReplayEnqueued)
		go sweeper.Start(ctx)
	}

	// 5. Handlers
	health := handlers.NewHealthHandler(cfg.ServiceName, nil, nil)
	if db != nil {
		health.DB = db
	}
	if rabbitMQ != nil {
		health.RabbitMQ = rabbitMQ.Conn
	}
	webhook := handlers.NewWebhookHandler(syncOrder, logger)

	// 6. Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(webhook, health),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// newTokenProvider prefers OAuth with refresh when client credentials are set.
// Tokens live in Redis when REDIS_ADDR is set so replicas share refreshes.
func newTokenProvider(ctx context.Context, cfg *config.Config, logger *logging.Logger) (amocrm.TokenProvider, error) {
	am := cfg.AmoCRM
	if am.ClientID == "" || am.ClientSecret == "" {
		if am.AccessToken == "" {
			logger.Warn("no amocrm credentials configured")
		}
		return amocrm.StaticTokenProvider(am.AccessToken), nil
	}

	var store amocrm.TokenStore = amocrm.NewMemoryTokenStore()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		store = amocrm.NewRedisTokenStore(client, am.Subdomain)
	}

	provider := amocrm.NewOAuthTokenProvider(amocrm.OAuthConfig{
		TokenURL:     am.TokenURL(),
		ClientID:     am.ClientID,
		ClientSecret: am.ClientSecret,
		RedirectURI:  am.RedirectURI,
	}, store, &http.Client{Timeout: am.Timeout}, logger)

	if am.AccessToken != "" || am.RefreshToken != "" {
		if err := provider.Seed(ctx, amocrm.TokenSet{AccessToken: am.AccessToken, RefreshToken: am.RefreshToken}); err != nil {
			return nil, err
		}
	}

	return provider, nil
}
