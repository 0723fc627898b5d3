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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/hoaledger/internal/adapter/http"
	"github.com/iho/hoaledger/internal/adapter/http/handler"
	"github.com/iho/hoaledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/hoaledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/hoaledger/internal/adapter/repository/redis"
	"github.com/iho/hoaledger/internal/infrastructure/config"
	"github.com/iho/hoaledger/internal/infrastructure/eventpublisher"
	"github.com/iho/hoaledger/internal/infrastructure/logger"
	"github.com/iho/hoaledger/internal/infrastructure/metrics"
	"github.com/iho/hoaledger/internal/infrastructure/postgres"
	"github.com/iho/hoaledger/internal/infrastructure/redis"
	"github.com/iho/hoaledger/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New(logger.Config{Level: "info", Format: "json"})
		bootstrap.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.AutoMigrate {
		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log).Up(); err != nil {
			return err
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	txnRepo := postgresRepo.NewTransactionRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	fundRepo := postgresRepo.NewFundRepository(pool)
	memberRepo := postgresRepo.NewMemberRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := newOutboxRepository(cfg, pool)
	retrier := postgresRepo.NewRetrier(postgresRepo.DefaultRetryConfig, log)
	idGen := postgresRepo.NewULIDGenerator()
	clock := usecase.SystemClock

	// Initialize use cases
	reconstructionUC := usecase.NewReconstructionUseCase(txnRepo, entryRepo, fundRepo, memberRepo,
		redisRepo.NewCache(redisClient), cfg.SnapshotCacheTTL, m, log)
	accuracyUC := usecase.NewAccuracyUseCase(txManager, txnRepo, entryRepo, fundRepo, memberRepo,
		auditRepo, outboxRepo, idGen, clock, m, log)
	immutabilityUC := usecase.NewImmutabilityUseCase(txManager, entryRepo, auditRepo, outboxRepo, idGen, clock, m, log)
	integrityUC := usecase.NewIntegrityUseCase(txManager, txnRepo, entryRepo, fundRepo, auditRepo, outboxRepo,
		retrier, reconstructionUC, idGen, clock, m, log)
	auditUC := usecase.NewAuditUseCase(auditRepo)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).OnReject(m.RecordRateLimitHit)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		ReconstructionHandler: handler.NewReconstructionHandler(reconstructionUC, clock),
		ComplianceHandler:     handler.NewComplianceHandler(accuracyUC, immutabilityUC, clock),
		IntegrityHandler:      handler.NewIntegrityHandler(integrityUC),
		AuditHandler:          handler.NewAuditHandler(auditUC),
		HealthHandler: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pool,
			"redis":    handler.PingFunc(redis.Ping(redisClient)),
		}),
		IdempotencyStore: redisRepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Metrics:          m,
		MetricsHandler:   promhttp.Handler(),
		Logger:           log,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
	})

	if cfg.OutboxEnabled {
		publisher, closePublisher := newPublisher(cfg, log)
		defer func() {
			if err := closePublisher(); err != nil {
				log.Error().Err(err).Msg("failed to close event publisher")
			}
		}()

		ep := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Publisher:  publisher,
			Recorder:   m,
			Clock:      clock,
			Logger:     log,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxPollInterval,
			Retention:  cfg.OutboxRetention,
		})
		go func() { _ = ep.Start(ctx) }()
	}

	go sweepLimiters(ctx, rateLimiter, limiterIdleTimeout)

	server := newHTTPServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

func newOutboxRepository(cfg *config.Config, pool *pgxpool.Pool) usecase.OutboxRepository {
	if !cfg.OutboxEnabled {
		return postgresRepo.NewNullOutboxRepository()
	}
	return postgresRepo.NewOutboxRepository(pool)
}

// newPublisher picks Kafka when brokers are configured and the log otherwise.
func newPublisher(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func() error) {
	if len(cfg.KafkaBrokers) == 0 {
		return eventpublisher.NewLogPublisher(log), func() error { return nil }
	}
	kp := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	return kp, kp.Close
}

func sweepLimiters(ctx context.Context, rl *middleware.RateLimiter, idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(idle)
		}
	}
}
