package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/config"
	"github.com/josh-kwaku/sarafi-settlement/internal/currency"
	"github.com/josh-kwaku/sarafi-settlement/internal/fx"
	"github.com/josh-kwaku/sarafi-settlement/internal/handler"
	"github.com/josh-kwaku/sarafi-settlement/internal/kafka"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
	"github.com/josh-kwaku/sarafi-settlement/internal/middleware"
	"github.com/josh-kwaku/sarafi-settlement/internal/repository"
	"github.com/josh-kwaku/sarafi-settlement/internal/service/outbox"
	"github.com/josh-kwaku/sarafi-settlement/internal/service/transaction"
	"github.com/josh-kwaku/sarafi-settlement/internal/settlement"
	"github.com/josh-kwaku/sarafi-settlement/internal/txlock"
)

//go:embed openapi.yaml
var openAPISpec []byte

// Overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("sarafi-settlement", version, cfg.LogLevel, cfg.AppEnv)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := repository.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", "dir", cfg.MigrationsDir)
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		ConnectAttempts:  30,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	tolerances, err := currency.DefaultTable().WithOverrides(cfg.ToleranceOverrides)
	if err != nil {
		return fmt.Errorf("tolerance overrides: %w", err)
	}
	rates, err := fx.NewRateBook(cfg.FXBaseCurrency, cfg.FXReferenceRates)
	if err != nil {
		return fmt.Errorf("reference rates: %w", err)
	}

	var locks *txlock.KeyedMutex[uuid.UUID]
	if cfg.LocalTxLocks {
		locks = txlock.New[uuid.UUID]()
	}

	transactionRepo := repository.NewTransactionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	editRepo := repository.NewEditHistoryRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	svc := transaction.NewService(
		transactionRepo,
		paymentRepo,
		editRepo,
		outboxRepo,
		settlement.NewCalculator(tolerances),
		rates,
		locks,
		db,
	)

	producer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(outboxRepo, producer, db, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatcher.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanIdempotencyCache(ctx, idempotencyRepo, logger, cfg.IdempotencyCleanupInterval)
	}()

	mux := http.NewServeMux()
	registerRoutes(mux, routeDeps{
		health:       handler.NewHealthHandler(db, outboxRepo, version),
		docs:         handler.NewDocsHandler(openAPISpec),
		currencies:   handler.NewCurrencyHandler(tolerances),
		fx:           handler.NewFXHandler(rates),
		transactions: handler.NewTransactionHandler(svc),
		payments:     handler.NewPaymentHandler(svc),
		netting:      handler.NewNetHandler(svc),
	})

	var h http.Handler = mux
	h = middleware.Idempotency(idempotencyRepo)(h)
	h = middleware.Logging(h)
	h = middleware.Tenant(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr, "kafka_enabled", cfg.KafkaEnabled, "local_tx_locks", cfg.LocalTxLocks)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	wg.Wait()
	logger.Info("server stopped")
	return nil
}

func newProducer(cfg *config.Config, logger *slog.Logger) (kafka.Producer, error) {
	if !cfg.KafkaEnabled {
		logger.Info("kafka disabled, settlement events are drained without publishing")
		return kafka.NewNoOpProducer(logger), nil
	}
	p, err := kafka.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, nil
}

type expiredCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

func cleanIdempotencyCache(ctx context.Context, repo expiredCleaner, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanExpired(ctx)
			if err != nil {
				logger.Error("idempotency cache cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("idempotency cache cleaned", "removed", n)
			}
		}
	}
}
