package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdalwely/stor-sub001/internal/config"
	"github.com/abdalwely/stor-sub001/internal/delivery/http/handlers"
	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/kafka"
	eventlog "github.com/abdalwely/stor-sub001/internal/infrastructure/logger"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/memory"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/metrics"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/migrate"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/postgres"
	"github.com/abdalwely/stor-sub001/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	// Every running instance is one "context": it has its own in-memory
	// cache and must hear about writes made by every other context.
	contextID := mustContextID()
	logger.Info("starting catalog sync context", "context_id", contextID, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable record store: Postgres when a DSN is configured, otherwise
	// the in-process hub (local development, single process).
	var recordStore domain.RecordStore
	var changeLog eventlog.ChangeEventLogger
	if cfg.RecordDB.Dsn != "" {
		db := postgres.MustInitDB(cfg)
		if err := migrate.RunMigrations(db, cfg.RecordDB.MigrationsPath); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		recordStore = postgres.NewRecordStore(db, cfg.RecordDB.Dsn, contextID, logger)
		changeLog = eventlog.NewPGChangeEventLogger(db)
	} else {
		logger.Warn("no record_db dsn configured, using in-process record store")
		recordStore = memory.NewHub().Context(contextID)
	}

	catalogMetrics := metrics.NewCatalogMetrics()
	clock := usecase.NewSystemClock()

	cache := usecase.NewDefaultCatalogCache(recordStore, contextID, clock, catalogMetrics, logger)

	// Cross-context envelope channel, only when brokers are configured.
	var publisher domain.PublisherPort
	var subscriber domain.SubscriberPort
	if cfg.KafkaService.Host != "" {
		brokers := []string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)}
		publisher = kafka.NewDefaultKafkaPublisher(brokers)
		subscriber = kafka.NewDefaultKafkaSubscriber(brokers)
	}

	bus := usecase.NewDefaultSyncBus(
		cache,
		recordStore,
		publisher,
		subscriber,
		usecase.SyncBusConfig{
			ContextID: contextID,
			Topic:     cfg.Sync.Topic,
			GroupID:   fmt.Sprintf("%s-%s", cfg.Sync.GroupID, contextID),
			Window:    cfg.Sync.DebounceWindow(),
		},
		clock,
		catalogMetrics,
		logger,
	)
	cache.AttachNotifier(bus)
	if err := bus.Start(ctx); err != nil {
		log.Fatalf("failed to start sync bus: %v", err)
	}
	defer bus.Close()

	bus.Subscribe(func(n domain.ChangeNotification) {
		logger.Info("catalog changed", "type", n.Type, "store_id", n.StoreID, "origin", n.OriginContextID)
		if changeLog != nil {
			err := changeLog.LogChange(context.Background(), eventlog.CatalogChangeEvent{
				ChangeType: string(n.Type),
				StoreID:    n.StoreID,
				ContextID:  n.OriginContextID,
				Timestamp:  n.Timestamp,
			})
			if err != nil {
				logger.Warn("failed to log catalog change", "error", err)
			}
		}
	})

	resolver := usecase.NewDefaultStoreResolver(
		cache,
		clock,
		catalogMetrics,
		logger,
		cfg.Resolver.WaitBound(),
		cfg.Resolver.PollInterval(),
	)
	pricing := usecase.NewDefaultPricingEngine(catalogMetrics)

	mux := http.NewServeMux()
	catalogHandler := handlers.NewCatalogHandler(resolver, cache, pricing, logger)
	catalogHandler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("http server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to serve: %v\n", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}

func setupLogger(cfg *config.CatalogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogConfig.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogConfig.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func mustContextID() string {
	gen, err := nanoid.Standard(15)
	if err != nil {
		log.Fatalf("failed to init context id generator: %v", err)
	}
	return gen()
}
