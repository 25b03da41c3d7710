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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcart "github.com/Zhima-Mochi/minishop-cart/internal/application/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/config"
	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/catalogapi"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/filestore"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/notify"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/redisstore"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/s3store"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/sqlstore"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-cart/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-cart/internal/presentation/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		LogFile: cfg.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	if err := run(cfg, baseLogger, systemLogger); err != nil {
		systemLogger.Error("service_failed", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, baseLogger, systemLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := oteltrace.NewProvider(ctx, oteltrace.ProviderOptions{
		Service:  cfg.ServiceName,
		Env:      cfg.Env,
		Exporter: cfg.TracesExporter,
		Endpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	counters, histograms := prometrics.Standard(prometrics.New(registry, "", ""))
	appLogger := zaplogger.Wrap(baseLogger)
	tel := telemetry.New(oteltrace.New(cfg.ServiceName), appLogger, counters, histograms)

	snapshots, closeSnapshots, err := openSnapshots(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeSnapshots() }()

	store, err := appcart.NewStore(ctx, snapshots)
	if err != nil {
		return err
	}
	systemLogger.Info("cart_loaded",
		zap.String("store", string(cfg.Store)),
		zap.String("storage_key", cfg.StorageKey),
		zap.Int("items", store.Cart().Len()),
	)

	products, stock, err := openCatalog(cfg, tel)
	if err != nil {
		return err
	}

	// In-memory event bus carrying failure events to the notifier
	bus := outbox.NewBus(appLogger)
	feed := notify.NewFeed(cfg.NotificationFeedSize)
	workerpresentation.NewNotificationWorker(
		notify.Fanout{notify.NewLogNotifier(appLogger), feed}, tel,
	).Register(bus)
	bus.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		bus.Stop(stopCtx)
	}()

	service := appcart.NewService(store, products, stock, bus, tel)
	handler := httppresentation.NewHandler(service, appLogger, tel,
		httppresentation.WithNotifications(feed),
		httppresentation.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	return nil
}

func openSnapshots(ctx context.Context, cfg config.Config) (domcart.Snapshots, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case config.StoreFile:
		s, err := filestore.New(cfg.FilePath, cfg.StorageKey)
		return s, noop, err
	case config.StoreSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.SQLite, cfg.SQLitePath, cfg.StorageKey)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := sqlstore.Open(ctx, sqlstore.Postgres, cfg.PostgresDSN, cfg.StorageKey)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		s, err := redisstore.New(client, cfg.StorageKey)
		return s, client.Close, err
	case config.StoreS3:
		s, err := s3store.New(ctx, s3store.Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Key:      cfg.StorageKey,
		})
		return s, noop, err
	default:
		return memory.NewSnapshotStore(cfg.StorageKey), noop, nil
	}
}

func openCatalog(cfg config.Config, tel observability.Observability) (catalog.Catalog, catalog.StockOracle, error) {
	if cfg.CatalogURL == config.CatalogMemory {
		demo := memory.DemoCatalog()
		return demo, demo, nil
	}
	client, err := catalogapi.New(catalogapi.Options{
		BaseURL: cfg.CatalogURL,
		Timeout: cfg.CatalogTimeout,
	}, tel)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}
