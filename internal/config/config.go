// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

// StoreKind selects the snapshot backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreFile     StoreKind = "file"
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
	StoreS3       StoreKind = "s3"
)

// CatalogMemory makes the service use the built-in demo catalog.
const CatalogMemory = "memory"

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string
	LogFile     string
	HTTPAddr    string

	CatalogURL     string
	CatalogTimeout time.Duration

	Store        StoreKind
	StorageKey   string
	FilePath     string
	SQLitePath   string
	PostgresDSN  string
	RedisAddr    string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	OTLPEndpoint string

	// TracesExporter is none, otlp or stdout; empty picks otlp when OTLPEndpoint is set.
	TracesExporter string

	NotificationFeedSize int
	ShutdownTimeout      time.Duration
}

func Load() (Config, error) {
	var errs []error

	cfg := Config{
		ServiceName: getenvDefault("SERVICE_NAME", "minishop-cart"),
		Env:         getenvDefault("ENV", "dev"),
		LogLevel:    getenvDefault("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),

		CatalogURL: getenvDefault("CATALOG_API_URL", CatalogMemory),

		Store:        StoreKind(strings.ToLower(getenvDefault("CART_STORE", string(StoreMemory)))),
		StorageKey:   getenvDefault("CART_STORAGE_KEY", domcart.DefaultStorageKey),
		FilePath:     getenvDefault("CART_FILE_PATH", "data/local-storage.json"),
		SQLitePath:   getenvDefault("SQLITE_PATH", "data/minishop-cart.db"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		RedisAddr:    getenvDefault("REDIS_ADDR", "localhost:6379"),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3Region:     getenvDefault("S3_REGION", "us-east-1"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		TracesExporter: strings.ToLower(os.Getenv("OTEL_TRACES_EXPORTER")),
	}

	var err error
	if cfg.CatalogTimeout, err = getenvDuration("CATALOG_TIMEOUT", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.NotificationFeedSize, err = getenvInt("NOTIFICATION_FEED_SIZE", 50); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, cfg.validate()...)
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() []error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when CART_STORE=postgres"))
		}
	case StoreS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when CART_STORE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("CART_STORE %q is not one of memory, file, sqlite, postgres, redis, s3", c.Store))
	}
	if c.CatalogURL != CatalogMemory &&
		!strings.HasPrefix(c.CatalogURL, "http://") && !strings.HasPrefix(c.CatalogURL, "https://") {
		errs = append(errs, fmt.Errorf("CATALOG_API_URL %q must be an http(s) url or %q", c.CatalogURL, CatalogMemory))
	}
	switch c.TracesExporter {
	case "", "none", "otlp", "stdout":
	default:
		errs = append(errs, fmt.Errorf("OTEL_TRACES_EXPORTER %q is not one of none, otlp, stdout", c.TracesExporter))
	}
	if c.CatalogTimeout < 0 {
		errs = append(errs, errors.New("CATALOG_TIMEOUT must not be negative"))
	}
	if c.NotificationFeedSize <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_FEED_SIZE must be positive"))
	}
	return errs
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getenvDuration accepts Go durations ("2s") or a bare number of milliseconds.
func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
