package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"SERVICE_NAME", "ENV", "LOG_LEVEL", "HTTP_ADDR", "CATALOG_API_URL", "CATALOG_TIMEOUT",
		"CART_STORE", "CART_STORAGE_KEY", "NOTIFICATION_FEED_SIZE", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "minishop-cart", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, CatalogMemory, cfg.CatalogURL)
	assert.Zero(t, cfg.CatalogTimeout)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "@RocketShoes:cart", cfg.StorageKey)
	assert.Equal(t, 50, cfg.NotificationFeedSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CATALOG_API_URL", "http://localhost:3333")
	t.Setenv("CATALOG_TIMEOUT", "1500")
	t.Setenv("CART_STORE", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("NOTIFICATION_FEED_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.CatalogTimeout)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5, cfg.NotificationFeedSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown store":        {"CART_STORE": "mongo"},
		"postgres without dsn": {"CART_STORE": "postgres", "POSTGRES_DSN": ""},
		"s3 without bucket":    {"CART_STORE": "s3", "S3_BUCKET": ""},
		"bad catalog url":      {"CATALOG_API_URL": "localhost:3333"},
		"bad timeout":          {"CATALOG_TIMEOUT": "soon"},
		"negative timeout":     {"CATALOG_TIMEOUT": "-1s"},
		"bad feed size":        {"NOTIFICATION_FEED_SIZE": "ten"},
		"zero feed size":       {"NOTIFICATION_FEED_SIZE": "0"},
		"unknown exporter":     {"OTEL_TRACES_EXPORTER": "zipkin"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
