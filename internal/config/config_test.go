package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) Lookup {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseMemoryDefaults(t *testing.T) {
	cfg, err := Parse(mapLookup(map[string]string{
		"APP_PORT":       "8080",
		"JWT_SECRET":     "s3cret",
		"STORAGE_DRIVER": "memory",
	}))
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, DriverMemory, cfg.Storage)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.BrokerEnabled)
	assert.True(t, cfg.Cache.Methods["GET"])
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.GreaterOrEqual(t, cfg.RateLimit.TTL, 5*cfg.RateLimit.RefillInterval)
}

func TestParseMySQLRequiresDatabase(t *testing.T) {
	_, err := Parse(mapLookup(map[string]string{
		"APP_PORT":   "8080",
		"JWT_SECRET": "s3cret",
		"DB_USER":    "root",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "DB_NAME")
	assert.NotContains(t, err.Error(), "DB_USER")
}

func TestParseReportsInvalidValues(t *testing.T) {
	_, err := Parse(mapLookup(map[string]string{
		"APP_PORT":        "8080",
		"STORAGE_DRIVER":  "sqlite",
		"REQUEST_TIMEOUT": "soon",
		"BROKER_ENABLED":  "maybe",
	}))
	require.Error(t, err)
	for _, want := range []string{"JWT_SECRET", "STORAGE_DRIVER", "REQUEST_TIMEOUT", "BROKER_ENABLED"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseRedisHostPort(t *testing.T) {
	cfg, err := Parse(mapLookup(map[string]string{
		"APP_PORT":       "8080",
		"JWT_SECRET":     "s3cret",
		"STORAGE_DRIVER": "memory",
		"REDIS_HOST":     "cache",
		"REDIS_PORT":     "6380",
		"AMQP_URL":       "amqp://u:p@mq:5672/",
	}))
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.BrokerURL)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client := NewRedisClient(RedisConfig{Addr: addr})
	require.NotNil(t, client)
	defer client.Close()

	// Addr panics once the server is closed, so reuse the captured one.
	mr.Close()
	assert.Nil(t, NewRedisClient(RedisConfig{Addr: addr}))
}
