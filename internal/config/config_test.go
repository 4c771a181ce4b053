package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 10*time.Second, cfg.CheckoutTimeout)
	assert.Zero(t, cfg.CartTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.IsDev())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CHECKOUT_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.CheckoutTimeout)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0.0001)
}

func TestCartSweeperIsOptIn(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.Zero(t, cfg.CartTTL, "sweeper must stay off unless CART_TTL is set")

	t.Setenv("CART_TTL", "720h")
	cfg, err = FromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, 720*time.Hour, cfg.CartTTL)

	t.Setenv("SWEEP_INTERVAL", "0s")
	_, err = FromViper(newViper())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SWEEP_INTERVAL")
}

func TestValidate(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := FromViper(newViper())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}
