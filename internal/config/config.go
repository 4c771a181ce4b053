// Package config reads the service settings from the environment, with an
// optional .env file loaded first.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string
	LogFile  string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr       string
	KafkaBrokers    []string
	KafkaOrderTopic string

	CheckoutTimeout time.Duration
	CartTTL         time.Duration
	SweepInterval   time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigin     string
}

// Load reads .env (if present) and then the process environment.
// A missing .env is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("could not load .env file, relying on system environment variables")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("STORE_DRIVER", StoreMongo)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MONGODB_DATABASE", "commerce")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "1h")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_ORDER_TOPIC", "orders")
	v.SetDefault("CHECKOUT_TIMEOUT", "10s")
	// Carts live until checkout or an explicit clear unless a TTL is set.
	v.SetDefault("CART_TTL", "0s")
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("CORS_ORIGIN", "*")
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:          v.GetString("APP_ENV"),
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFile:         v.GetString("LOG_FILE"),
		StoreDriver:     strings.ToLower(v.GetString("STORE_DRIVER")),
		MongoURI:        v.GetString("MONGODB_URI"),
		MongoDatabase:   v.GetString("MONGODB_DATABASE"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTTTL:          v.GetDuration("JWT_TTL"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
		KafkaOrderTopic: v.GetString("KAFKA_ORDER_TOPIC"),
		CheckoutTimeout: v.GetDuration("CHECKOUT_TIMEOUT"),
		CartTTL:         v.GetDuration("CART_TTL"),
		SweepInterval:   v.GetDuration("SWEEP_INTERVAL"),
		RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
		CORSOrigin:      v.GetString("CORS_ORIGIN"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.JWTSecret == "" && !c.IsDev() {
		errs = append(errs, errors.New("JWT_SECRET is required outside dev"))
	}
	if c.CheckoutTimeout <= 0 {
		errs = append(errs, errors.New("CHECKOUT_TIMEOUT must be positive"))
	}
	if c.CartTTL < 0 {
		errs = append(errs, errors.New("CART_TTL must not be negative"))
	}
	if c.CartTTL > 0 && c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive when CART_TTL is set"))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDev() bool { return c.AppEnv == "dev" }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
