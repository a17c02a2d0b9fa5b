package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/localserve/service-booking/internal/common/config"
)

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	DBConfig    config.DatabaseConfig
	JWTConfig   config.JWTConfig
	KafkaConfig config.KafkaConfig
	RedisConfig config.RedisConfig

	// ProviderCacheTTL is the lifetime of cached candidate previews.
	ProviderCacheTTL time.Duration
	// NotificationWorkers is the asynq processor concurrency.
	NotificationWorkers int
	RateLimitPerMinute  int
	RateLimitBurst      int
	ShutdownTimeout     time.Duration
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING")
	if err != nil {
		return nil, err
	}

	v.SetDefault("DB_NAME", "localserve_booking")
	v.SetDefault("PROVIDER_CACHE_TTL", "30s")
	v.SetDefault("NOTIFICATION_WORKERS", 5)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	cfg := &ServiceConfig{
		Port:                config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:              config.GetAppEnv(v),
		DBConfig:            config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:           config.LoadJWTConfig(v),
		KafkaConfig:         config.LoadKafkaConfig(v),
		RedisConfig:         config.LoadRedisConfig(v),
		ProviderCacheTTL:    v.GetDuration("PROVIDER_CACHE_TTL"),
		NotificationWorkers: v.GetInt("NOTIFICATION_WORKERS"),
		RateLimitPerMinute:  v.GetInt("RATE_LIMIT_PER_MINUTE"),
		RateLimitBurst:      v.GetInt("RATE_LIMIT_BURST"),
		ShutdownTimeout:     v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	if c.JWTConfig.Secret == "" && c.AppEnv != "development" {
		return errors.New("BOOKING_JWT_SECRET is required outside development")
	}
	if len(c.KafkaConfig.Brokers) == 0 {
		return errors.New("BOOKING_KAFKA_BROKERS is empty")
	}
	for name, v := range map[string]int64{
		"BOOKING_RATE_LIMIT_PER_MINUTE": int64(c.RateLimitPerMinute),
		"BOOKING_RATE_LIMIT_BURST":      int64(c.RateLimitBurst),
		"BOOKING_NOTIFICATION_WORKERS":  int64(c.NotificationWorkers),
		"BOOKING_PROVIDER_CACHE_TTL":    int64(c.ProviderCacheTTL),
		"BOOKING_SHUTDOWN_TIMEOUT":      int64(c.ShutdownTimeout),
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
