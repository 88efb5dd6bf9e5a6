package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8000"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"` // optional; empty disables the session cache
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// Attention detection
	RingSize             int           `env:"GAZE_RING_SIZE" default:"20"`
	FixationThresholdPx  float64       `env:"FIXATION_THRESHOLD_PX" default:"40"`
	LostFocusThreshold   time.Duration `env:"LOST_FOCUS_THRESHOLD" default:"3s"`
	AlertCooldown        time.Duration `env:"ALERT_COOLDOWN" default:"5s"`

	// Broadcast
	FlushInterval  time.Duration `env:"BROADCAST_FLUSH_INTERVAL" default:"50ms"`
	MaxSubscribers int           `env:"MAX_SUBSCRIBERS" default:"100"`

	// Persistence
	PersistInterval      time.Duration `env:"PERSIST_INTERVAL" default:"100ms"`
	PersistQueueCapacity int           `env:"PERSIST_QUEUE_CAPACITY" default:"200"`
	PersistWorkers       int           `env:"PERSIST_WORKERS" default:"3"`

	// Session registry
	SessionCacheTTL time.Duration `env:"SESSION_CACHE_TTL" default:"1s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if cfg.RingSize < 2 {
		return fmt.Errorf("GAZE_RING_SIZE must be at least 2, got %d", cfg.RingSize)
	}
	if cfg.FixationThresholdPx <= 0 {
		return fmt.Errorf("FIXATION_THRESHOLD_PX must be positive, got %v", cfg.FixationThresholdPx)
	}
	if cfg.LostFocusThreshold <= 0 {
		return fmt.Errorf("LOST_FOCUS_THRESHOLD must be positive, got %v", cfg.LostFocusThreshold)
	}
	if cfg.AlertCooldown <= 0 {
		return fmt.Errorf("ALERT_COOLDOWN must be positive, got %v", cfg.AlertCooldown)
	}
	if cfg.FlushInterval <= 0 {
		return fmt.Errorf("BROADCAST_FLUSH_INTERVAL must be positive, got %v", cfg.FlushInterval)
	}
	if cfg.PersistInterval <= 0 {
		return fmt.Errorf("PERSIST_INTERVAL must be positive, got %v", cfg.PersistInterval)
	}
	if cfg.PersistQueueCapacity < 1 {
		return fmt.Errorf("PERSIST_QUEUE_CAPACITY must be at least 1, got %d", cfg.PersistQueueCapacity)
	}
	if cfg.PersistWorkers < 1 {
		return fmt.Errorf("PERSIST_WORKERS must be at least 1, got %d", cfg.PersistWorkers)
	}
	return nil
}
