// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Defaults for the sync-protocol timers.
const (
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultAFKTimeout        = 30 * time.Second
	DefaultRejoinWindow      = 60 * time.Second
	DefaultBotThinkDelay     = 1200 * time.Millisecond
	DefaultWatchdogInterval  = time.Second
)

// Config holds every runtime knob for the sync layer.
type Config struct {
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string // empty disables the match archive

	HeartbeatInterval time.Duration
	AFKTimeout        time.Duration
	RejoinWindow      time.Duration
	BotThinkDelay     time.Duration
	WatchdogInterval  time.Duration

	LogLevel logrus.Level
}

// Load reads a .env file if present, then the environment. Malformed
// durations fail loudly rather than silently falling back.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RedisAddr:     envOr("LUDO_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("LUDO_REDIS_PASSWORD"),
		DatabaseURL:   os.Getenv("LUDO_DATABASE_URL"),
		LogLevel:      logrus.InfoLevel,
	}

	var err error
	if cfg.HeartbeatInterval, err = envDuration("LUDO_HEARTBEAT_INTERVAL", DefaultHeartbeatInterval); err != nil {
		return nil, err
	}
	if cfg.AFKTimeout, err = envDuration("LUDO_AFK_TIMEOUT", DefaultAFKTimeout); err != nil {
		return nil, err
	}
	if cfg.RejoinWindow, err = envDuration("LUDO_REJOIN_WINDOW", DefaultRejoinWindow); err != nil {
		return nil, err
	}
	if cfg.BotThinkDelay, err = envDuration("LUDO_BOT_THINK_DELAY", DefaultBotThinkDelay); err != nil {
		return nil, err
	}
	if cfg.WatchdogInterval, err = envDuration("LUDO_WATCHDOG_INTERVAL", DefaultWatchdogInterval); err != nil {
		return nil, err
	}

	if lvl := os.Getenv("LUDO_LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("config: LUDO_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = parsed
	}
	return cfg, nil
}

// Default returns the built-in settings without touching the environment.
func Default() *Config {
	return &Config{
		RedisAddr:         "localhost:6379",
		HeartbeatInterval: DefaultHeartbeatInterval,
		AFKTimeout:        DefaultAFKTimeout,
		RejoinWindow:      DefaultRejoinWindow,
		BotThinkDelay:     DefaultBotThinkDelay,
		WatchdogInterval:  DefaultWatchdogInterval,
		LogLevel:          logrus.InfoLevel,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", key, d)
	}
	return d, nil
}
