// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Lower bounds for the post cache. Smaller configured values are raised.
const (
	MinCacheTTL      = 60
	MinCacheMaxPosts = 100
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validEnvs      = []string{"development", "production"}
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ServerHost string `env:"OBLOG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OBLOG_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"OBLOG_ENV" envDefault:"development"`
	LogLevel   string `env:"OBLOG_LOG_LEVEL" envDefault:"info"`

	// Posts
	PostsDir       string   `env:"OBLOG_POSTS_DIR" envDefault:"./posts"`
	PostExtensions []string `env:"OBLOG_POST_EXTENSIONS" envDefault:".txt" envSeparator:","`
	CacheTTL       int      `env:"OBLOG_CACHE_TTL" envDefault:"300"`        // Post snapshot TTL in seconds
	CacheMaxPosts  int      `env:"OBLOG_CACHE_MAX_POSTS" envDefault:"1000"` // Max posts per snapshot
	WatchPosts     bool     `env:"OBLOG_WATCH_POSTS" envDefault:"false"`
	WatchDebounce  int      `env:"OBLOG_WATCH_DEBOUNCE_MS" envDefault:"250"`

	// Cron schedule for warming the post snapshot; empty disables
	RefreshSchedule string `env:"OBLOG_REFRESH_SCHEDULE" envDefault:"@every 1m"`

	// Rendered content cache
	RedisURL           string `env:"OBLOG_REDIS_URL"` // Optional Redis URL for the rendered cache
	CachePrefix        string `env:"OBLOG_CACHE_PREFIX" envDefault:"oblog:"`
	RenderCacheTTL     int    `env:"OBLOG_RENDER_CACHE_TTL" envDefault:"3600"`
	RenderCacheMaxSize int    `env:"OBLOG_RENDER_CACHE_MAX_SIZE" envDefault:"10000"`

	// Media locations for embeds
	MediaImagesURL string `env:"OBLOG_MEDIA_IMAGES_URL" envDefault:"/media/images"`
	MediaFilesURL  string `env:"OBLOG_MEDIA_FILES_URL" envDefault:"/media/files"`
	MediaAudioURL  string `env:"OBLOG_MEDIA_AUDIO_URL" envDefault:"/media/audio"`
	MediaVideoURL  string `env:"OBLOG_MEDIA_VIDEO_URL" envDefault:"/media/video"`

	// API
	InvalidateRPS   float64 `env:"OBLOG_INVALIDATE_RPS" envDefault:"1"`
	InvalidateBurst int     `env:"OBLOG_INVALIDATE_BURST" envDefault:"3"`
	RequestTimeout  int     `env:"OBLOG_REQUEST_TIMEOUT" envDefault:"30"` // Seconds
	EventLogSize    int     `env:"OBLOG_EVENT_LOG_SIZE" envDefault:"200"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// PostCacheTTL returns the post snapshot TTL.
func (c Config) PostCacheTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// RenderTTL returns the rendered body TTL.
func (c Config) RenderTTL() time.Duration {
	return time.Duration(c.RenderCacheTTL) * time.Second
}

// WatchDebounceDuration returns the watcher debounce delay.
func (c Config) WatchDebounceDuration() time.Duration {
	return time.Duration(c.WatchDebounce) * time.Millisecond
}

// RequestTimeoutDuration returns the per-request timeout.
func (c Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.clamp()

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("OBLOG_SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("OBLOG_LOG_LEVEL must be one of %s, got %q", strings.Join(validLogLevels, ", "), c.LogLevel)
	}

	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if !slices.Contains(validEnvs, c.Env) {
		return fmt.Errorf("OBLOG_ENV must be one of %s, got %q", strings.Join(validEnvs, ", "), c.Env)
	}

	if strings.TrimSpace(c.PostsDir) == "" {
		return fmt.Errorf("OBLOG_POSTS_DIR must not be empty")
	}

	if c.InvalidateRPS <= 0 {
		return fmt.Errorf("OBLOG_INVALIDATE_RPS must be positive, got %v", c.InvalidateRPS)
	}

	return nil
}

// clamp raises values below their minimum and logs the adjustment.
func (c *Config) clamp() {
	if c.CacheTTL < MinCacheTTL {
		slog.Warn("OBLOG_CACHE_TTL below minimum, using minimum", "configured", c.CacheTTL, "minimum", MinCacheTTL)
		c.CacheTTL = MinCacheTTL
	}
	if c.CacheMaxPosts < MinCacheMaxPosts {
		slog.Warn("OBLOG_CACHE_MAX_POSTS below minimum, using minimum", "configured", c.CacheMaxPosts, "minimum", MinCacheMaxPosts)
		c.CacheMaxPosts = MinCacheMaxPosts
	}
	if c.WatchDebounce < 0 {
		c.WatchDebounce = 0
	}
	if c.InvalidateBurst < 1 {
		c.InvalidateBurst = 1
	}
	if c.RequestTimeout < 1 {
		c.RequestTimeout = 30
	}
	if c.EventLogSize < 1 {
		c.EventLogSize = 200
	}
}
