// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"net/url"
	"time"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix for Redis
	Prefix string

	DefaultTTL time.Duration

	// MaxSize is the maximum number of entries for memory cache (0 = unlimited)
	MaxSize int

	CleanupInterval time.Duration

	// FallbackToMemory creates a memory cache when Redis cannot be reached
	// instead of failing.
	FallbackToMemory bool
}

// Info describes the backend NewCache created.
type Info struct {
	Backend  string `json:"backend"`
	Fallback bool   `json:"fallback"`
	Error    string `json:"error,omitempty"`
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:           "oblog:",
		DefaultTTL:       time.Hour,
		MaxSize:          10000,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}
}

// NewCache creates a Redis cache when RedisURL is set and a memory cache
// otherwise. A Redis connection failure returns the error, or a memory cache
// with Info.Fallback set when FallbackToMemory is enabled.
func NewCache(cfg Config) (Cacher, Info, error) {
	if cfg.RedisURL != "" {
		// An empty prefix would let Clear remove keys this cache does not own
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = DefaultConfig().Prefix
		}
		rc, err := NewRedisCache(RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			return rc, Info{Backend: BackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return nil, Info{Backend: BackendRedis, Error: err.Error()}, err
		}
		return newMemoryFromConfig(cfg), Info{Backend: BackendMemory, Fallback: true, Error: err.Error()}, nil
	}

	return newMemoryFromConfig(cfg), Info{Backend: BackendMemory}, nil
}

func newMemoryFromConfig(cfg Config) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// SanitizeRedisURL replaces the password in a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
