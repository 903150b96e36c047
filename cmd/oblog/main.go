// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package main is the entry point for the oBlog post API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/config"
	"github.com/olegiv/oblog/internal/handler"
	"github.com/olegiv/oblog/internal/logging"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/render"
	"github.com/olegiv/oblog/internal/scheduler"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/version"
	"github.com/olegiv/oblog/internal/watcher"
)

// Build-time variables injected via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Event log retention
const (
	eventPruneSchedule = "@hourly"
	eventMaxAge        = 7 * 24 * time.Hour
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oBlog - text post cache and JSON API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_POSTS_DIR        Posts directory (default: ./posts)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_POST_EXTENSIONS  Post file extensions (default: .txt)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_CACHE_TTL        Post snapshot TTL in seconds (default: 300, min: 60)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_WATCH_POSTS      Invalidate on file changes (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_REFRESH_SCHEDULE Cron schedule for snapshot warming (default: @every 1m)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_REDIS_URL        Redis URL for the rendered content cache (optional)\n")
	}

	flag.Parse()

	info := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// WARN and ERROR logs also land in the in-memory event log
	events := service.NewEventService(cfg.EventLogSize)
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})
	logger := slog.New(logging.NewEventLogHandler(textHandler, events))
	slog.SetDefault(logger)

	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisURL = cfg.RedisURL
	cacheCfg.Prefix = cfg.CachePrefix
	cacheCfg.DefaultTTL = cfg.RenderTTL()
	cacheCfg.MaxSize = cfg.RenderCacheMaxSize
	rendered, backend, err := cache.NewCache(cacheCfg)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	if backend.Fallback {
		slog.Warn("redis unavailable, rendered cache using memory", "url", cache.SanitizeRedisURL(cfg.RedisURL), "error", backend.Error)
	}

	postCache := cache.NewPostCache(cache.PostCacheOptions{
		Dir:        cfg.PostsDir,
		Extensions: cfg.PostExtensions,
		TTL:        cfg.PostCacheTTL(),
		MaxPosts:   cfg.CacheMaxPosts,
		Logger:     logger,
	})
	manager := cache.NewManager(postCache, rendered, backend, logger)
	defer func() {
		if err := manager.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	renderer := render.New(render.MediaURLs{
		Images: cfg.MediaImagesURL,
		Files:  cfg.MediaFilesURL,
		Audio:  cfg.MediaAudioURL,
		Video:  cfg.MediaVideoURL,
	})
	postService := service.NewPostService(postCache, renderer, rendered, cfg.RenderTTL(), logger)
	searchService := service.NewSearchService(postCache)

	// Warm the snapshot so the first request doesn't pay for the scan
	warm := postCache.GetPosts(false)
	slog.Info("post cache ready", "dir", cfg.PostsDir, "posts", len(warm), "backend", backend.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WatchPosts {
		w := watcher.New(cfg.PostsDir, cfg.PostExtensions, cfg.WatchDebounceDuration(), func() {
			manager.InvalidateContent()
			_ = events.LogPostEvent(context.Background(), model.EventLevelInfo, "Posts directory changed", nil)
		}, logger)
		if err := w.Start(ctx); err != nil {
			slog.Warn("post watcher disabled", "dir", cfg.PostsDir, "error", err)
		} else {
			defer func() { _ = w.Stop() }()
		}
	}

	sched := scheduler.New(logger)
	if err := sched.AddJob("prune-events", eventPruneSchedule, func() {
		_ = events.DeleteOldEvents(context.Background(), eventMaxAge)
	}); err != nil {
		return err
	}
	if cfg.RefreshSchedule != "" {
		// Rebuilds a stale snapshot outside request handling
		if err := sched.AddJob("refresh-posts", cfg.RefreshSchedule, func() {
			postCache.GetPosts(false)
		}); err != nil {
			return fmt.Errorf("OBLOG_REFRESH_SCHEDULE: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr: cfg.ServerAddr(),
		Handler: handler.NewRouter(handler.RouterConfig{
			Manager:         manager,
			Posts:           postService,
			Search:          searchService,
			Events:          events,
			PostsDir:        cfg.PostsDir,
			Version:         info,
			Logger:          logger,
			IsDevelopment:   cfg.IsDevelopment(),
			RequestTimeout:  cfg.RequestTimeoutDuration(),
			InvalidateRPS:   cfg.InvalidateRPS,
			InvalidateBurst: cfg.InvalidateBurst,
		}),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
