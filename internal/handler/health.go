// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/version"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	manager   *cache.Manager
	postsDir  string
	version   version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(manager *cache.Manager, postsDir string, info version.Info) *HealthHandler {
	return &HealthHandler{
		manager:   manager,
		postsDir:  postsDir,
		version:   info,
		startTime: time.Now(),
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   version.Info     `json:"version"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
}

// Health handles GET /health. A missing posts directory is unhealthy; a
// failing cache backend or a failed snapshot build is degraded.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"posts_dir": h.checkPostsDir(),
		"snapshot":  h.checkSnapshot(),
		"cache":     h.checkCache(r.Context()),
	}

	overall := StatusHealthy
	for _, c := range checks {
		switch c.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = systemInfo()
	}

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthHandler) checkPostsDir() Check {
	info, err := os.Stat(h.postsDir)
	switch {
	case err != nil:
		return Check{Status: StatusUnhealthy, Message: "posts directory not accessible"}
	case !info.IsDir():
		return Check{Status: StatusUnhealthy, Message: "posts path is not a directory"}
	}
	return Check{Status: StatusHealthy}
}

func (h *HealthHandler) checkSnapshot() Check {
	stats := h.manager.Posts.Stats()
	if stats.LastError != "" {
		return Check{Status: StatusDegraded, Message: stats.LastError}
	}
	return Check{Status: StatusHealthy, Message: fmt.Sprintf("%d posts", stats.EntryCount)}
}

func (h *HealthHandler) checkCache(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.manager.HealthCheck(ctx)
	latency := time.Since(start).Round(time.Microsecond).String()

	backend := h.manager.Backend()
	if err != nil {
		return Check{Status: StatusDegraded, Message: backend.Backend + ": " + err.Error(), Latency: latency}
	}
	if backend.Fallback {
		return Check{Status: StatusDegraded, Message: "using memory fallback", Latency: latency}
	}
	return Check{Status: StatusHealthy, Message: backend.Backend, Latency: latency}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
	}
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
