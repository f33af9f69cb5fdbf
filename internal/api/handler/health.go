package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/clipforge/remuxd/internal/repository"
)

var startTime = time.Now()

// ToolChecker reports whether the remux executable can be resolved.
type ToolChecker interface {
	Available() error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	jobRepo      repository.JobRepository
	tool         ToolChecker
	workspaceDir string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(jobRepo repository.JobRepository, tool ToolChecker, workspaceDir string) *HealthHandler {
	return &HealthHandler{
		jobRepo:      jobRepo,
		tool:         tool,
		workspaceDir: workspaceDir,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Reason    string      `json:"reason,omitempty"`
	Queue     *QueueStats `json:"queue,omitempty"`
}

// QueueStats contains job queue statistics.
type QueueStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Retrying   int `json:"retrying"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. The service is ready only
// when the remux tool resolves, the workspace directory exists, and the
// job repository answers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.tool.Available(); err != nil {
		h.notReady(w, fmt.Sprintf("remux tool unavailable: %v", err))
		return
	}

	if info, err := os.Stat(h.workspaceDir); err != nil || !info.IsDir() {
		h.notReady(w, "workspace directory unavailable")
		return
	}

	stats, err := h.jobRepo.Stats(ctx)
	if err != nil {
		h.notReady(w, "job repository unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Queue: &QueueStats{
			Queued:     stats.Queued,
			Processing: stats.Processing,
			Completed:  stats.Completed,
			Failed:     stats.Failed,
			Retrying:   stats.Retrying,
		},
	})
}

func (h *HealthHandler) notReady(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "error",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Reason:    reason,
	})
}

// SystemStats contains system resource statistics.
type SystemStats struct {
	Uptime        int64       `json:"uptime_seconds"`
	UptimeHuman   string      `json:"uptime_human"`
	MemAllocMB    int64       `json:"mem_alloc_mb"`
	MemSysMB      int64       `json:"mem_sys_mb"`
	NumGoroutines int         `json:"num_goroutines"`
	NumCPU        int         `json:"num_cpu"`
	WorkspaceDir  string      `json:"workspace_dir"`
	Queue         *QueueStats `json:"queue,omitempty"`
}

// Stats handles GET /api/v1/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		WorkspaceDir:  h.workspaceDir,
	}

	if qs, err := h.jobRepo.Stats(r.Context()); err == nil {
		stats.Queue = &QueueStats{
			Queued:     qs.Queued,
			Processing: qs.Processing,
			Completed:  qs.Completed,
			Failed:     qs.Failed,
			Retrying:   qs.Retrying,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
