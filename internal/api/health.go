package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/MaximPuga/savebot/internal/queue"
)

var startTime = time.Now()

// HealthHandler serves the operational endpoints.
type HealthHandler struct {
	queue *queue.Queue
}

func NewHealthHandler(q *queue.Queue) *HealthHandler {
	return &HealthHandler{queue: q}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	Queue     *queue.Stats `json:"queue,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe with queue counters.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	stats := h.queue.Stats(r.Context())
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Queue:     &stats,
	})
}

// SystemStats reports process resource usage and job counters.
type SystemStats struct {
	Uptime        int64       `json:"uptime_seconds"`
	MemAllocMB    int64       `json:"mem_alloc_mb"`
	MemSysMB      int64       `json:"mem_sys_mb"`
	NumGoroutines int         `json:"num_goroutines"`
	NumCPU        int         `json:"num_cpu"`
	Queue         queue.Stats `json:"queue"`
}

// Stats handles GET /stats.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeJSON(w, http.StatusOK, SystemStats{
		Uptime:        int64(time.Since(startTime).Seconds()),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		Queue:         h.queue.Stats(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
