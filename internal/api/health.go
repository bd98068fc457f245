// Package api provides HTTP handlers for the disk status exporter.
package api

import (
	"net/http"
	"os/exec"

	"github.com/nuclearlighters/diskstatus/internal/config"
)

// HealthResponse is the JSON response for the /healthz endpoint.
type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	SmartctlAvailable bool   `json:"smartctl_available"`
	ZpoolAvailable    bool   `json:"zpool_available"`
}

// HealthHandler handles GET /healthz requests.
// It reports whether the external tools the engine depends on are present.
type HealthHandler struct {
	cfg *config.Settings
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Settings) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// ServeHTTP implements http.Handler for the health check endpoint.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: h.cfg.Version,
	}

	if _, err := exec.LookPath(h.cfg.SmartctlBinary); err == nil {
		resp.SmartctlAvailable = true
	}
	// zpool being absent is a normal degradation (pool labels become
	// "none"), but without smartctl no probing can happen at all.
	if _, err := exec.LookPath(h.cfg.ZpoolBinary); err == nil {
		resp.ZpoolAvailable = true
	}

	status := http.StatusOK
	if !resp.SmartctlAvailable {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
