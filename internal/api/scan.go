package api

import (
	"net/http"
)

// ScanHandler exposes the raw engine output for debugging, without going
// through the Prometheus exposition format.
type ScanHandler struct {
	source SnapshotSource
}

// NewScanHandler creates a new ScanHandler over the same snapshot source
// the metrics collector uses.
func NewScanHandler(source SnapshotSource) *ScanHandler {
	return &ScanHandler{source: source}
}

// GetSnapshot handles GET /api/v1/scan
func (h *ScanHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.source(r.Context())
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "No scan has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
