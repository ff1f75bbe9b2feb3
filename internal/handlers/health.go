package handlers

import (
	"net/http"
	"runtime"
	"time"

	"photo-browser/internal/config"
	"photo-browser/internal/logging"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Ready    bool   `json:"ready"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	LastScan string `json:"lastScan,omitempty"`

	// Collection info
	Items          int `json:"items"`
	PendingDecodes int `json:"pendingDecodes"`
	EventClients   int `json:"eventClients"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()
	response := HealthResponse{
		Status:         statusStarting,
		Ready:          ready,
		Version:        config.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Items:          h.library.Len(),
		PendingDecodes: h.pipeline.Pending(),
		EventClients:   h.events.Clients(),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}
	if ready {
		response.Status = statusHealthy
	}

	if h.scans != nil {
		last, err := h.scans.LastScan(r.Context())
		if err != nil {
			logging.Debug("health check could not read last scan: %v", err)
		} else if !last.IsZero() {
			response.LastScan = last.Format(time.RFC3339)
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, response, status)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}
