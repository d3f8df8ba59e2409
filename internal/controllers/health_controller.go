package controllers

import (
	"archivist/internal/services"
	"archivist/internal/structures"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	service   services.TrackerServiceInterface
	documents int
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Versions      int     `json:"versions"`
	Documents     int     `json:"documents"`
}

// Health answers 503 when the version history cannot be read.
func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	status, code := "ok", http.StatusOK
	versions, err := hc.service.Count(r.Context())
	if err != nil {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        status,
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Versions:      versions,
		Documents:     hc.documents,
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(service services.TrackerServiceInterface, conf *structures.Config) *HealthController {
	return &HealthController{
		service:   service,
		documents: len(conf.Tracker.Documents),
		startTime: time.Now(),
	}
}
