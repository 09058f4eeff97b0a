// handler.go
package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the body of the /health endpoint
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Tools     int    `json:"tools"`
	Timestamp string `json:"timestamp"`
}

// HandleHealth serves the health check endpoint for the streamable HTTP mode
func HandleHealth(service string, toolCount int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp := HealthResponse{
			Status:    "healthy",
			Service:   service,
			Tools:     toolCount,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
