package api

import (
	"net/http"
	"time"

	"github.com/maios-ai/orchestrator/internal/config"
)

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   config.ServiceName,
		Version:   config.ServiceVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type rootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Health  string `json:"health"`
	Metrics string `json:"metrics"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, rootResponse{
		Service: config.ServiceName,
		Version: config.ServiceVersion,
		Status:  "running",
		Health:  "/health",
		Metrics: "/metrics",
	})
}
