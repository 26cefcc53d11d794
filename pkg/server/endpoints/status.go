package endpoints

import (
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
)

// StatusResponse represents the response from /
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Backend string `json:"backend,omitempty"`
}

// HealthResponse represents the response from /health
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the status and health endpoints
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Status (no auth required)
	s.Router.HandleFunc("/", handleStatus(s.Config)).Methods("GET")

	// GET /health - Storage connectivity (no auth required)
	s.Router.HandleFunc("/health", handleHealth(s.HealthStore, s.Logger)).Methods("GET")
}

func handleStatus(cfg *config.WhoCanConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("WHOCAN_VERSION")
		if version == "" {
			version = "0.1.0"
		}

		response := StatusResponse{Status: "ok", Version: version}
		if cfg != nil && cfg.Backend.IsABackend() {
			response.Backend = cfg.Backend.String()
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleHealth(healthStore store.HealthStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if healthStore == nil {
			respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "error",
				Error:  "no store configured",
			})
			return
		}

		if err := healthStore.CheckConnectivity(r.Context()); err != nil {
			logger.Warn("connectivity check failed", zap.Error(err))
			respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "error",
				Error:  "database connectivity check failed",
			})
			return
		}

		respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
