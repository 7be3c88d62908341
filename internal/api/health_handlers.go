package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type HealthCheckResponse struct {
	Status   string            `json:"status" example:"OK"`
	Services map[string]string `json:"services"`
}

// @Summary      Health check
// @Description  Probes the database, the blob storage and the SMTP server. Returns 200 when all are reachable, 503 with status DEGRADED otherwise.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthCheckResponse
// @Failure      503  {object}  HealthCheckResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := map[string]string{
		"database": "OK",
		"storage":  "OK",
		"mail":     "OK",
	}
	healthy := true

	if err := s.store.GetPool().Ping(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check: baza danych niedostępna")
		services["database"] = "FAIL"
		healthy = false
	}

	if err := s.storage.Ping(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check: magazyn blobów niedostępny")
		services["storage"] = "FAIL"
		healthy = false
	}

	if err := s.mailer.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Health check: serwer SMTP niedostępny")
		services["mail"] = "FAIL"
		healthy = false
	}

	response := HealthCheckResponse{Status: "OK", Services: services}
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		response.Status = "DEGRADED"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}
