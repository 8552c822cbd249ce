package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/modgate/internal/gate"
)

const healthProbeTimeout = time.Second

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"` // "ok" or "degraded"
	Engine  string `json:"engine"`
	Journal string `json:"journal,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 when the engine loop answers, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Engine: "ok"}

		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		if err := g.engine.Do(ctx, func(*gate.Manager) {}); err != nil {
			resp.Status = "degraded"
			resp.Engine = "unresponsive"
		}
		if g.journal != nil {
			resp.Journal = "ok"
			if err := g.journal.Ping(ctx); err != nil {
				resp.Status = "degraded"
				resp.Journal = "unavailable"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
