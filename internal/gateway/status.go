package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/modgate/internal/gate"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime         int64           `json:"uptime_seconds"`
	Metrics        MetricsSnapshot `json:"metrics"`
	Modules        int             `json:"modules"`
	Unshown        int             `json:"unshown"`
	Buttons        int             `json:"buttons"`
	StreamClients  int             `json:"stream_clients"`
	JournalEntries int             `json:"journal_entries,omitempty"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Uptime:        int64(time.Since(g.startedAt).Seconds()),
			Metrics:       g.metrics.Snapshot(),
			StreamClients: g.stream.Len(),
		}

		ctx, cancel := g.engineContext(r)
		defer cancel()
		err := g.engine.Do(ctx, func(m *gate.Manager) {
			resp.Modules = len(m.Configs())
			resp.Unshown = m.UnshownLen()
			resp.Buttons = len(g.engine.ButtonNames())
		})
		if err != nil {
			g.engineError(w, err)
			return
		}

		if g.journal != nil {
			if n, err := g.journal.Count(r.Context()); err == nil {
				resp.JournalEntries = n
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
