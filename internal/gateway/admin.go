package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/modgate/internal/config"
	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/gate"
	"github.com/flemzord/modgate/internal/journal"
	"github.com/flemzord/modgate/internal/telemetry"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 1000
)

var tracer = telemetry.Tracer("gateway")

// moduleJSON is a serializable module snapshot.
type moduleJSON struct {
	ID               string `json:"id"`
	Type             int    `json:"type"`
	Name             string `json:"name,omitempty"`
	Shown            bool   `json:"shown"`
	Openable         bool   `json:"openable"`
	ShowState        string `json:"show_state"`
	Closed           string `json:"closed"`
	ServerOpen       bool   `json:"server_open"`
	ShowRule         int    `json:"show_rule"`
	UsageRule        int    `json:"usage_rule"`
	ShowLimits       any    `json:"show_limits,omitempty"`
	UsageLimits      any    `json:"usage_limits,omitempty"`
	PendingCallbacks int    `json:"pending_callbacks"`
}

func moduleView(m *gate.Manager, cfg *gate.Config) moduleJSON {
	return moduleJSON{
		ID:               string(cfg.ID),
		Type:             int(cfg.Type),
		Name:             cfg.Name,
		Shown:            m.IsModuleShow(cfg.ID),
		Openable:         m.IsModuleOpened(cfg.ID, false),
		ShowState:        cfg.ShowState.String(),
		Closed:           cfg.Closed.String(),
		ServerOpen:       cfg.ServerOpen,
		ShowRule:         int(cfg.ShowRule),
		UsageRule:        int(cfg.UsageRule),
		ShowLimits:       limitsOrNil(cfg.ShowLimits),
		UsageLimits:      limitsOrNil(cfg.UsageLimits),
		PendingCallbacks: cfg.PendingCallbacks(),
	}
}

func limitsOrNil(l gate.Limits) any {
	if len(l) == 0 {
		return nil
	}
	return map[string]any(l)
}

// engineContext bounds a request's wait on the engine loop.
func (g *Gateway) engineContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), g.config.EngineTimeout)
}

func (g *Gateway) engineError(w http.ResponseWriter, err error) {
	g.metrics.RecordError()
	g.logger.Error("engine unavailable", "error", err)
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
}

// handleListModules lists every configured module in configuration order.
func (g *Gateway) handleListModules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := g.engineContext(r)
		defer cancel()

		var out []moduleJSON
		err := g.engine.Do(ctx, func(m *gate.Manager) {
			cfgs := m.Configs()
			out = make([]moduleJSON, 0, len(cfgs))
			for _, cfg := range cfgs {
				out = append(out, moduleView(m, cfg))
			}
		})
		if err != nil {
			g.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetModule returns one module by id.
func (g *Gateway) handleGetModule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := gate.ModuleID(chi.URLParam(r, "id"))
		ctx, cancel := g.engineContext(r)
		defer cancel()

		var (
			view  moduleJSON
			found bool
		)
		err := g.engine.Do(ctx, func(m *gate.Manager) {
			if cfg := m.Config(id); cfg != nil {
				view, found = moduleView(m, cfg), true
			}
		})
		if err != nil {
			g.engineError(w, err)
			return
		}
		if !found {
			http.Error(w, "module not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// toggleResponse is the JSON response of a toggle request.
type toggleResponse struct {
	Module    string `json:"module"`
	Toggled   bool   `json:"toggled"`
	ShowState string `json:"show_state"`
}

// handleToggle toggles a module. The optional direction query parameter is
// auto, show or hide.
func (g *Gateway) handleToggle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := gate.ModuleID(chi.URLParam(r, "id"))
		dir, err := gate.ParseDirection(r.URL.Query().Get("direction"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, span := tracer.Start(r.Context(), "gateway.toggle", trace.WithAttributes(
			attribute.String("module.id", string(id)),
			attribute.String("toggle.direction", dir.String()),
		))
		defer span.End()
		ctx, cancel := context.WithTimeout(ctx, g.config.EngineTimeout)
		defer cancel()

		param := r.URL.Query().Get("param")
		resp := toggleResponse{Module: string(id)}
		var found bool
		err = g.engine.Do(ctx, func(m *gate.Manager) {
			cfg := m.Config(id)
			if cfg == nil {
				return
			}
			found = true
			resp.Toggled = m.ToggleWith(id, gate.ToggleOptions{
				Direction: dir,
				Param:     param,
			})
			resp.ShowState = cfg.ShowState.String()
		})
		if err != nil {
			span.RecordError(err)
			g.engineError(w, err)
			return
		}
		if !found {
			http.Error(w, "module not found", http.StatusNotFound)
			return
		}
		g.metrics.RecordToggle()
		span.SetAttributes(attribute.Bool("toggle.done", resp.Toggled))
		writeJSON(w, http.StatusOK, resp)
	}
}

// buttonJSON is a serializable button snapshot.
type buttonJSON struct {
	Name    string `json:"name"`
	Module  string `json:"module"`
	Visible bool   `json:"visible"`
	Tooltip string `json:"tooltip,omitempty"`
}

// handleListButtons lists the bound buttons.
func (g *Gateway) handleListButtons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := g.engineContext(r)
		defer cancel()

		var out []buttonJSON
		err := g.engine.Do(ctx, func(m *gate.Manager) {
			names := g.engine.ButtonNames()
			out = make([]buttonJSON, 0, len(names))
			for _, name := range names {
				b, _ := g.engine.Button(name)
				id, _ := m.BoundModule(b)
				out = append(out, buttonJSON{
					Name:    name,
					Module:  string(id),
					Visible: b.Visible(),
					Tooltip: m.Tooltip(b),
				})
			}
		})
		if err != nil {
			g.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handlePress raises a button's trigger event, as a user tap would.
func (g *Gateway) handlePress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		ctx, span := tracer.Start(r.Context(), "gateway.press",
			trace.WithAttributes(attribute.String("button.name", name)))
		defer span.End()
		ctx, cancel := context.WithTimeout(ctx, g.config.EngineTimeout)
		defer cancel()

		var pressed bool
		if err := g.engine.Do(ctx, func(*gate.Manager) { pressed = g.engine.Press(name) }); err != nil {
			span.RecordError(err)
			g.engineError(w, err)
			return
		}
		if !pressed {
			http.Error(w, "button not found", http.StatusNotFound)
			return
		}
		g.metrics.RecordPress()
		w.WriteHeader(http.StatusNoContent)
	}
}

// factsJSON is the JSON view of the checker facts.
type factsJSON struct {
	Attributes map[string]int64 `json:"attributes"`
	Flags      []string         `json:"flags"`
}

// handleGetFacts returns the attribute and flag facts.
func (g *Gateway) handleGetFacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := g.engineContext(r)
		defer cancel()

		var out factsJSON
		err := g.engine.Do(ctx, func(*gate.Manager) {
			out.Attributes = g.engine.Attributes().Snapshot()
			out.Flags = g.engine.Flags().List()
		})
		if err != nil {
			g.engineError(w, err)
			return
		}
		if out.Flags == nil {
			out.Flags = []string{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// setRequest is the body of PUT /api/attributes/{name} and /api/flags/{name}.
type setRequest struct {
	Value json.RawMessage `json:"value"`
}

// handleSetAttribute sets one attribute. Body: {"value": 5}.
func (g *Gateway) handleSetAttribute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var req setRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		v, err := strconv.ParseInt(string(req.Value), 10, 64)
		if err != nil {
			http.Error(w, "value must be an integer", http.StatusBadRequest)
			return
		}

		ctx, cancel := g.engineContext(r)
		defer cancel()
		var changed bool
		if err := g.engine.Do(ctx, func(*gate.Manager) { changed = g.engine.Attributes().Set(name, v) }); err != nil {
			g.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "value": v, "changed": changed})
	}
}

// handleSetFlag sets or clears one flag. Body: {"value": true}.
func (g *Gateway) handleSetFlag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var req setRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		on, err := strconv.ParseBool(string(req.Value))
		if err != nil {
			http.Error(w, "value must be a boolean", http.StatusBadRequest)
			return
		}

		ctx, cancel := g.engineContext(r)
		defer cancel()
		var changed bool
		if err := g.engine.Do(ctx, func(*gate.Manager) { changed = g.engine.Flags().Set(name, on) }); err != nil {
			g.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "value": on, "changed": changed})
	}
}

// handleEvents returns the most recent journal entries, newest first.
// Query parameters: limit (default 50, max 1000) and module.
func (g *Gateway) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.journal == nil {
			http.Error(w, "journal not enabled", http.StatusServiceUnavailable)
			return
		}

		limit := defaultEventsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxEventsLimit)
		}

		entries, err := g.journal.Recent(r.Context(), limit, r.URL.Query().Get("module"))
		if err != nil {
			g.metrics.RecordError()
			g.logger.Error("journal query failed", "error", err)
			http.Error(w, "journal query failed", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// componentJSON is a serializable component info snapshot.
type componentJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleListComponents lists all compiled components.
func (g *Gateway) handleListComponents() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		infos := core.GetComponents()
		out := make([]componentJSON, 0, len(infos))
		for _, c := range infos {
			out = append(out, componentJSON{
				ID:        string(c.ID),
				Namespace: c.ID.Namespace(),
				Name:      c.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetConfig returns the configuration file with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			http.Error(w, "config path not set", http.StatusServiceUnavailable)
			return
		}

		cfg, err := config.Load(g.configPath)
		if err != nil {
			http.Error(w, "failed to load config", http.StatusInternalServerError)
			return
		}

		components := make(map[string]any, len(cfg.Components))
		for id, node := range cfg.Components {
			var v any
			if err := node.Decode(&v); err != nil {
				http.Error(w, "failed to decode config", http.StatusInternalServerError)
				return
			}
			if m, ok := v.(map[string]any); ok {
				g.redactor.Map(m)
			}
			components[id] = v
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"version":    cfg.Version,
			"components": components,
		})
	}
}

// handleReloadConfig triggers a hot-reload of the configuration.
func (g *Gateway) handleReloadConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.reload == nil {
			http.Error(w, "reload not available", http.StatusServiceUnavailable)
			return
		}

		if err := g.reload(r.Context()); err != nil {
			g.logger.Error("config reload failed", "error", err)
			status := http.StatusBadRequest
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}

		g.logger.Info("configuration reloaded via api")
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
