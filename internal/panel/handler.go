// Package panel provides the default gate.Handler for configured module
// types. A panel has no UI of its own: showing it records the new state and
// tells whoever listens on the bus.
package panel

import (
	"log/slog"

	"github.com/flemzord/modgate/internal/event"
	"github.com/flemzord/modgate/internal/gate"
)

// Toggled is the payload of event.ModuleToggled.
type Toggled struct {
	Module gate.ModuleID `json:"module"`
	State  string        `json:"state"`
	Param  any           `json:"param,omitempty"`
}

// Handler flips a module's ShowState.
type Handler struct {
	bus    *event.Bus
	logger *slog.Logger
}

var _ gate.Handler = (*Handler)(nil)

// NewHandler creates a Handler. bus and logger may be nil.
func NewHandler(bus *event.Bus, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bus: bus, logger: logger.With("component", "panel")}
}

// Show implements gate.Handler.
func (h *Handler) Show(cfg *gate.Config, param any) {
	h.set(cfg, gate.StateShow, param)
}

// Hide implements gate.Handler.
func (h *Handler) Hide(cfg *gate.Config, param any) {
	h.set(cfg, gate.StateHide, param)
}

func (h *Handler) set(cfg *gate.Config, state gate.ShowState, param any) {
	if cfg.ShowState == state {
		return
	}
	cfg.ShowState = state
	h.logger.Info("module toggled", "module", string(cfg.ID), "state", state.String())
	if h.bus != nil {
		h.bus.Dispatch(event.ModuleToggled, Toggled{Module: cfg.ID, State: state.String(), Param: param})
	}
}
