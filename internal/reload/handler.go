package reload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/flemzord/modgate/internal/config"
	"github.com/flemzord/modgate/internal/core"
)

// Handler reloads application configuration and notifies components.
// Reloads are serialized.
type Handler struct {
	mu     sync.Mutex
	app    *core.App
	base   *core.AppContext
	logger *slog.Logger
}

// NewHandler creates a reload handler. base is the context the components
// were loaded with; reloaded components share its services and data dir.
func NewHandler(app *core.App, base *core.AppContext, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		app:    app,
		base:   base,
		logger: logger,
	}
}

// HandleReload loads a fresh config from disk, validates it, and calls Reload
// on all components that implement core.Reloader.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return h.handleReload(ctx, cfg)
}

// HandleReloadFromConfig reloads components from a pre-loaded, already
// validated config.
func (h *Handler) HandleReloadFromConfig(ctx context.Context, cfg *config.Config) error {
	return h.handleReload(ctx, cfg)
}

func (h *Handler) handleReload(ctx context.Context, cfg *config.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	h.warnComponentSetChange(cfg)

	appCtx := core.NewAppContext(h.logger, h.base.DataDir).
		WithServicesFrom(h.base).
		WithComponentConfigs(cfg.Components)

	if err := h.app.ReloadComponents(appCtx); err != nil {
		return fmt.Errorf("reloading components: %w", err)
	}

	h.logger.Info("configuration reloaded successfully")
	return nil
}

// warnComponentSetChange logs components added to or removed from the file.
// Those changes need a restart.
func (h *Handler) warnComponentSetChange(cfg *config.Config) {
	running := make([]string, 0, len(h.app.IDs()))
	for _, id := range h.app.IDs() {
		running = append(running, string(id))
	}
	wanted := config.Resolve(cfg)

	for _, id := range wanted {
		if !slices.Contains(running, id) {
			h.logger.Warn("component added to config, restart to load it", "component", id)
		}
	}
	for _, id := range running {
		if !slices.Contains(wanted, id) {
			h.logger.Warn("component removed from config, restart to unload it", "component", id)
		}
	}
}
