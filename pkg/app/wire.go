package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/flemzord/modgate/internal/config"
	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/redact"
	"github.com/flemzord/modgate/internal/reload"
)

// Instance is a loaded, not yet started application.
type Instance struct {
	App     *core.App
	Context *core.AppContext
	Reload  *reload.Handler
	IDs     []string
}

// NewLogger builds the process logger: a text handler, or a JSON handler
// when json is set. With a non-nil r, secrets are redacted from records.
func NewLogger(w io.Writer, level slog.Level, json bool, r *redact.Redactor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if json {
		h = slog.NewJSONHandler(w, opts)
	}
	if r != nil {
		h = redact.NewHandler(h, r)
	}
	return slog.New(h)
}

// Build publishes the application services and loads every component named
// in cfg. Components are provisioned and validated but not started. The
// reload service re-reads cfgPath. Components register their secrets with r.
func Build(cfg *config.Config, cfgPath, dataDir string, logger *slog.Logger, r *redact.Redactor) (*Instance, error) {
	if r == nil {
		r = redact.New()
	}
	appCtx := core.NewAppContext(logger, dataDir).WithComponentConfigs(cfg.Components)
	application := core.NewApp(appCtx)
	handler := reload.NewHandler(application, appCtx, logger)

	// Published before loading so components can resolve them in Provision.
	appCtx.RegisterService(core.ServiceConfigPath, cfgPath)
	appCtx.RegisterService(redact.Service, r)
	appCtx.RegisterService(core.ServiceReload, func(ctx context.Context) error {
		return handler.HandleReload(ctx, cfgPath)
	})

	ids := config.Resolve(cfg)
	if err := application.LoadComponents(ids); err != nil {
		return nil, err
	}
	return &Instance{
		App:     application,
		Context: appCtx,
		Reload:  handler,
		IDs:     ids,
	}, nil
}
