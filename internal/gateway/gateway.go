// Package gateway implements the gateway.http component: an HTTP admin API
// over the gate engine, a websocket notification stream, fact webhooks and
// the Prometheus scrape endpoint. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/engine"
	"github.com/flemzord/modgate/internal/journal"
	"github.com/flemzord/modgate/internal/metrics"
	"github.com/flemzord/modgate/internal/redact"
)

// ID is the component ID of the gateway.
const ID = "gateway.http"

// Service names published during Provision.
const (
	ServiceMetrics    = "gateway.metrics"
	ServiceDispatcher = "gateway.webhook_dispatcher"
)

func init() {
	core.RegisterComponent(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway component. Nothing imports it.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	metrics    *Metrics
	dispatcher *WebhookDispatcher
	stream     *Stream
	engine     *engine.Engine
	offStream  func()
	redactor   *redact.Redactor
	startedAt  time.Time

	mu   sync.Mutex
	addr net.Addr

	// Resolved lazily at Start() via service registry; these components
	// load after the gateway.
	journal     *journal.Store
	promHandler http.Handler
	reload      func(context.Context) error
	configPath  string
}

// ComponentInfo implements core.Component.
func (g *Gateway) ComponentInfo() core.ComponentInfo {
	return core.ComponentInfo{
		ID:  ID,
		New: func() core.Component { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = &Metrics{}
	g.dispatcher = NewWebhookDispatcher(g.logger)
	g.stream = NewStream(g.config.StreamBuffer, g.logger)

	eng, err := core.ServiceAs[*engine.Engine](ctx, engine.ServiceEngine)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	g.engine = eng
	g.offStream = eng.Bus().OnAny(g.stream.Publish)

	g.redactor, err = core.ServiceAs[*redact.Redactor](ctx, redact.Service)
	if err != nil {
		g.redactor = redact.New()
	}
	g.redactor.Add(g.config.Auth.BearerToken, g.config.Auth.BasicPass)

	for source, cfg := range g.config.Webhooks {
		g.dispatcher.Register(source, &factsWebhook{
			engine:  eng,
			timeout: g.config.EngineTimeout,
			metrics: g.metrics,
		}, cfg.Secret)
		g.redactor.Add(cfg.Secret)
		if cfg.Secret == "" {
			g.logger.Warn("webhook source has no secret", "source", source)
		}
	}

	ctx.RegisterService(ServiceMetrics, g.metrics)
	ctx.RegisterService(ServiceDispatcher, g.dispatcher)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	if len(g.config.Webhooks) > 0 && !g.config.Auth.IsConfigured() {
		for source, cfg := range g.config.Webhooks {
			if cfg.Secret == "" {
				return fmt.Errorf("gateway: webhook %q needs a secret when admin auth is off", source)
			}
		}
	}
	return nil
}

// Start implements core.Starter. It resolves optional services and starts
// the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}
	g.mu.Lock()
	g.addr = ln.Addr()
	g.mu.Unlock()

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolveServices binds the optional services. Missing ones disable the
// routes that need them.
func (g *Gateway) resolveServices() {
	if g.appCtx == nil {
		return
	}
	if store, err := core.ServiceAs[*journal.Store](g.appCtx, journal.ServiceStore); err == nil {
		g.journal = store
	}
	if h, err := core.ServiceAs[http.Handler](g.appCtx, metrics.ServiceHandler); err == nil {
		g.promHandler = h
	}
	if fn, err := core.ServiceAs[func(context.Context) error](g.appCtx, core.ServiceReload); err == nil {
		g.reload = fn
	}
	if path, err := core.ServiceAs[string](g.appCtx, core.ServiceConfigPath); err == nil {
		g.configPath = path
	}
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.offStream != nil {
		g.offStream()
	}
	if g.stream != nil {
		g.stream.Close()
	}
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Addr returns the listening address, nil before Start.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr
}
