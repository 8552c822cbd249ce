// Package metrics implements the metrics.prometheus component. It counts
// gate engine notifications into a dedicated Prometheus registry and serves
// them in the text exposition format.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/engine"
	"github.com/flemzord/modgate/internal/event"
	"github.com/flemzord/modgate/internal/gate"
)

// ID is the component ID of the metrics exporter.
const ID = "metrics.prometheus"

// ServiceHandler is the service name of the /metrics http.Handler.
const ServiceHandler = "metrics.handler"

func init() {
	core.RegisterComponent(&Component{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Component)(nil)
	_ core.Provisioner  = (*Component)(nil)
	_ core.Stopper      = (*Component)(nil)
)

// Config holds the metrics.prometheus section.
type Config struct {
	// Namespace prefixes every metric name. Defaults to "modgate".
	Namespace string `yaml:"namespace"`

	// RuntimeCollectors adds the Go runtime and process collectors.
	RuntimeCollectors bool `yaml:"runtime_collectors"`
}

func (c *Config) defaults() {
	if c.Namespace == "" {
		c.Namespace = "modgate"
	}
}

// Collector holds the gate engine metrics.
type Collector struct {
	registry *prometheus.Registry

	toggleAttempts prometheus.Counter
	toggleBlocked  prometheus.Counter
	modulesShown   prometheus.Counter
	validations    prometheus.Counter
	diagnostics    *prometheus.CounterVec
	unshownModules prometheus.Gauge
}

// NewCollector registers the gate metrics on a fresh registry.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		toggleAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggle_attempts_total",
			Help:      "Toggle requests received, before the openable check.",
		}),
		toggleBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggle_blocked_total",
			Help:      "Toggle requests refused because the module was not openable.",
		}),
		modulesShown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modules_shown_total",
			Help:      "Modules that became show-eligible.",
		}),
		validations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_passes_total",
			Help:      "Full validation passes completed.",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Configuration and usage diagnostics reported, by kind.",
		}, []string{"kind"}),
		unshownModules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unshown_modules",
			Help:      "Modules still waiting for their show rule.",
		}),
	}
	c.registry.MustRegister(
		c.toggleAttempts,
		c.toggleBlocked,
		c.modulesShown,
		c.validations,
		c.diagnostics,
		c.unshownModules,
	)
	return c
}

// Observe updates the metrics for one bus notification.
func (c *Collector) Observe(e event.Event) {
	switch e.Name {
	case event.ModuleTryToggle:
		c.toggleAttempts.Inc()
	case event.ModuleToggleBlocked:
		c.toggleBlocked.Inc()
	case event.ModuleShow:
		c.modulesShown.Inc()
	case event.CheckerInited:
		c.validations.Inc()
	case event.ModuleDiagnostic:
		if d, ok := e.Payload.(gate.Diagnostic); ok {
			c.diagnostics.WithLabelValues(string(d.Kind)).Inc()
		}
	case event.ModuleShowChanged:
		if n, ok := e.Payload.(int); ok {
			c.unshownModules.Set(float64(n))
		}
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Component subscribes a Collector to the engine bus.
type Component struct {
	config    Config
	logger    *slog.Logger
	collector *Collector
	off       func()
}

// ComponentInfo implements core.Component.
func (m *Component) ComponentInfo() core.ComponentInfo {
	return core.ComponentInfo{
		ID:  ID,
		New: func() core.Component { return &Component{} },
	}
}

// Configure implements core.Configurable.
func (m *Component) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("metrics: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Component) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	bus, err := core.ServiceAs[*event.Bus](ctx, engine.ServiceBus)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	m.collector = NewCollector(m.config.Namespace)
	if m.config.RuntimeCollectors {
		m.collector.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m.off = bus.OnAny(m.collector.Observe)

	ctx.RegisterService(ServiceHandler, m.collector.Handler())
	m.logger.Info("metrics provisioned", "namespace", m.config.Namespace)
	return nil
}

// Stop implements core.Stopper.
func (m *Component) Stop(_ context.Context) error {
	if m.off != nil {
		m.off()
	}
	return nil
}

// Collector returns the component's collector, nil before Provision.
func (m *Component) Collector() *Collector { return m.collector }
