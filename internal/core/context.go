package core

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// AppContext carries shared resources available to components during
// provisioning and at runtime.
type AppContext struct {
	// Logger for the current component scope.
	Logger *slog.Logger

	// DataDir is the root directory for persistent component data.
	DataDir string

	parentLogger     *slog.Logger
	componentConfigs map[string]yaml.Node
	services         *serviceRegistry
}

// NewAppContext creates a new AppContext with the given base logger and data
// directory.
func NewAppContext(logger *slog.Logger, dataDir string) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:       logger,
		DataDir:      dataDir,
		parentLogger: logger,
		services:     newServiceRegistry(),
	}
}

// WithComponentConfigs returns a copy of the AppContext with component
// configurations set. Each key is a component ID mapping to its raw YAML node.
func (ctx *AppContext) WithComponentConfigs(configs map[string]yaml.Node) *AppContext {
	cp := *ctx
	cp.componentConfigs = configs
	return &cp
}

// ComponentConfig returns the raw configuration of the component id.
func (ctx *AppContext) ComponentConfig(id ComponentID) (yaml.Node, bool) {
	node, ok := ctx.componentConfigs[string(id)]
	return node, ok
}

// WithServicesFrom returns a copy of the AppContext that shares other's
// service registry.
func (ctx *AppContext) WithServicesFrom(other *AppContext) *AppContext {
	cp := *ctx
	cp.services = other.services
	return &cp
}

// ForComponent returns a new AppContext scoped to the given component ID,
// with a child logger that includes the ID. The service registry is shared.
func (ctx *AppContext) ForComponent(id ComponentID) *AppContext {
	return &AppContext{
		Logger:           ctx.parentLogger.With("component", string(id)),
		DataDir:          ctx.DataDir,
		parentLogger:     ctx.parentLogger,
		componentConfigs: ctx.componentConfigs,
		services:         ctx.services,
	}
}

// LoadComponent instantiates and provisions a component by its ID.
// It calls Configure, Provision and Validate if the component implements
// those interfaces. The lifecycle order is:
//
//	New() → Configure() → Provision() → Validate()
func (ctx *AppContext) LoadComponent(id string) (Component, error) {
	info, ok := GetComponent(id)
	if !ok {
		return nil, fmt.Errorf("unknown component: %s", id)
	}

	comp := info.New()

	if c, ok := comp.(Configurable); ok {
		if node, exists := ctx.componentConfigs[id]; exists {
			if err := c.Configure(&node); err != nil {
				return nil, fmt.Errorf("configuring component %s: %w", id, err)
			}
		}
	}

	if p, ok := comp.(Provisioner); ok {
		if err := p.Provision(ctx.ForComponent(info.ID)); err != nil {
			return nil, fmt.Errorf("provisioning component %s: %w", id, err)
		}
	}

	if v, ok := comp.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating component %s: %w", id, err)
		}
	}

	return comp, nil
}
