package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrServiceNotFound is returned when no service is registered under a name.
var ErrServiceNotFound = errors.New("service not found")

// Services the application itself publishes before components load.
const (
	// ServiceConfigPath is the path of the loaded configuration file (string).
	ServiceConfigPath = "app.config_path"

	// ServiceReload triggers a configuration reload
	// (func(context.Context) error).
	ServiceReload = "app.reload"
)

type serviceRegistry struct {
	mu       sync.RWMutex
	services map[string]any
}

func newServiceRegistry() *serviceRegistry {
	return &serviceRegistry{services: make(map[string]any)}
}

// RegisterService publishes a value for other components under name.
// A later registration under the same name replaces the earlier one.
func (ctx *AppContext) RegisterService(name string, svc any) {
	ctx.services.mu.Lock()
	defer ctx.services.mu.Unlock()
	ctx.services.services[name] = svc
}

// Service returns the service registered under name.
func (ctx *AppContext) Service(name string) (any, bool) {
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()
	svc, ok := ctx.services.services[name]
	return svc, ok
}

// ServiceAs returns the service registered under name as a T.
func ServiceAs[T any](ctx *AppContext, name string) (T, error) {
	var zero T
	raw, ok := ctx.Service(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	svc, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("service %s has type %T, want %T", name, raw, zero)
	}
	return svc, nil
}
