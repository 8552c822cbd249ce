package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of components.
type App struct {
	ctx        *AppContext
	components []componentInstance
	logger     *slog.Logger
}

type componentInstance struct {
	id        ComponentID
	component Component
	started   bool
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadComponents instantiates, provisions, and validates the components for
// the given IDs in order. If any step fails, already-loaded components are
// cleaned up.
func (a *App) LoadComponents(ids []string) error {
	for _, id := range ids {
		comp, err := a.ctx.LoadComponent(id)
		if err != nil {
			a.cleanup()
			return fmt.Errorf("loading component %s: %w", id, err)
		}
		a.AppendComponent(comp)
		a.logger.Info("component loaded", "id", id)
	}
	return nil
}

// AppendComponent adds an already provisioned component to the lifecycle.
func (a *App) AppendComponent(comp Component) {
	a.components = append(a.components, componentInstance{
		id:        comp.ComponentInfo().ID,
		component: comp,
	})
}

// Component returns the loaded component with the given ID.
func (a *App) Component(id ComponentID) (Component, bool) {
	for _, ci := range a.components {
		if ci.id == id {
			return ci.component, true
		}
	}
	return nil, false
}

// IDs returns the IDs of the loaded components in load order.
func (a *App) IDs() []ComponentID {
	ids := make([]ComponentID, len(a.components))
	for i, ci := range a.components {
		ids[i] = ci.id
	}
	return ids
}

// Start starts all loaded components that implement Starter, in order.
// If any Start() fails, already-started components are stopped in reverse
// order.
func (a *App) Start() error {
	for i := range a.components {
		ci := &a.components[i]
		s, ok := ci.component.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting component", "id", string(ci.id))
		if err := s.Start(); err != nil {
			a.logger.Error("component start failed", "id", string(ci.id), "error", err)
			a.stopComponents(i - 1)
			return fmt.Errorf("starting component %s: %w", ci.id, err)
		}
		ci.started = true
	}
	a.logger.Info("all components started")
	return nil
}

// Stop stops all started components in reverse order with a timeout.
func (a *App) Stop() {
	a.stopComponents(len(a.components) - 1)
}

func (a *App) stopComponents(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		ci := &a.components[i]
		if !ci.started {
			continue
		}
		if s, ok := ci.component.(Stopper); ok {
			a.logger.Info("stopping component", "id", string(ci.id))
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("component stop error", "id", string(ci.id), "error", err)
			}
		}
		ci.started = false
	}
}

// Discard stops every loaded component, started or not, and forgets them.
// It releases what Provision acquired when the app is never started.
func (a *App) Discard() {
	a.cleanup()
}

func (a *App) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.components) - 1; i >= 0; i-- {
		if s, ok := a.components[i].component.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.components = nil
}

// ReloadComponents calls Reload on all loaded components that implement
// Reloader. Returns a joined error if any component fails to reload.
func (a *App) ReloadComponents(ctx *AppContext) error {
	var errs []error
	for i := range a.components {
		ci := &a.components[i]
		r, ok := ci.component.(Reloader)
		if !ok {
			continue
		}
		a.logger.Info("reloading component", "id", string(ci.id))
		if err := r.Reload(ctx.ForComponent(ci.id)); err != nil {
			a.logger.Error("component reload failed", "id", string(ci.id), "error", err)
			errs = append(errs, fmt.Errorf("reloading component %s: %w", ci.id, err))
		}
	}
	return errors.Join(errs...)
}
