// Package engine assembles the gate engine into a daemon component: the
// task loop, the notification bus, the module manager, the built-in limit
// checkers and the configured headless buttons.
//
// Every interaction with the manager goes through the loop. Use Do from
// other goroutines.
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/modgate/internal/checker"
	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/event"
	"github.com/flemzord/modgate/internal/gate"
	"github.com/flemzord/modgate/internal/loop"
	"github.com/flemzord/modgate/internal/panel"
	"github.com/flemzord/modgate/internal/widget"
)

// ID is the component ID of the engine.
const ID = "gate.engine"

const reloadTimeout = 10 * time.Second

// Service names published during Provision.
const (
	ServiceEngine = "gate.engine"
	ServiceBus    = "gate.bus"
)

func init() {
	core.RegisterComponent(&Engine{})
}

// Engine is the gate.engine component.
type Engine struct {
	config  Config
	modules []*gate.Config
	logger  *slog.Logger

	loop     *loop.Loop
	bus      *event.Bus
	mgr      *gate.Manager
	attrs    *checker.Attributes
	flags    *checker.Flags
	handler  *panel.Handler
	buttons  map[string]*widget.Button
	triggers map[string]string

	cancel context.CancelFunc
	done   chan struct{}
}

// Compile-time interface guards.
var (
	_ core.Component    = (*Engine)(nil)
	_ core.Configurable = (*Engine)(nil)
	_ core.Provisioner  = (*Engine)(nil)
	_ core.Validator    = (*Engine)(nil)
	_ core.Starter      = (*Engine)(nil)
	_ core.Stopper      = (*Engine)(nil)
	_ core.Reloader     = (*Engine)(nil)
)

// ComponentInfo implements core.Component.
func (e *Engine) ComponentInfo() core.ComponentInfo {
	return core.ComponentInfo{
		ID:  ID,
		New: func() core.Component { return &Engine{} },
	}
}

// Configure implements core.Configurable.
func (e *Engine) Configure(node *yaml.Node) error {
	cfg, err := decodeConfig(node)
	if err != nil {
		return err
	}
	modules, err := cfg.moduleConfigs()
	if err != nil {
		return err
	}
	e.config = cfg
	e.modules = modules
	return nil
}

// Provision implements core.Provisioner.
func (e *Engine) Provision(ctx *core.AppContext) error {
	e.logger = ctx.Logger
	e.loop = loop.New(e.logger)
	e.bus = event.NewBus()
	e.attrs = checker.NewAttributes(e.bus, e.config.Attributes)
	e.flags = checker.NewFlags(e.bus, e.config.Flags...)
	e.handler = panel.NewHandler(e.bus, e.logger)
	e.buttons = make(map[string]*widget.Button)
	e.triggers = make(map[string]string)

	mgr, err := gate.New(gate.Options{
		Scheduler:      e.loop,
		Bus:            e.bus,
		Logger:         e.logger,
		Bypass:         e.config.Bypass,
		Strict:         e.config.Strict,
		TipPresenter:   e.presentTip,
		TooltipFactory: tooltip,
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	mgr.Init()
	e.mgr = mgr

	if err := e.install(e.config, e.modules); err != nil {
		return err
	}

	ctx.RegisterService(ServiceEngine, e)
	ctx.RegisterService(ServiceBus, e.bus)
	return nil
}

// Validate implements core.Validator.
func (e *Engine) Validate() error {
	var errs []error
	if _, err := checker.Build(e.config.Rules, checker.Deps{}); err != nil {
		errs = append(errs, fmt.Errorf("engine: rules: %w", err))
	}
	if err := validateButtons(e.config.Buttons, e.modules); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Start implements core.Starter. It runs the task loop in a goroutine.
func (e *Engine) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go func() {
		defer close(e.done)
		_ = e.loop.Run(ctx)
	}()
	e.logger.Info("gate engine started",
		"modules", len(e.modules),
		"buttons", len(e.buttons),
		"bypass", e.config.Bypass,
	)
	return nil
}

// Stop implements core.Stopper.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	select {
	case <-e.done:
	case <-ctx.Done():
		return fmt.Errorf("engine: waiting for loop: %w", ctx.Err())
	}
	e.mgr.Close()
	return nil
}

// Reload implements core.Reloader. Module configs, checkers and buttons are
// replaced; facts and runtime server state are kept.
func (e *Engine) Reload(ctx *core.AppContext) error {
	node, ok := ctx.ComponentConfig(ID)
	if !ok {
		return fmt.Errorf("engine: no %s section in reloaded config", ID)
	}
	cfg, err := decodeConfig(&node)
	if err != nil {
		return err
	}
	modules, err := cfg.moduleConfigs()
	if err != nil {
		return err
	}
	if err := validateButtons(cfg.Buttons, modules); err != nil {
		return err
	}
	if cfg.Bypass != e.config.Bypass || cfg.Strict != e.config.Strict {
		e.logger.Warn("bypass and strict changes need a restart")
	}

	doCtx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	var installErr error
	if err := e.loop.Do(doCtx, func() {
		for _, m := range modules {
			if old := e.mgr.Config(m.ID); old != nil {
				m.ServerOpen = old.ServerOpen
				m.ShowState = old.ShowState
			}
		}
		installErr = e.install(cfg, modules)
	}); err != nil {
		return fmt.Errorf("engine: reload: %w", err)
	}
	if installErr != nil {
		return installErr
	}

	e.config.Rules = cfg.Rules
	e.config.Buttons = cfg.Buttons
	e.config.Modules = cfg.Modules
	e.modules = modules
	e.logger.Info("gate engine reloaded", "modules", len(modules))
	return nil
}

// install hands modules, checkers and handlers to the manager and binds the
// configured buttons. It must run on the loop (or before Start).
func (e *Engine) install(cfg Config, modules []*gate.Config) error {
	checkers, err := checker.Build(cfg.Rules, checker.Deps{
		Attributes: e.attrs,
		Flags:      e.flags,
		Notice:     e.presentTip,
	})
	if err != nil {
		return fmt.Errorf("engine: rules: %w", err)
	}

	for _, b := range e.buttons {
		e.mgr.UnbindButton(b)
	}

	e.mgr.SetConfigs(modules...)
	e.mgr.SetCheckers(checkers)
	for _, m := range modules {
		e.mgr.RegisterHandler(m.Type, e.handler)
	}

	buttons := make(map[string]*widget.Button, len(cfg.Buttons))
	triggers := make(map[string]string, len(cfg.Buttons))
	for _, bc := range cfg.Buttons {
		btn, ok := e.buttons[bc.Name]
		if !ok {
			btn = widget.NewButton(bc.Name)
		}
		if err := e.mgr.BindButton(gate.ModuleID(bc.Module), btn, bc.Event); err != nil {
			e.logger.Warn("button not bound", "button", bc.Name, "error", err)
			continue
		}
		buttons[bc.Name] = btn
		triggers[bc.Name] = cmp.Or(bc.Event, gate.DefaultTriggerEvent)
	}
	e.buttons = buttons
	e.triggers = triggers
	return nil
}

func (e *Engine) presentTip(t gate.TipState) {
	e.logger.Info("module unavailable", "tip", t.String())
	e.bus.Dispatch(event.ModuleTip, t)
}

func tooltip(cfg *gate.Config) string {
	if cfg.Name == "" {
		return ""
	}
	return "Open " + cfg.Name
}

// Do runs fn on the engine loop with the manager and waits for it.
func (e *Engine) Do(ctx context.Context, fn func(m *gate.Manager)) error {
	return e.loop.Do(ctx, func() { fn(e.mgr) })
}

// Bus returns the notification bus.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Loop returns the task loop the manager runs on.
func (e *Engine) Loop() *loop.Loop { return e.loop }

// Attributes returns the attribute facts. Set must run on the loop.
func (e *Engine) Attributes() *checker.Attributes { return e.attrs }

// Flags returns the flag facts. Set must run on the loop.
func (e *Engine) Flags() *checker.Flags { return e.flags }

// Button returns the bound button called name. Call it on the loop.
func (e *Engine) Button(name string) (*widget.Button, bool) {
	b, ok := e.buttons[name]
	return b, ok
}

// ButtonNames returns the names of the bound buttons, sorted. Call it on
// the loop.
func (e *Engine) ButtonNames() []string {
	return slices.Sorted(maps.Keys(e.buttons))
}

// Press raises the configured trigger event on the named button. It
// reports false for an unknown button. Call it on the loop.
func (e *Engine) Press(name string) bool {
	b, ok := e.buttons[name]
	if !ok {
		return false
	}
	b.Emit(e.triggers[name])
	return true
}
