// Package gate decides, for every configured module, whether its entry
// points may be shown and whether it may be opened, and keeps bound widgets
// in sync with that decision.
//
// A Manager is not safe for concurrent use. All calls, including the
// deferred passes it schedules, must happen on one task queue (see the loop
// package).
package gate

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/modgate/internal/event"
)

const tracerName = "github.com/flemzord/modgate/internal/gate"

// Options configures a Manager.
type Options struct {
	// Scheduler runs the deferred validation passes. Required.
	Scheduler Scheduler

	// Bus receives notifications. A private bus is created when nil.
	Bus *event.Bus

	Logger *slog.Logger

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer

	// Bypass skips client-side usage checks: every module is openable.
	// Show checks still apply.
	Bypass bool

	// Strict treats a rule type without a registered checker as not
	// satisfied instead of unrestricted.
	Strict bool

	// TipPresenter is told why a module could not be opened.
	TipPresenter TipPresenter

	// TooltipFactory builds tooltip text for newly bound widgets.
	TooltipFactory TooltipFactory

	// OnDiagnostic receives every diagnostic after it is logged.
	OnDiagnostic func(Diagnostic)
}

type binding struct {
	id  ModuleID
	off func()
}

// Manager is the module gate: registry of module configs, limit checkers
// and handlers, widget binder, validation scheduler and toggle state machine.
type Manager struct {
	sched        Scheduler
	bus          *event.Bus
	logger       *slog.Logger
	tracer       trace.Tracer
	bypass       bool
	strict       bool
	tip          TipPresenter
	tooltip      TooltipFactory
	onDiagnostic func(Diagnostic)

	order    []ModuleID
	byID     map[ModuleID]*Config
	checkers Checkers

	handlersByType map[ModuleType]Handler
	handlersByID   map[ModuleID]Handler

	widgets  map[ModuleID][]Widget
	bound    map[Widget]binding
	tooltips map[Widget]string

	unshown    []ModuleID
	unshownSet map[ModuleID]struct{}

	needCheck     bool
	needCheckShow bool
	reported      map[DiagKind]string

	offNeedCheckShow func()
}

// New creates a Manager. Call Init before use.
func New(opts Options) (*Manager, error) {
	if opts.Scheduler == nil {
		return nil, ErrNoScheduler
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Manager{
		sched:          opts.Scheduler,
		bus:            bus,
		logger:         logger.With("component", "gate"),
		tracer:         tracer,
		bypass:         opts.Bypass,
		strict:         opts.Strict,
		tip:            opts.TipPresenter,
		tooltip:        opts.TooltipFactory,
		onDiagnostic:   opts.OnDiagnostic,
		byID:           make(map[ModuleID]*Config),
		handlersByType: make(map[ModuleType]Handler),
		handlersByID:   make(map[ModuleID]Handler),
		widgets:        make(map[ModuleID][]Widget),
		bound:          make(map[Widget]binding),
		tooltips:       make(map[Widget]string),
		unshownSet:     make(map[ModuleID]struct{}),
		reported:       make(map[DiagKind]string),
	}, nil
}

// Init subscribes the manager to show re-check requests on the bus.
func (m *Manager) Init() {
	if m.offNeedCheckShow != nil {
		return
	}
	m.offNeedCheckShow = m.bus.On(event.ModuleNeedCheckShow, func(event.Event) {
		m.RequestShowCheck()
	})
}

// Close removes the bus subscription installed by Init.
func (m *Manager) Close() {
	if m.offNeedCheckShow != nil {
		m.offNeedCheckShow()
		m.offNeedCheckShow = nil
	}
}

// Bus returns the bus notifications are dispatched on.
func (m *Manager) Bus() *event.Bus {
	return m.bus
}

// SetConfigs replaces every module configuration. The argument order is the
// processing order of validation passes. A full validation pass is
// scheduled.
//
// Open callbacks queued on a replaced config move to the new config with the
// same id. Callbacks of a module that is no longer configured are dropped.
func (m *Manager) SetConfigs(cfgs ...*Config) {
	order := make([]ModuleID, 0, len(cfgs))
	byID := make(map[ModuleID]*Config, len(cfgs))
	var dups []ModuleID

	for _, cfg := range cfgs {
		if cfg == nil {
			continue
		}
		if cfg.ShowLimits == nil {
			cfg.ShowLimits = Limits{}
		}
		if cfg.UsageLimits == nil {
			cfg.UsageLimits = Limits{}
		}
		if _, exists := byID[cfg.ID]; exists {
			dups = append(dups, cfg.ID)
		} else {
			order = append(order, cfg.ID)
		}
		byID[cfg.ID] = cfg
	}
	for id, cfg := range byID {
		if old := m.byID[id]; old != nil && old != cfg {
			cfg.adoptCallbacks(old)
		}
	}

	m.order = order
	m.byID = byID
	clear(m.reported)

	if len(dups) > 0 {
		m.report(Diagnostic{
			Kind:    DiagDuplicateConfig,
			Modules: dups,
			Message: "duplicate module configs, the last one wins: " + joinIDs(dups),
		})
	}
	m.logger.Info("module configs installed", "modules", len(order))
	m.RequestValidation()
}

// Config resolves a module reference. It returns nil for an unknown id;
// callers treat that as "unknown module", not as a failure.
func (m *Manager) Config(ref Ref) *Config {
	switch r := ref.(type) {
	case ModuleID:
		return m.byID[r]
	case *Config:
		return r
	default:
		return nil
	}
}

// Configs returns every module config in installation order.
func (m *Manager) Configs() []*Config {
	out := make([]*Config, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// SetCheckers replaces the whole checker set and schedules a full
// validation pass.
func (m *Manager) SetCheckers(checkers Checkers) {
	cp := make(Checkers, len(checkers))
	for rt, c := range checkers {
		cp[rt] = c
	}
	m.checkers = cp
	clear(m.reported)
	m.logger.Info("limit checkers installed", "checkers", len(cp))
	m.RequestValidation()
}

// Checker returns the checker registered for rt.
func (m *Manager) Checker(rt RuleType) (LimitChecker, bool) {
	c, ok := m.checkers[rt]
	return c, ok && c != nil
}

// RegisterHandler registers the handler of every module of type t that has
// no id-level handler.
func (m *Manager) RegisterHandler(t ModuleType, h Handler) {
	m.handlersByType[t] = h
}

// RegisterHandlerByID registers the handler of one module.
func (m *Manager) RegisterHandlerByID(id ModuleID, h Handler) error {
	if _, ok := m.byID[id]; !ok {
		m.report(Diagnostic{
			Kind:    DiagUnknownModule,
			Modules: []ModuleID{id},
			Message: "registering handler: no config for module " + string(id),
		})
		return fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	m.handlersByID[id] = h
	return nil
}

// Handler returns the handler toggles of cfg are dispatched to: the
// id-level handler first, then the type-level one.
func (m *Manager) Handler(cfg *Config) (Handler, bool) {
	if h, ok := m.handlersByID[cfg.ID]; ok {
		return h, true
	}
	h, ok := m.handlersByType[cfg.Type]
	return h, ok
}

// ServerChangeModuleState records the server-side open flag of a module.
// Nothing happens when the module is unknown or the flag is unchanged.
func (m *Manager) ServerChangeModuleState(id ModuleID, open bool) {
	cfg := m.byID[id]
	if cfg == nil {
		m.logger.Debug("server state for unknown module ignored", "module", string(id))
		return
	}
	if cfg.ServerOpen == open {
		return
	}
	cfg.ServerOpen = open
	if open {
		m.bus.Dispatch(event.ModuleServerOpen, id)
	} else {
		m.bus.Dispatch(event.ModuleServerClose, id)
	}
	m.RequestShowCheck()
}

// RegisterOpenCallback runs cb now when the module is openable, otherwise
// queues it until the module becomes openable. A callback already queued for
// the module is not queued again.
func (m *Manager) RegisterOpenCallback(id ModuleID, cb *Callback) error {
	cfg := m.byID[id]
	if cfg == nil {
		m.report(Diagnostic{
			Kind:    DiagUnknownModule,
			Modules: []ModuleID{id},
			Message: "registering open callback: no config for module " + string(id),
		})
		return fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	if m.isOpened(cfg, false) {
		cb.Execute()
		return nil
	}
	for _, queued := range cfg.onOpen {
		if queued == cb {
			return nil
		}
	}
	cfg.onOpen = append(cfg.onOpen, cb)
	return nil
}
