package gate

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flemzord/modgate/internal/event"
)

// ToggleOptions tunes a toggle.
type ToggleOptions struct {
	Direction Direction

	// Quiet suppresses the blocked notice.
	Quiet bool

	// Param is passed through to the handler.
	Param any
}

// Toggle opens or closes a module through its handler. It reports whether a
// handler method was invoked.
func (m *Manager) Toggle(id ModuleID, dir Direction) bool {
	return m.ToggleWith(id, ToggleOptions{Direction: dir})
}

// ToggleWith is Toggle with every option exposed.
func (m *Manager) ToggleWith(id ModuleID, opts ToggleOptions) bool {
	cfg := m.byID[id]
	if cfg == nil {
		m.report(Diagnostic{
			Kind:    DiagUnknownModule,
			Modules: []ModuleID{id},
			Message: "toggle: no config for module " + string(id),
		})
		return false
	}

	_, span := m.tracer.Start(context.Background(), "gate.toggle")
	defer span.End()
	span.SetAttributes(
		attribute.String("gate.module", string(id)),
		attribute.Int("gate.direction", int(opts.Direction)),
	)

	m.bus.Dispatch(event.ModuleTryToggle, id)

	if !m.isOpened(cfg, !opts.Quiet) {
		span.SetAttributes(attribute.Bool("gate.blocked", true))
		m.bus.Dispatch(event.ModuleToggleBlocked, id)
		return false
	}

	h, ok := m.Handler(cfg)
	if !ok || h == nil {
		m.logger.Debug("toggle: no handler", "module", string(id), "type", int(cfg.Type))
		return false
	}

	switch opts.Direction {
	case ToggleAuto:
		switch cfg.ShowState {
		case StateHide, StateHiding:
			h.Show(cfg, opts.Param)
		case StateShow, StateShowing:
			h.Hide(cfg, opts.Param)
		default:
			m.logger.Warn("toggle: unknown show state", "module", string(id), "state", cfg.ShowState.String())
			return false
		}
	case ToggleShow:
		h.Show(cfg, opts.Param)
	case ToggleHide:
		h.Hide(cfg, opts.Param)
	default:
		m.logger.Warn("toggle: unknown direction", "module", string(id), "direction", int(opts.Direction))
		return false
	}
	return true
}

// IsModuleShow reports whether the module's entry points may be visible.
func (m *Manager) IsModuleShow(ref Ref) bool {
	return m.isShow(m.Config(ref))
}

// IsModuleOpened reports whether the module may be used. With notify set, a
// refusal is explained to the user through the tip presenter or checker.
func (m *Manager) IsModuleOpened(ref Ref, notify bool) bool {
	return m.isOpened(m.Config(ref), notify)
}

// IsModuleShowID is IsModuleShow for a plain id, so callers can pass an
// untyped string constant.
func (m *Manager) IsModuleShowID(id ModuleID) bool {
	return m.isShow(m.byID[id])
}

// IsModuleOpenedID is IsModuleOpened for a plain id.
func (m *Manager) IsModuleOpenedID(id ModuleID, notify bool) bool {
	return m.isOpened(m.byID[id], notify)
}

func (m *Manager) isShow(cfg *Config) bool {
	if cfg == nil || cfg.Closed == HardClosed {
		return false
	}
	return m.ruleSatisfied(cfg.ShowRule, cfg.ShowLimits, false)
}

func (m *Manager) isOpened(cfg *Config, notify bool) bool {
	if cfg == nil {
		return false
	}
	if m.bypass {
		return true
	}
	if cfg.Closed != Open || !cfg.ServerOpen {
		if notify && m.tip != nil {
			m.tip(TipComingSoon)
		}
		return false
	}
	return m.ruleSatisfied(cfg.UsageRule, cfg.UsageLimits, notify)
}

// ruleSatisfied evaluates one rule. Before any checker set is installed
// every rule passes; afterwards a missing checker passes unless the manager
// is strict.
func (m *Manager) ruleSatisfied(rt RuleType, limits Limits, notify bool) bool {
	if rt == RuleNone || m.checkers == nil {
		return true
	}
	c, ok := m.Checker(rt)
	if !ok {
		return !m.strict
	}
	return c.Check(limits, notify)
}
