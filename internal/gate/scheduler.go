package gate

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flemzord/modgate/internal/event"
)

// RequestValidation schedules a full validation pass on the next tick.
// Requests made before the pass runs collapse into one pass.
func (m *Manager) RequestValidation() {
	if m.needCheck {
		return
	}
	m.needCheck = true
	m.sched.CallLater(m.checkLimits)
}

// RequestShowCheck schedules a pass over the modules that are not shown yet.
// Requests made before the pass runs collapse into one pass.
func (m *Manager) RequestShowCheck() {
	if m.needCheckShow {
		return
	}
	m.needCheckShow = true
	m.sched.CallLater(m.checkShow)
}

// checkLimits is the full validation pass. It runs against whatever configs
// and checkers are installed when it executes.
func (m *Manager) checkLimits() {
	if !m.needCheck {
		return
	}
	m.needCheck = false

	if m.checkers == nil {
		m.logger.Debug("validation skipped: no checkers installed")
		return
	}

	_, span := m.tracer.Start(context.Background(), "gate.check_limits")
	defer span.End()

	var (
		mismatched []ModuleID
		adjusted   []ModuleID
		unresolved []ModuleID
		missing    []string
	)

	for _, id := range m.order {
		cfg := m.byID[id]

		var checker LimitChecker
		if cfg.ShowRule != RuleNone {
			c, ok := m.Checker(cfg.ShowRule)
			if !ok {
				unresolved = appendOnce(unresolved, id)
				missing = append(missing, fmt.Sprintf("%s(show:%d)", id, cfg.ShowRule))
			}
			checker = c
		}
		if cfg.UsageRule != RuleNone {
			c, ok := m.Checker(cfg.UsageRule)
			if !ok {
				unresolved = appendOnce(unresolved, id)
				missing = append(missing, fmt.Sprintf("%s(usage:%d)", id, cfg.UsageRule))
			}
			checker = c
		}

		if cfg.ShowRule == cfg.UsageRule {
			if cfg.ShowRule != RuleNone && checker != nil {
				if checker.AdjustLimits(cfg.ShowLimits, cfg.UsageLimits) {
					adjusted = append(adjusted, id)
				}
			}
		} else {
			mismatched = append(mismatched, id)
		}

		if !m.isShow(cfg) {
			m.addUnshown(id)
			m.setWidgetsVisible(id, false)
		}
	}

	m.pruneUnshown()

	if len(mismatched) > 0 {
		m.reportOnce(Diagnostic{
			Kind:    DiagRuleMismatch,
			Modules: mismatched,
			Message: "show and usage rule types differ, a usable module may stay invisible: " + joinIDs(mismatched),
		})
	}
	if len(adjusted) > 0 {
		m.reportOnce(Diagnostic{
			Kind:    DiagLimitsAdjusted,
			Modules: adjusted,
			Message: "show and usage limits were inconsistent and have been corrected: " + joinIDs(adjusted),
		})
	}
	if len(missing) > 0 {
		m.reportOnce(Diagnostic{
			Kind:    DiagMissingChecker,
			Modules: unresolved,
			Message: "no checker registered for rule types: " + strings.Join(missing, " "),
		})
	}

	span.SetAttributes(
		attribute.Int("gate.modules", len(m.order)),
		attribute.Int("gate.unshown", len(m.unshown)),
	)

	for _, id := range m.unshown {
		if m.isShow(m.byID[id]) {
			m.RequestShowCheck()
			break
		}
	}
	// A new checker or config can make a module openable without changing
	// its show state; its queued callbacks drain in the show pass.
	for _, id := range m.order {
		if cfg := m.byID[id]; len(cfg.onOpen) > 0 && m.isOpened(cfg, false) {
			m.RequestShowCheck()
			break
		}
	}

	m.bus.Dispatch(event.CheckerInited, nil)
}

// checkShow is the incremental pass over the unshown set.
func (m *Manager) checkShow() {
	if !m.needCheckShow {
		return
	}
	m.needCheckShow = false

	_, span := m.tracer.Start(context.Background(), "gate.check_show")
	defer span.End()

	changed := false
	snapshot := slices.Clone(m.unshown)
	for i := len(snapshot) - 1; i >= 0; i-- {
		id := snapshot[i]
		if !m.isUnshown(id) {
			continue
		}
		cfg := m.byID[id]
		if cfg == nil {
			m.removeUnshown(id)
			continue
		}
		if !m.isShow(cfg) {
			continue
		}
		m.setWidgetsVisible(id, true)
		m.removeUnshown(id)
		changed = true
		m.bus.Dispatch(event.ModuleShow, id)
	}

	fired := m.drainOpenCallbacks()

	span.SetAttributes(
		attribute.Bool("gate.changed", changed),
		attribute.Int("gate.callbacks", fired),
	)

	if changed {
		m.bus.Dispatch(event.ModuleShowChanged, len(m.unshown))
	}
}

// drainOpenCallbacks runs and clears the queued callbacks of every module
// that is openable now. The list is detached before running so a callback
// that registers again is queued for the next transition.
func (m *Manager) drainOpenCallbacks() int {
	fired := 0
	for _, id := range slices.Clone(m.order) {
		cfg := m.byID[id]
		if cfg == nil || len(cfg.onOpen) == 0 {
			continue
		}
		if !m.isOpened(cfg, false) {
			continue
		}
		pending := cfg.onOpen
		cfg.onOpen = nil
		for _, cb := range pending {
			cb.Execute()
			fired++
		}
	}
	return fired
}

// Unshown returns the ids currently known not to be show-eligible.
func (m *Manager) Unshown() []ModuleID {
	return slices.Clone(m.unshown)
}

// UnshownLen returns the size of the unshown set.
func (m *Manager) UnshownLen() int {
	return len(m.unshown)
}

func (m *Manager) isUnshown(id ModuleID) bool {
	_, ok := m.unshownSet[id]
	return ok
}

func (m *Manager) addUnshown(id ModuleID) {
	if m.isUnshown(id) {
		return
	}
	m.unshownSet[id] = struct{}{}
	m.unshown = append(m.unshown, id)
}

func (m *Manager) removeUnshown(id ModuleID) bool {
	if !m.isUnshown(id) {
		return false
	}
	delete(m.unshownSet, id)
	m.unshown = slices.DeleteFunc(m.unshown, func(u ModuleID) bool { return u == id })
	return true
}

// pruneUnshown drops ids whose config is gone.
func (m *Manager) pruneUnshown() {
	for _, id := range slices.Clone(m.unshown) {
		if _, ok := m.byID[id]; !ok {
			m.removeUnshown(id)
		}
	}
}

func (m *Manager) setWidgetsVisible(id ModuleID, visible bool) {
	for _, w := range m.widgets[id] {
		w.SetVisible(visible)
	}
}

func appendOnce(ids []ModuleID, id ModuleID) []ModuleID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
