package gate

import (
	"fmt"
	"slices"
)

// DefaultTriggerEvent is the widget event BindButton listens to when none
// is given.
const DefaultTriggerEvent = "tap"

// BindButton binds w to module id: triggering w toggles the module, and w is
// only visible while the module is show-eligible. A widget can be bound to
// one module only.
func (m *Manager) BindButton(id ModuleID, w Widget, triggerEvent ...string) error {
	if b, ok := m.bound[w]; ok {
		m.report(Diagnostic{
			Kind:    DiagDuplicateBinding,
			Modules: []ModuleID{b.id, id},
			Message: fmt.Sprintf("binding button to %s: already bound to %s", id, b.id),
		})
		return fmt.Errorf("%w: bound to %s", ErrDuplicateBinding, b.id)
	}
	cfg := m.byID[id]
	if cfg == nil {
		m.report(Diagnostic{
			Kind:    DiagUnknownModule,
			Modules: []ModuleID{id},
			Message: "binding button: no config for module " + string(id),
		})
		return fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}

	name := DefaultTriggerEvent
	if len(triggerEvent) > 0 && triggerEvent[0] != "" {
		name = triggerEvent[0]
	}

	m.widgets[id] = append(m.widgets[id], w)
	off := w.On(name, m.ioHandler)
	m.bound[w] = binding{id: id, off: off}

	if m.tooltip != nil {
		if text := m.tooltip(cfg); text != "" {
			m.tooltips[w] = text
			if t, ok := w.(Tooltipped); ok {
				t.SetTooltip(text)
			}
		}
	}

	if h, ok := m.handlersByType[cfg.Type]; ok {
		if _, has := m.handlersByID[id]; !has {
			m.handlersByID[id] = h
		}
	}

	if m.isShow(cfg) {
		m.removeUnshown(id)
		m.setWidgetsVisible(id, true)
	} else {
		w.SetVisible(false)
		m.addUnshown(id)
	}
	return nil
}

// UnbindButton detaches w from its module. It reports whether w was bound.
func (m *Manager) UnbindButton(w Widget) bool {
	b, ok := m.bound[w]
	if !ok {
		return false
	}
	if b.off != nil {
		b.off()
	}
	delete(m.bound, w)
	delete(m.tooltips, w)

	widgets := slices.DeleteFunc(m.widgets[b.id], func(x Widget) bool { return x == w })
	if len(widgets) == 0 {
		delete(m.widgets, b.id)
	} else {
		m.widgets[b.id] = widgets
	}
	return true
}

// ioHandler routes a widget trigger to the module the widget is bound to.
func (m *Manager) ioHandler(t Trigger) {
	b, ok := m.bound[t.Source]
	if !ok {
		return
	}
	m.Toggle(b.id, ToggleAuto)
}

// Widgets returns the widgets bound to id.
func (m *Manager) Widgets(id ModuleID) []Widget {
	return slices.Clone(m.widgets[id])
}

// BoundModule returns the module w is bound to.
func (m *Manager) BoundModule(w Widget) (ModuleID, bool) {
	b, ok := m.bound[w]
	return b.id, ok
}

// Tooltip returns the tooltip text registered for w.
func (m *Manager) Tooltip(w Widget) string {
	return m.tooltips[w]
}
