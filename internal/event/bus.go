// Package event provides the notification bus the gate engine broadcasts on.
// Delivery is synchronous and follows registration order.
package event

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Name identifies a notification.
type Name string

// Notifications broadcast by the gate engine and its collaborators.
const (
	// CheckerInited follows every full validation pass.
	CheckerInited Name = "module.checker_inited"

	// ModuleShow carries the gate.ModuleID that became show-eligible.
	ModuleShow Name = "module.show"

	// ModuleShowChanged carries the new size (int) of the unshown set.
	ModuleShowChanged Name = "module.show_changed"

	// ModuleTryToggle carries the gate.ModuleID a toggle was attempted on.
	// It fires before the outcome is known.
	ModuleTryToggle Name = "module.try_toggle"

	// ModuleToggleBlocked carries the gate.ModuleID whose toggle was refused
	// because the module is not openable.
	ModuleToggleBlocked Name = "module.toggle_blocked"

	// ModuleToggled carries the gate.ModuleID whose handler changed its show state.
	ModuleToggled Name = "module.toggled"

	// ModuleServerOpen and ModuleServerClose carry the gate.ModuleID whose
	// server-side flag changed.
	ModuleServerOpen  Name = "module.server_open"
	ModuleServerClose Name = "module.server_close"

	// ModuleNeedCheckShow asks the engine to re-poll hidden modules.
	// Collaborators dispatch it when something a checker reads has changed.
	ModuleNeedCheckShow Name = "module.need_check_show"

	// ModuleDiagnostic carries a gate.Diagnostic.
	ModuleDiagnostic Name = "module.diagnostic"

	// ModuleTip carries the gate.TipState shown to the user when a module
	// could not be opened.
	ModuleTip Name = "module.tip"

	// FactChanged carries a checker.Change after an attribute or flag
	// value was modified.
	FactChanged Name = "fact.changed"
)

// Event is what listeners receive.
type Event struct {
	Name    Name
	Payload any
}

// Listener handles a dispatched event.
type Listener func(Event)

type subscription struct {
	fn      Listener
	removed atomic.Bool
}

// Bus delivers events to every current listener, synchronously, in
// registration order. Listeners registered with OnAny run after the
// listeners registered for the specific name.
type Bus struct {
	mu     sync.RWMutex
	byName map[Name][]*subscription
	any    []*subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{byName: make(map[Name][]*subscription)}
}

// On registers fn for the named event. The returned func removes it;
// calling it more than once is harmless.
func (b *Bus) On(name Name, fn Listener) (off func()) {
	sub := &subscription{fn: fn}

	b.mu.Lock()
	b.byName[name] = append(b.byName[name], sub)
	b.mu.Unlock()

	return func() { b.remove(name, sub, false) }
}

// OnAny registers fn for every event.
func (b *Bus) OnAny(fn Listener) (off func()) {
	sub := &subscription{fn: fn}

	b.mu.Lock()
	b.any = append(b.any, sub)
	b.mu.Unlock()

	return func() { b.remove("", sub, true) }
}

func (b *Bus) remove(name Name, sub *subscription, wildcard bool) {
	if sub.removed.Swap(true) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if wildcard {
		b.any = slices.DeleteFunc(b.any, func(s *subscription) bool { return s == sub })
		return
	}
	subs := slices.DeleteFunc(b.byName[name], func(s *subscription) bool { return s == sub })
	if len(subs) == 0 {
		delete(b.byName, name)
		return
	}
	b.byName[name] = subs
}

// Dispatch delivers an event. A listener removed by an earlier listener of
// the same dispatch is skipped.
func (b *Bus) Dispatch(name Name, payload any) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.byName[name])+len(b.any))
	subs = append(subs, b.byName[name]...)
	subs = append(subs, b.any...)
	b.mu.RUnlock()

	evt := Event{Name: name, Payload: payload}
	for _, s := range subs {
		if s.removed.Load() {
			continue
		}
		s.fn(evt)
	}
}

// Len returns the number of listeners registered for name, wildcard
// listeners excluded.
func (b *Bus) Len(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byName[name])
}
