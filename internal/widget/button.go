// Package widget provides a headless button that satisfies gate.Widget.
// The daemon binds one per configured button; tests use it as a fake.
package widget

import (
	"slices"
	"sync"

	"github.com/flemzord/modgate/internal/gate"
)

type listener struct {
	fn func(gate.Trigger)
}

// Button is a named, headless interaction object.
type Button struct {
	name string

	mu        sync.Mutex
	visible   bool
	tooltip   string
	listeners map[string][]*listener
}

// Compile-time interface guards.
var (
	_ gate.Widget     = (*Button)(nil)
	_ gate.Tooltipped = (*Button)(nil)
)

// NewButton creates a visible button.
func NewButton(name string) *Button {
	return &Button{
		name:      name,
		visible:   true,
		listeners: make(map[string][]*listener),
	}
}

// Name returns the button name.
func (b *Button) Name() string { return b.name }

// SetVisible implements gate.Widget.
func (b *Button) SetVisible(visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = visible
}

// Visible implements gate.Widget.
func (b *Button) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// SetTooltip implements gate.Tooltipped.
func (b *Button) SetTooltip(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tooltip = text
}

// Tooltip returns the current tooltip text.
func (b *Button) Tooltip() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tooltip
}

// On implements gate.Widget.
func (b *Button) On(event string, fn func(gate.Trigger)) func() {
	l := &listener{fn: fn}

	b.mu.Lock()
	b.listeners[event] = append(b.listeners[event], l)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.listeners[event] = slices.DeleteFunc(b.listeners[event], func(x *listener) bool { return x == l })
	}
}

// Listeners returns the number of listeners registered for event.
func (b *Button) Listeners(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}

// Emit raises event on the button. Hidden buttons still deliver, matching a
// programmatic dispatch; gating happens in the module manager.
func (b *Button) Emit(event string) {
	b.mu.Lock()
	ls := slices.Clone(b.listeners[event])
	b.mu.Unlock()

	t := gate.Trigger{Event: event, Source: b}
	for _, l := range ls {
		l.fn(t)
	}
}

// Tap raises the default trigger event.
func (b *Button) Tap() {
	b.Emit(gate.DefaultTriggerEvent)
}
