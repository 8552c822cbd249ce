// Package checker provides the built-in limit checkers: attribute minimums,
// time windows and feature flags. The facts they read live in Attributes and
// Flags, which announce every change on the event bus so the gate engine can
// re-poll hidden modules.
//
// Setters dispatch synchronously. When a gate.Manager listens on the same
// bus they must run on the manager's loop goroutine.
package checker

import (
	"maps"
	"slices"
	"sync"

	"github.com/flemzord/modgate/internal/event"
)

// Change describes one fact modification.
type Change struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

// Attributes is a set of named integer facts such as a player level.
type Attributes struct {
	bus *event.Bus

	mu     sync.RWMutex
	values map[string]int64
}

// NewAttributes creates an attribute set. bus may be nil.
func NewAttributes(bus *event.Bus, initial map[string]int64) *Attributes {
	values := make(map[string]int64, len(initial))
	maps.Copy(values, initial)
	return &Attributes{bus: bus, values: values}
}

// Get returns the value of name; unknown attributes are zero.
func (a *Attributes) Get(name string) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.values[name]
}

// Set stores v and, when the value changed, asks the engine to re-poll
// hidden modules. It reports whether the value changed.
func (a *Attributes) Set(name string, v int64) bool {
	a.mu.Lock()
	old, ok := a.values[name]
	if ok && old == v {
		a.mu.Unlock()
		return false
	}
	a.values[name] = v
	a.mu.Unlock()

	if a.bus != nil {
		a.bus.Dispatch(event.FactChanged, Change{Kind: "attribute", Name: name, Old: old, New: v})
		a.bus.Dispatch(event.ModuleNeedCheckShow, nil)
	}
	return true
}

// Snapshot returns a copy of every attribute.
func (a *Attributes) Snapshot() map[string]int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.values)
}

// Flags is a set of named boolean facts.
type Flags struct {
	bus *event.Bus

	mu  sync.RWMutex
	set map[string]struct{}
}

// NewFlags creates a flag set with the given flags raised. bus may be nil.
func NewFlags(bus *event.Bus, initial ...string) *Flags {
	set := make(map[string]struct{}, len(initial))
	for _, f := range initial {
		set[f] = struct{}{}
	}
	return &Flags{bus: bus, set: set}
}

// Has reports whether name is raised.
func (f *Flags) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.set[name]
	return ok
}

// Set raises or lowers name. It reports whether the flag changed.
func (f *Flags) Set(name string, on bool) bool {
	f.mu.Lock()
	_, had := f.set[name]
	if had == on {
		f.mu.Unlock()
		return false
	}
	if on {
		f.set[name] = struct{}{}
	} else {
		delete(f.set, name)
	}
	f.mu.Unlock()

	if f.bus != nil {
		f.bus.Dispatch(event.FactChanged, Change{Kind: "flag", Name: name, Old: had, New: on})
		f.bus.Dispatch(event.ModuleNeedCheckShow, nil)
	}
	return true
}

// List returns the raised flags, sorted.
func (f *Flags) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Sorted(maps.Keys(f.set))
}
