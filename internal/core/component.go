// Package core provides the component system modgate is assembled from.
//
// A component registers a ComponentInfo from an init function. The daemon
// instantiates the components named in the configuration and drives them
// through Configure, Provision, Validate, Start, Reload and Stop.
package core

import "strings"

// ComponentID identifies a component, namespaced with dots
// (e.g. "gate.engine", "gateway.http").
type ComponentID string

// Namespace returns the part of the ID before the last dot.
func (id ComponentID) Namespace() string {
	s := string(id)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return ""
}

// Name returns the part of the ID after the last dot.
func (id ComponentID) Name() string {
	s := string(id)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ComponentInfo describes a registrable component.
type ComponentInfo struct {
	// ID is the unique, namespaced component identifier.
	ID ComponentID

	// New returns a fresh, unconfigured instance.
	New func() Component
}

// Component is implemented by every registrable component.
type Component interface {
	ComponentInfo() ComponentInfo
}
