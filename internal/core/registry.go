package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	components   = make(map[string]ComponentInfo)
	componentsMu sync.RWMutex
)

// RegisterComponent registers a component by reading its ComponentInfo.
// It panics if a component with the same ID is already registered or if the
// info is invalid. Intended to be called from init() functions.
func RegisterComponent(instance Component) {
	info := instance.ComponentInfo()
	if info.ID == "" {
		panic("component ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("component %s: New function must not be nil", info.ID))
	}

	componentsMu.Lock()
	defer componentsMu.Unlock()

	id := string(info.ID)
	if _, exists := components[id]; exists {
		panic(fmt.Sprintf("component already registered: %s", id))
	}
	components[id] = info
}

// GetComponent returns the ComponentInfo for the given ID, or false if not found.
func GetComponent(id string) (ComponentInfo, bool) {
	componentsMu.RLock()
	defer componentsMu.RUnlock()
	info, ok := components[id]
	return info, ok
}

// GetComponents returns all registered components sorted by ID.
func GetComponents() []ComponentInfo {
	componentsMu.RLock()
	defer componentsMu.RUnlock()

	result := make([]ComponentInfo, 0, len(components))
	for _, info := range components {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b ComponentInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// GetComponentsByNamespace returns all components whose ID starts with the
// given namespace prefix (e.g., "gateway" matches "gateway.http").
func GetComponentsByNamespace(namespace string) []ComponentInfo {
	prefix := namespace + "."

	componentsMu.RLock()
	defer componentsMu.RUnlock()

	var result []ComponentInfo
	for id, info := range components {
		if strings.HasPrefix(id, prefix) {
			result = append(result, info)
		}
	}
	slices.SortFunc(result, func(a, b ComponentInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	componentsMu.Lock()
	defer componentsMu.Unlock()
	components = make(map[string]ComponentInfo)
}
