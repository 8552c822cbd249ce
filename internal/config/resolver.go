package config

import "slices"

// Resolve returns a sorted list of component IDs from the configuration.
// The deterministic order ensures consistent loading: gate.engine sorts
// ahead of the components that consume its services.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Components))
	for id := range cfg.Components {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
