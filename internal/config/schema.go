// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for modgate.
package config

import "gopkg.in/yaml.v3"

// EngineComponent is the component every configuration must declare.
const EngineComponent = "gate.engine"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Components maps component IDs to their raw YAML configuration.
	// Keys must match registered component IDs (e.g. "gateway.http").
	Components map[string]yaml.Node `yaml:"components"`
}
