package engine

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/modgate/internal/gate"
)

// Config is the gate.engine section of the configuration file.
type Config struct {
	// Bypass makes every module openable; show rules still apply.
	Bypass bool `yaml:"bypass"`

	// Strict treats rules without a checker as unsatisfied.
	Strict bool `yaml:"strict"`

	// Rules maps a rule type to a checker kind (attribute, schedule, flag).
	Rules map[gate.RuleType]string `yaml:"rules"`

	// Attributes and Flags seed the facts the checkers read.
	Attributes map[string]int64 `yaml:"attributes"`
	Flags      []string         `yaml:"flags"`

	// Modules is an ordered mapping of module id to ModuleConfig.
	Modules yaml.Node `yaml:"modules"`

	Buttons []ButtonConfig `yaml:"buttons"`
}

// ModuleConfig is one entry of the modules mapping.
type ModuleConfig struct {
	Type        gate.ModuleType `yaml:"type"`
	Name        string          `yaml:"name"`
	ShowRule    gate.RuleType   `yaml:"show_rule"`
	UsageRule   gate.RuleType   `yaml:"usage_rule"`
	ShowLimits  map[string]any  `yaml:"show_limits"`
	UsageLimits map[string]any  `yaml:"usage_limits"`
	Closed      string          `yaml:"closed"`
	ServerOpen  bool            `yaml:"server_open"`
}

// ButtonConfig binds a named headless button to a module.
type ButtonConfig struct {
	Name   string `yaml:"name"`
	Module string `yaml:"module"`
	Event  string `yaml:"event"`
}

func decodeConfig(node *yaml.Node) (Config, error) {
	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("engine: decoding config: %w", err)
	}
	return cfg, nil
}

// moduleConfigs converts the modules mapping into gate configs, keeping the
// file order.
func (c *Config) moduleConfigs() ([]*gate.Config, error) {
	if c.Modules.Kind == 0 {
		return nil, nil
	}
	if c.Modules.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("engine: modules must be a mapping (line %d)", c.Modules.Line)
	}

	var (
		out  []*gate.Config
		errs []error
	)
	for i := 0; i+1 < len(c.Modules.Content); i += 2 {
		key, val := c.Modules.Content[i], c.Modules.Content[i+1]
		id := gate.ModuleID(key.Value)
		if id == "" {
			errs = append(errs, fmt.Errorf("engine: module with empty id (line %d)", key.Line))
			continue
		}

		var mc ModuleConfig
		if err := val.Decode(&mc); err != nil {
			errs = append(errs, fmt.Errorf("engine: module %s: %w", id, err))
			continue
		}
		closed, err := gate.ParseCloseState(mc.Closed)
		if err != nil {
			errs = append(errs, fmt.Errorf("engine: module %s: %w", id, err))
			continue
		}

		out = append(out, &gate.Config{
			ID:          id,
			Type:        mc.Type,
			Name:        mc.Name,
			ShowRule:    mc.ShowRule,
			UsageRule:   mc.UsageRule,
			ShowLimits:  mc.ShowLimits,
			UsageLimits: mc.UsageLimits,
			Closed:      closed,
			ServerOpen:  mc.ServerOpen,
		})
	}
	return out, errors.Join(errs...)
}

// validateButtons checks names are unique and every button targets a
// configured module.
func validateButtons(buttons []ButtonConfig, modules []*gate.Config) error {
	known := make(map[gate.ModuleID]bool, len(modules))
	for _, m := range modules {
		known[m.ID] = true
	}

	var errs []error
	seen := make(map[string]bool, len(buttons))
	for i, b := range buttons {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("engine: buttons[%d]: name is required", i))
			continue
		}
		if seen[b.Name] {
			errs = append(errs, fmt.Errorf("engine: buttons[%d]: duplicate name %q", i, b.Name))
		}
		seen[b.Name] = true
		if !known[gate.ModuleID(b.Module)] {
			errs = append(errs, fmt.Errorf("engine: button %q: unknown module %q", b.Name, b.Module))
		}
	}
	return errors.Join(errs...)
}
