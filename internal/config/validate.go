package config

import (
	"errors"
	"fmt"

	"github.com/flemzord/modgate/internal/core"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, requires the gate engine component and
// checks that every referenced component ID exists in the registry.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if _, ok := cfg.Components[EngineComponent]; !ok {
		errs = append(errs, fmt.Errorf("config: component %q is required", EngineComponent))
	}

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetComponent(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown component %q", id))
		}
	}

	return errors.Join(errs...)
}
