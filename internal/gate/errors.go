package gate

import "errors"

// Sentinel errors for gate operations.
var (
	// ErrUnknownModule indicates an id that has no configuration.
	ErrUnknownModule = errors.New("gate: unknown module")

	// ErrDuplicateBinding indicates a widget that is already bound to a module.
	ErrDuplicateBinding = errors.New("gate: widget already bound")

	// ErrNoScheduler indicates Options without a Scheduler.
	ErrNoScheduler = errors.New("gate: scheduler is required")
)
