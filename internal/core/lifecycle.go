package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by components that accept YAML configuration.
// Called after instantiation and before Provision(). The node holds the
// component's section of the components: mapping.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by components that need setup after
// instantiation. Components publish what they own through
// AppContext.RegisterService here and discover what earlier components
// published.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by components that can verify their configuration
// is complete and correct. Called after Provision(). Validate must not have
// side effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by components that run background work
// (goroutines, listeners, connections). Called after every component is
// provisioned and validated.
type Starter interface {
	Start() error
}

// Stopper is implemented by components that need to clean up resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader is implemented by components that support live configuration reload.
type Reloader interface {
	Reload(ctx *AppContext) error
}
