// Package recheck implements the recheck.cron component. Some limits change
// without any notification, a schedule window opening for instance, so the
// engine is asked to re-poll hidden modules on a cron schedule
// (robfig/cron).
package recheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/engine"
	"github.com/flemzord/modgate/internal/gate"
	"github.com/flemzord/modgate/internal/telemetry"
)

// ID is the component ID of the re-check scheduler.
const ID = "recheck.cron"

// Job names.
const (
	JobShowCheck  = "show-check"
	JobValidation = "validation"
)

const (
	defaultSchedule = "@every 30s"
	defaultTimeout  = 5 * time.Second
)

func init() {
	core.RegisterComponent(&Component{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Component)(nil)
	_ core.Provisioner  = (*Component)(nil)
	_ core.Validator    = (*Component)(nil)
	_ core.Starter      = (*Component)(nil)
	_ core.Stopper      = (*Component)(nil)
	_ core.Reloader     = (*Component)(nil)
)

// Config holds the recheck.cron section.
type Config struct {
	// Schedule drives the show re-check. Defaults to "@every 30s".
	Schedule string `yaml:"schedule"`

	// Validation optionally drives full validation passes. Empty disables.
	Validation string `yaml:"validation"`

	// Timeout bounds how long a job waits for the engine loop.
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Schedule == "" {
		c.Schedule = defaultSchedule
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	errs := []error{ParseSchedule(c.Schedule)}
	if c.Validation != "" {
		errs = append(errs, ParseSchedule(c.Validation))
	}
	return errors.Join(errs...)
}

// Engine runs work on the gate engine loop. *engine.Engine implements it.
type Engine interface {
	Do(ctx context.Context, fn func(m *gate.Manager)) error
}

// engineJob posts one manager request on the engine loop.
type engineJob struct {
	name     string
	schedule string
	timeout  time.Duration
	engine   Engine
	request  func(m *gate.Manager)
}

func (j *engineJob) Name() string     { return j.name }
func (j *engineJob) Schedule() string { return j.schedule }

func (j *engineJob) Run(ctx context.Context) error {
	ctx, span := telemetry.Tracer("recheck").Start(ctx, "recheck."+j.name)
	defer span.End()
	span.SetAttributes(attribute.String("recheck.schedule", j.schedule))

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if err := j.engine.Do(ctx, j.request); err != nil {
		span.RecordError(err)
		return fmt.Errorf("recheck: %s: %w", j.name, err)
	}
	return nil
}

// Component schedules engine re-checks.
type Component struct {
	config    Config
	logger    *slog.Logger
	engine    Engine
	scheduler *Scheduler
}

// ComponentInfo implements core.Component.
func (c *Component) ComponentInfo() core.ComponentInfo {
	return core.ComponentInfo{
		ID:  ID,
		New: func() core.Component { return &Component{} },
	}
}

// Configure implements core.Configurable.
func (c *Component) Configure(node *yaml.Node) error {
	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return fmt.Errorf("recheck: decode config: %w", err)
	}
	c.config = cfg
	return nil
}

// Provision implements core.Provisioner.
func (c *Component) Provision(ctx *core.AppContext) error {
	c.config.defaults()
	c.logger = ctx.Logger

	eng, err := core.ServiceAs[*engine.Engine](ctx, engine.ServiceEngine)
	if err != nil {
		return fmt.Errorf("recheck: %w", err)
	}
	c.engine = eng
	return nil
}

// Validate implements core.Validator.
func (c *Component) Validate() error {
	return c.config.validate()
}

// Start implements core.Starter.
func (c *Component) Start() error {
	s, err := c.newScheduler(c.config)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	c.scheduler = s
	return nil
}

// Stop implements core.Stopper.
func (c *Component) Stop(ctx context.Context) error {
	if c.scheduler == nil {
		return nil
	}
	err := c.scheduler.Stop(ctx)
	c.scheduler = nil
	return err
}

// Reload implements core.Reloader. The scheduler is rebuilt when the
// schedules changed.
func (c *Component) Reload(ctx *core.AppContext) error {
	var cfg Config
	if node, ok := ctx.ComponentConfig(ID); ok {
		if err := node.Decode(&cfg); err != nil {
			return fmt.Errorf("recheck: decode config: %w", err)
		}
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return err
	}
	if cfg == c.config {
		return nil
	}

	if err := c.Stop(context.Background()); err != nil {
		return err
	}
	c.config = cfg
	c.logger.Info("recheck schedules changed",
		"schedule", cfg.Schedule,
		"validation", cfg.Validation,
	)
	return c.Start()
}

// RunNow runs the named job once, outside its schedule.
func (c *Component) RunNow(ctx context.Context, name string) (bool, error) {
	if c.scheduler == nil {
		return false, nil
	}
	return c.scheduler.RunNow(ctx, name)
}

func (c *Component) newScheduler(cfg Config) (*Scheduler, error) {
	s := NewScheduler(c.logger)
	jobs := []Job{&engineJob{
		name:     JobShowCheck,
		schedule: cfg.Schedule,
		timeout:  cfg.Timeout,
		engine:   c.engine,
		request:  (*gate.Manager).RequestShowCheck,
	}}
	if cfg.Validation != "" {
		jobs = append(jobs, &engineJob{
			name:     JobValidation,
			schedule: cfg.Validation,
			timeout:  cfg.Timeout,
			engine:   c.engine,
			request:  (*gate.Manager).RequestValidation,
		})
	}
	for _, j := range jobs {
		if err := s.RegisterJob(j); err != nil {
			return nil, err
		}
	}
	return s, nil
}
