// Package journal implements the journal.sqlite component: every
// notification broadcast by the gate engine is recorded in a SQLite
// database (modernc.org/sqlite, no CGO) so operators can see what the engine
// decided and when.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/engine"
	"github.com/flemzord/modgate/internal/event"
)

// ID is the component ID of the journal.
const ID = "journal.sqlite"

// ServiceStore is the service name the Store is published under.
const ServiceStore = "journal.store"

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
)

// Component records bus notifications into a Store. The bus listener only
// queues; a writer goroutine does the SQL so the engine loop never waits on
// the disk.
type Component struct {
	config Config
	store  *Store
	logger *slog.Logger

	queue   chan event.Event
	quit    chan struct{}
	done    chan struct{}
	off     func()
	started bool
	dropped atomic.Int64
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
	if err := node.Decode(&c.config); err != nil {
		return fmt.Errorf("journal: decode config: %w", err)
	}
	c.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (c *Component) Provision(ctx *core.AppContext) error {
	c.config.defaults()
	c.logger = ctx.Logger

	if c.config.Path == "" {
		c.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	bus, err := core.ServiceAs[*event.Bus](ctx, engine.ServiceBus)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	store, err := Open(context.TODO(), c.config)
	if err != nil {
		return err
	}
	c.store = store

	c.queue = make(chan event.Event, c.config.Buffer)
	c.quit = make(chan struct{})
	c.done = make(chan struct{})
	c.off = bus.OnAny(c.enqueue)

	ctx.RegisterService(ServiceStore, store)

	c.logger.Info("journal provisioned",
		"path", c.config.Path,
		"wal", c.config.walEnabled(),
		"max_entries", c.config.MaxEntries,
	)
	return nil
}

// Validate implements core.Validator.
func (c *Component) Validate() error {
	if err := c.config.validate(); err != nil {
		return err
	}
	if err := c.store.Ping(context.TODO()); err != nil {
		return fmt.Errorf("journal: ping failed: %w", err)
	}
	return nil
}

// Start implements core.Starter.
func (c *Component) Start() error {
	c.started = true
	go c.write()
	return nil
}

// Stop implements core.Stopper. Queued notifications are flushed before
// the database is closed.
func (c *Component) Stop(ctx context.Context) error {
	if c.logger != nil {
		c.logger.Info("journal stopping", "dropped", c.dropped.Load())
	}
	if c.off != nil {
		c.off()
	}
	if c.store == nil {
		return nil
	}
	if !c.started {
		return c.store.Close()
	}
	close(c.quit)
	select {
	case <-c.done:
	case <-ctx.Done():
		return fmt.Errorf("journal: waiting for writer: %w", ctx.Err())
	}
	return c.store.Close()
}

// Store returns the underlying store.
func (c *Component) Store() *Store {
	return c.store
}

func (c *Component) enqueue(e event.Event) {
	select {
	case c.queue <- e:
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("journal queue full, dropping notifications")
		}
	}
}

func (c *Component) write() {
	defer close(c.done)
	for {
		select {
		case e := <-c.queue:
			c.record(e)
		case <-c.quit:
			for {
				select {
				case e := <-c.queue:
					c.record(e)
				default:
					return
				}
			}
		}
	}
}

func (c *Component) record(e event.Event) {
	entry, err := NewEntry(e)
	if err != nil {
		c.logger.Warn("journal entry skipped", "event", string(e.Name), "error", err)
		return
	}
	if err := c.store.Append(context.TODO(), entry); err != nil {
		c.logger.Error("journal write failed", "event", string(e.Name), "error", err)
	}
}
