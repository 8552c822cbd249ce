package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/engine"
	"github.com/flemzord/modgate/internal/event"
	"github.com/flemzord/modgate/internal/gate"
)

func TestComponent_RecordsBus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	appCtx := core.NewAppContext(nil, dir)
	bus := event.NewBus()
	appCtx.RegisterService(engine.ServiceBus, bus)

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("max_entries: 100\n"), &node); err != nil {
		t.Fatal(err)
	}

	c := &Component{}
	if err := c.Configure(node.Content[0]); err != nil {
		t.Fatal(err)
	}
	if err := c.Provision(appCtx.ForComponent(ID)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	if _, err := core.ServiceAs[*Store](appCtx, ServiceStore); err != nil {
		t.Errorf("store service: %v", err)
	}

	bus.Dispatch(event.ModuleShow, gate.ModuleID("shop"))
	bus.Dispatch(event.ModuleShowChanged, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	bus.Dispatch(event.ModuleShow, gate.ModuleID("late"))

	s, err := Open(context.Background(), Config{Path: filepath.Join(dir, defaultDBFile)})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2 (flushed on stop, nothing after)", n)
	}
}

func TestComponent_RequiresBus(t *testing.T) {
	t.Parallel()

	c := &Component{}
	if err := c.Provision(core.NewAppContext(nil, t.TempDir())); err == nil {
		t.Fatal("expected error without the engine bus")
	}
}
