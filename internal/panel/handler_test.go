package panel

import (
	"testing"

	"github.com/flemzord/modgate/internal/event"
	"github.com/flemzord/modgate/internal/gate"
)

func TestHandler_ShowHide(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	var got []Toggled
	bus.On(event.ModuleToggled, func(e event.Event) { got = append(got, e.Payload.(Toggled)) })

	h := NewHandler(bus, nil)
	cfg := &gate.Config{ID: "bag"}

	h.Show(cfg, "tab")
	if cfg.ShowState != gate.StateShow {
		t.Errorf("state = %v, want show", cfg.ShowState)
	}
	h.Show(cfg, nil)
	h.Hide(cfg, nil)
	if cfg.ShowState != gate.StateHide {
		t.Errorf("state = %v, want hide", cfg.ShowState)
	}

	if len(got) != 2 {
		t.Fatalf("toggled events = %d, want 2", len(got))
	}
	if got[0].Module != "bag" || got[0].State != "show" || got[0].Param != "tab" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].State != "hide" {
		t.Errorf("second event = %+v", got[1])
	}
}
