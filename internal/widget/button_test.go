package widget

import (
	"testing"

	"github.com/flemzord/modgate/internal/gate"
)

func TestButton_EmitReachesListeners(t *testing.T) {
	t.Parallel()

	b := NewButton("shop-button")
	if !b.Visible() || b.Name() != "shop-button" {
		t.Fatalf("new button: visible=%v name=%q", b.Visible(), b.Name())
	}

	var got []gate.Trigger
	off := b.On(gate.DefaultTriggerEvent, func(tr gate.Trigger) { got = append(got, tr) })
	b.On("press", func(gate.Trigger) { t.Error("press listener must not see taps") })

	b.Tap()
	if len(got) != 1 || got[0].Source != b || got[0].Event != gate.DefaultTriggerEvent {
		t.Fatalf("triggers = %+v", got)
	}

	off()
	b.Tap()
	if len(got) != 1 {
		t.Errorf("listener ran after off: %d", len(got))
	}
	if b.Listeners(gate.DefaultTriggerEvent) != 0 || b.Listeners("press") != 1 {
		t.Errorf("listeners = %d/%d", b.Listeners(gate.DefaultTriggerEvent), b.Listeners("press"))
	}
}

func TestButton_ListenerMayUnsubscribeDuringEmit(t *testing.T) {
	t.Parallel()

	b := NewButton("b")
	calls := 0
	var off func()
	off = b.On("tap", func(gate.Trigger) {
		calls++
		off()
	})
	b.Emit("tap")
	b.Emit("tap")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestButton_VisibilityAndTooltip(t *testing.T) {
	t.Parallel()

	b := NewButton("b")
	b.SetVisible(false)
	b.SetTooltip("Open Shop")
	if b.Visible() {
		t.Error("button should be hidden")
	}
	if b.Tooltip() != "Open Shop" {
		t.Errorf("tooltip = %q", b.Tooltip())
	}
}
