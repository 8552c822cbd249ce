package gate_test

import (
	"errors"
	"testing"

	"github.com/flemzord/modgate/internal/gate"
	"github.com/flemzord/modgate/internal/gate/gatetest"
	"github.com/flemzord/modgate/internal/widget"
)

func TestBindButton_TapTogglesModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mgr.SetConfigs(&gate.Config{ID: "bag", Type: 1, ServerOpen: true})
	h := &gatetest.MockHandler{TrackState: true}
	f.mgr.RegisterHandler(1, h)

	btn := widget.NewButton("bag")
	if err := f.mgr.BindButton("bag", btn); err != nil {
		t.Fatalf("BindButton: %v", err)
	}

	btn.Tap()
	btn.Tap()
	if len(h.Calls) != 2 || h.Calls[0].Method != "show" || h.Calls[1].Method != "hide" {
		t.Errorf("calls = %+v, want show then hide", h.Calls)
	}
	if id, ok := f.mgr.BoundModule(btn); !ok || id != "bag" {
		t.Errorf("BoundModule = %q, %v", id, ok)
	}
}

func TestBindButton_CustomTriggerEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mgr.SetConfigs(&gate.Config{ID: "bag", ServerOpen: true})
	h := &gatetest.MockHandler{}
	if err := f.mgr.RegisterHandlerByID("bag", h); err != nil {
		t.Fatal(err)
	}

	btn := widget.NewButton("bag")
	if err := f.mgr.BindButton("bag", btn, "long_press"); err != nil {
		t.Fatal(err)
	}

	btn.Tap()
	if len(h.Calls) != 0 {
		t.Fatal("tap should not trigger a long_press binding")
	}
	btn.Emit("long_press")
	if len(h.Calls) != 1 {
		t.Errorf("calls = %d, want 1", len(h.Calls))
	}
}

func TestBindButton_Duplicate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mgr.SetConfigs(
		&gate.Config{ID: "bag", ServerOpen: true},
		&gate.Config{ID: "mail", ServerOpen: true},
	)
	bag := &gatetest.MockHandler{}
	mail := &gatetest.MockHandler{}
	if err := f.mgr.RegisterHandlerByID("bag", bag); err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.RegisterHandlerByID("mail", mail); err != nil {
		t.Fatal(err)
	}

	btn := widget.NewButton("b")
	if err := f.mgr.BindButton("bag", btn); err != nil {
		t.Fatal(err)
	}
	err := f.mgr.BindButton("mail", btn)
	if !errors.Is(err, gate.ErrDuplicateBinding) {
		t.Fatalf("err = %v, want ErrDuplicateBinding", err)
	}
	if n := f.diags.Count(gate.DiagDuplicateBinding); n != 1 {
		t.Errorf("duplicate binding diagnostics = %d, want 1", n)
	}

	btn.Tap()
	if len(bag.Calls) != 1 || len(mail.Calls) != 0 {
		t.Errorf("bag calls = %d, mail calls = %d; first binding must stay in effect",
			len(bag.Calls), len(mail.Calls))
	}
	if btn.Listeners(gate.DefaultTriggerEvent) != 1 {
		t.Errorf("listeners = %d, want 1", btn.Listeners(gate.DefaultTriggerEvent))
	}
}

func TestBindButton_UnknownModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	btn := widget.NewButton("b")
	if err := f.mgr.BindButton("ghost", btn); !errors.Is(err, gate.ErrUnknownModule) {
		t.Errorf("err = %v, want ErrUnknownModule", err)
	}
	if btn.Listeners(gate.DefaultTriggerEvent) != 0 {
		t.Error("failed bind must not attach a listener")
	}
}

func TestBindButton_PromotesTypeHandler(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := &gate.Config{ID: "bag", Type: 5, ServerOpen: true}
	f.mgr.SetConfigs(cfg)
	first := &gatetest.MockHandler{}
	f.mgr.RegisterHandler(5, first)

	if err := f.mgr.BindButton("bag", widget.NewButton("b")); err != nil {
		t.Fatal(err)
	}
	f.mgr.RegisterHandler(5, &gatetest.MockHandler{})

	h, ok := f.mgr.Handler(cfg)
	if !ok || h != first {
		t.Error("binding should pin the type handler known at bind time")
	}
}

func TestBindButton_HiddenUntilEligible(t *testing.T) {
	t.Parallel()

	level := 1
	f := newFixture(t)
	f.mgr.SetConfigs(shopConfig(), &gate.Config{ID: "bag", ServerOpen: true})
	f.mgr.SetCheckers(gate.Checkers{1: gatetest.LevelChecker(&level)})
	f.settle(t)

	shop1, shop2 := widget.NewButton("s1"), widget.NewButton("s2")
	bag := widget.NewButton("bag")
	bag.SetVisible(false)
	for _, b := range []struct {
		id gate.ModuleID
		w  *widget.Button
	}{{"shop", shop1}, {"shop", shop2}, {"bag", bag}} {
		if err := f.mgr.BindButton(b.id, b.w); err != nil {
			t.Fatal(err)
		}
	}

	if shop1.Visible() || shop2.Visible() {
		t.Error("shop buttons should be hidden")
	}
	if !bag.Visible() {
		t.Error("binding an eligible module should make its button visible")
	}
	f.assertWidgetInvariant(t)

	level = 9
	f.mgr.RequestShowCheck()
	f.settle(t)

	if !shop1.Visible() || !shop2.Visible() {
		t.Error("every shop button should be visible")
	}
	f.assertWidgetInvariant(t)
}

func TestBindButton_Tooltip(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(o *gate.Options) {
		o.TooltipFactory = func(cfg *gate.Config) string { return "Open " + cfg.Name }
	})
	f.mgr.SetConfigs(&gate.Config{ID: "bag", Name: "Bag"})

	btn := widget.NewButton("bag")
	if err := f.mgr.BindButton("bag", btn); err != nil {
		t.Fatal(err)
	}
	if btn.Tooltip() != "Open Bag" || f.mgr.Tooltip(btn) != "Open Bag" {
		t.Errorf("tooltip = %q / %q, want Open Bag", btn.Tooltip(), f.mgr.Tooltip(btn))
	}
}

func TestUnbindButton(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mgr.SetConfigs(&gate.Config{ID: "bag", ServerOpen: true})
	h := &gatetest.MockHandler{}
	if err := f.mgr.RegisterHandlerByID("bag", h); err != nil {
		t.Fatal(err)
	}

	btn := widget.NewButton("bag")
	if err := f.mgr.BindButton("bag", btn); err != nil {
		t.Fatal(err)
	}
	if !f.mgr.UnbindButton(btn) {
		t.Fatal("UnbindButton returned false for a bound button")
	}
	if f.mgr.UnbindButton(btn) {
		t.Error("second UnbindButton should return false")
	}

	btn.Tap()
	if len(h.Calls) != 0 {
		t.Error("unbound button must not toggle")
	}
	if len(f.mgr.Widgets("bag")) != 0 {
		t.Error("widget should be forgotten")
	}
	if err := f.mgr.BindButton("bag", btn); err != nil {
		t.Errorf("rebinding after unbind: %v", err)
	}
}

func TestRegisterOpenCallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := &gate.Config{ID: "shop"}
	f.mgr.SetConfigs(cfg)
	f.settle(t)

	calls := 0
	cb := gate.NewCallback(func() { calls++ })
	for range 3 {
		if err := f.mgr.RegisterOpenCallback("shop", cb); err != nil {
			t.Fatal(err)
		}
	}
	if cfg.PendingCallbacks() != 1 {
		t.Fatalf("pending = %d, want 1", cfg.PendingCallbacks())
	}

	f.mgr.ServerChangeModuleState("shop", true)
	f.settle(t)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	f.mgr.ServerChangeModuleState("shop", false)
	f.mgr.ServerChangeModuleState("shop", true)
	f.settle(t)
	if calls != 1 {
		t.Errorf("callback ran again after a later transition: calls = %d", calls)
	}
	if cfg.PendingCallbacks() != 0 {
		t.Errorf("pending = %d, want 0", cfg.PendingCallbacks())
	}
}

func TestRegisterOpenCallback_RunsNowWhenOpenable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mgr.SetConfigs(&gate.Config{ID: "bag", ServerOpen: true})

	ran := false
	if err := f.mgr.RegisterOpenCallback("bag", gate.NewCallback(func() { ran = true })); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("callback should run immediately for an openable module")
	}
}

func TestRegisterOpenCallback_UnknownModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.mgr.RegisterOpenCallback("ghost", gate.NewCallback(func() {}))
	if !errors.Is(err, gate.ErrUnknownModule) {
		t.Errorf("err = %v, want ErrUnknownModule", err)
	}
}

func TestRegisterOpenCallback_FiresWhenCheckerStartsPassing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := &gate.Config{ID: "shop", UsageRule: 2, ServerOpen: true}
	f.mgr.SetConfigs(cfg)
	f.mgr.SetCheckers(gate.Checkers{2: &gatetest.MockChecker{
		CheckFunc: func(gate.Limits, bool) bool { return false },
	}})
	f.settle(t)

	calls := 0
	if err := f.mgr.RegisterOpenCallback("shop", gate.NewCallback(func() { calls++ })); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatal("callback ran while the usage rule failed")
	}

	f.mgr.SetCheckers(gate.Checkers{2: &gatetest.MockChecker{}})
	f.settle(t)
	if !f.mgr.IsModuleOpenedID("shop", false) {
		t.Fatal("module should be openable with a passing checker")
	}
	if calls != 1 || cfg.PendingCallbacks() != 0 {
		t.Errorf("calls = %d pending = %d, want 1 and 0", calls, cfg.PendingCallbacks())
	}
}

func TestRegisterOpenCallback_FiresWhenConfigReopens(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mgr.SetConfigs(&gate.Config{ID: "arena", ServerOpen: true, Closed: gate.SoftClosed})
	f.settle(t)

	calls := 0
	if err := f.mgr.RegisterOpenCallback("arena", gate.NewCallback(func() { calls++ })); err != nil {
		t.Fatal(err)
	}

	reopened := &gate.Config{ID: "arena", ServerOpen: true}
	f.mgr.SetConfigs(reopened)
	f.settle(t)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if reopened.PendingCallbacks() != 0 {
		t.Errorf("pending = %d, want 0", reopened.PendingCallbacks())
	}
}

func TestSetConfigs_KeepsQueuedCallbacks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	old := &gate.Config{ID: "shop"}
	f.mgr.SetConfigs(old, &gate.Config{ID: "mail"})
	f.settle(t)

	calls := 0
	cb := gate.NewCallback(func() { calls++ })
	if err := f.mgr.RegisterOpenCallback("shop", cb); err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.RegisterOpenCallback("mail", gate.NewCallback(func() { calls += 10 })); err != nil {
		t.Fatal(err)
	}

	replaced := &gate.Config{ID: "shop"}
	f.mgr.SetConfigs(replaced)
	f.settle(t)
	if replaced.PendingCallbacks() != 1 || old.PendingCallbacks() != 0 {
		t.Fatalf("pending new = %d old = %d, want 1 and 0", replaced.PendingCallbacks(), old.PendingCallbacks())
	}
	if err := f.mgr.RegisterOpenCallback("shop", cb); err != nil {
		t.Fatal(err)
	}
	if replaced.PendingCallbacks() != 1 {
		t.Errorf("pending = %d after registering the carried callback again, want 1", replaced.PendingCallbacks())
	}

	f.mgr.ServerChangeModuleState("shop", true)
	f.settle(t)
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (dropped module's callback must not run)", calls)
	}
}
