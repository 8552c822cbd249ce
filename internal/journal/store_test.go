package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/flemzord/modgate/internal/event"
	"github.com/flemzord/modgate/internal/gate"
	"github.com/flemzord/modgate/internal/panel"
)

func openTestStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Path:       filepath.Join(t.TempDir(), "journal.db"),
		MaxEntries: maxEntries,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustEntry(t *testing.T, name event.Name, payload any) Entry {
	t.Helper()
	e, err := NewEntry(event.Event{Name: name, Payload: payload})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestStore_AppendRecent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t, 0)

	entries := []Entry{
		mustEntry(t, event.ModuleShow, gate.ModuleID("shop")),
		mustEntry(t, event.ModuleShowChanged, 2),
		mustEntry(t, event.ModuleTryToggle, gate.ModuleID("bag")),
	}
	for _, e := range entries {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2, "")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent = %d entries, want 2", len(got))
	}
	if got[0].Name != string(event.ModuleTryToggle) || got[1].Name != string(event.ModuleShowChanged) {
		t.Errorf("order = %s, %s; want newest first", got[0].Name, got[1].Name)
	}
	if got[0].ID != entries[2].ID {
		t.Errorf("id = %s, want %s", got[0].ID, entries[2].ID)
	}
	if string(got[1].Payload) != "2" {
		t.Errorf("payload = %s, want 2", got[1].Payload)
	}

	shop, err := s.Recent(ctx, 10, "shop")
	if err != nil {
		t.Fatal(err)
	}
	if len(shop) != 1 || shop[0].Name != string(event.ModuleShow) {
		t.Errorf("shop entries = %+v", shop)
	}
}

func TestStore_Prunes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t, 3)
	for i := range 5 {
		if err := s.Append(ctx, mustEntry(t, event.ModuleShowChanged, i)); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	got, _ := s.Recent(ctx, 10, "")
	if string(got[len(got)-1].Payload) != "2" {
		t.Errorf("oldest kept payload = %s, want 2", got[len(got)-1].Payload)
	}
}

func TestStore_MigrateIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	for range 2 {
		s, err := Open(context.Background(), Config{Path: path})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNewEntry_Module(t *testing.T) {
	t.Parallel()

	tests := []struct {
		payload any
		want    string
	}{
		{gate.ModuleID("shop"), "shop"},
		{panel.Toggled{Module: "bag", State: "show"}, "bag"},
		{gate.Diagnostic{Kind: gate.DiagRuleMismatch, Modules: []gate.ModuleID{"a", "b"}}, "a,b"},
		{3, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		e, err := NewEntry(event.Event{Name: "x", Payload: tt.payload})
		if err != nil {
			t.Fatal(err)
		}
		if e.Module != tt.want {
			t.Errorf("module of %v = %q, want %q", tt.payload, e.Module, tt.want)
		}
	}
}

func TestNewEntry_TipByName(t *testing.T) {
	t.Parallel()

	e := mustEntry(t, event.ModuleTip, gate.TipLimitNotMet)
	var name string
	if err := json.Unmarshal(e.Payload, &name); err != nil {
		t.Fatal(err)
	}
	if name != "limit_not_met" {
		t.Errorf("tip = %q", name)
	}
}
