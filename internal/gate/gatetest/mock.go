// Package gatetest provides test doubles for the gate package.
package gatetest

import (
	"github.com/flemzord/modgate/internal/gate"
)

// MockChecker is a configurable gate.LimitChecker that records its calls.
type MockChecker struct {
	CheckFunc  func(limits gate.Limits, notify bool) bool
	AdjustFunc func(show, usage gate.Limits) bool

	Checks  int
	Adjusts int
	// Notified counts failed checks made with notify set.
	Notified int
}

// Compile-time interface check.
var _ gate.LimitChecker = (*MockChecker)(nil)

// Check implements gate.LimitChecker. Without CheckFunc every check passes.
func (c *MockChecker) Check(limits gate.Limits, notify bool) bool {
	c.Checks++
	ok := true
	if c.CheckFunc != nil {
		ok = c.CheckFunc(limits, notify)
	}
	if !ok && notify {
		c.Notified++
	}
	return ok
}

// AdjustLimits implements gate.LimitChecker.
func (c *MockChecker) AdjustLimits(show, usage gate.Limits) bool {
	c.Adjusts++
	if c.AdjustFunc != nil {
		return c.AdjustFunc(show, usage)
	}
	return false
}

// LevelChecker passes when *Level is at least the "lvl" entry of the
// payload. It corrects a show level above the usage level.
func LevelChecker(level *int) *MockChecker {
	return &MockChecker{
		CheckFunc: func(limits gate.Limits, _ bool) bool {
			need, _ := limits["lvl"].(int)
			return *level >= need
		},
		AdjustFunc: func(show, usage gate.Limits) bool {
			s, _ := show["lvl"].(int)
			u, _ := usage["lvl"].(int)
			if s > u {
				show["lvl"] = u
				return true
			}
			return false
		},
	}
}

// Call is one recorded handler invocation.
type Call struct {
	Method string
	Module gate.ModuleID
	Param  any
}

// MockHandler records Show and Hide calls. With TrackState set it also
// updates the config's ShowState like a real handler would.
type MockHandler struct {
	TrackState bool
	Calls      []Call
}

// Compile-time interface check.
var _ gate.Handler = (*MockHandler)(nil)

// Show implements gate.Handler.
func (h *MockHandler) Show(cfg *gate.Config, param any) {
	h.Calls = append(h.Calls, Call{Method: "show", Module: cfg.ID, Param: param})
	if h.TrackState {
		cfg.ShowState = gate.StateShow
	}
}

// Hide implements gate.Handler.
func (h *MockHandler) Hide(cfg *gate.Config, param any) {
	h.Calls = append(h.Calls, Call{Method: "hide", Module: cfg.ID, Param: param})
	if h.TrackState {
		cfg.ShowState = gate.StateHide
	}
}

// Last returns the most recent call.
func (h *MockHandler) Last() (Call, bool) {
	if len(h.Calls) == 0 {
		return Call{}, false
	}
	return h.Calls[len(h.Calls)-1], true
}

// Diagnostics collects diagnostics from gate.Options.OnDiagnostic.
type Diagnostics struct {
	All []gate.Diagnostic
}

// Record is suitable as gate.Options.OnDiagnostic.
func (d *Diagnostics) Record(diag gate.Diagnostic) {
	d.All = append(d.All, diag)
}

// Count returns how many diagnostics of kind were recorded.
func (d *Diagnostics) Count(kind gate.DiagKind) int {
	n := 0
	for _, diag := range d.All {
		if diag.Kind == kind {
			n++
		}
	}
	return n
}
