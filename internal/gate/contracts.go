package gate

// LimitChecker evaluates one rule family. Implementations keep no
// per-module state; everything they need is in the Limits payload or in
// their own collaborators.
type LimitChecker interface {
	// Check reports whether limits are currently satisfied. When notify is
	// set and the check fails, the checker may tell the user why.
	Check(limits Limits, notify bool) bool

	// AdjustLimits harmonizes the show and usage payloads of a module whose
	// show and usage rules share this family, so that a usable module is
	// always visible. It reports whether anything had to be corrected.
	AdjustLimits(show, usage Limits) bool
}

// Checkers maps rule types to their checker.
type Checkers map[RuleType]LimitChecker

// Handler owns the actual show and hide behaviour of a module and is
// responsible for updating cfg.ShowState.
type Handler interface {
	Show(cfg *Config, param any)
	Hide(cfg *Config, param any)
}

// HandlerFuncs adapts two functions to Handler. Nil funcs are no-ops.
type HandlerFuncs struct {
	ShowFunc func(cfg *Config, param any)
	HideFunc func(cfg *Config, param any)
}

// Show implements Handler.
func (h *HandlerFuncs) Show(cfg *Config, param any) {
	if h.ShowFunc != nil {
		h.ShowFunc(cfg, param)
	}
}

// Hide implements Handler.
func (h *HandlerFuncs) Hide(cfg *Config, param any) {
	if h.HideFunc != nil {
		h.HideFunc(cfg, param)
	}
}

// Trigger is an interaction event raised by a widget.
type Trigger struct {
	Event  string
	Source Widget
}

// Widget is an interaction object bound to a module. Implementations are
// used as map keys and must be comparable; pointer types are.
type Widget interface {
	SetVisible(visible bool)
	Visible() bool
	// On registers fn for the named trigger event and returns a func that
	// removes it.
	On(event string, fn func(Trigger)) (off func())
}

// Tooltipped is implemented by widgets that can display tooltip text.
type Tooltipped interface {
	SetTooltip(text string)
}

// Scheduler defers work to the next tick of the task queue.
type Scheduler interface {
	CallLater(fn func())
}

// TipPresenter shows the user why a module could not be opened.
type TipPresenter func(state TipState)

// TooltipFactory builds the tooltip text of a bound widget. An empty result
// means no tooltip.
type TooltipFactory func(cfg *Config) string
