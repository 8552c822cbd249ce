package gate

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ModuleID is the canonical key of a module. Integer ids are stored in
// their decimal form so "7" and 7 name the same module.
type ModuleID string

// IntID returns the ModuleID of an integer id.
func IntID(n int) ModuleID {
	return ModuleID(strconv.Itoa(n))
}

// ParseID normalizes a string or integer id.
func ParseID(v any) (ModuleID, error) {
	switch id := v.(type) {
	case ModuleID:
		return id, nil
	case string:
		return ModuleID(id), nil
	case int:
		return IntID(id), nil
	case int8:
		return ModuleID(strconv.FormatInt(int64(id), 10)), nil
	case int16:
		return ModuleID(strconv.FormatInt(int64(id), 10)), nil
	case int32:
		return ModuleID(strconv.FormatInt(int64(id), 10)), nil
	case int64:
		return ModuleID(strconv.FormatInt(id, 10)), nil
	case uint:
		return ModuleID(strconv.FormatUint(uint64(id), 10)), nil
	case uint8:
		return ModuleID(strconv.FormatUint(uint64(id), 10)), nil
	case uint16:
		return ModuleID(strconv.FormatUint(uint64(id), 10)), nil
	case uint32:
		return ModuleID(strconv.FormatUint(uint64(id), 10)), nil
	case uint64:
		return ModuleID(strconv.FormatUint(id, 10)), nil
	default:
		return "", fmt.Errorf("gate: unsupported module id type %T", v)
	}
}

// Ref resolves to a module: either a ModuleID or a *Config. An untyped
// string constant is not a Ref; write gate.ModuleID("shop") or use the
// ID variants such as Manager.IsModuleShowID.
type Ref interface {
	moduleRef()
}

func (ModuleID) moduleRef() {}
func (*Config) moduleRef()  {}

// ModuleType selects the type-level handler of a module.
type ModuleType int

// RuleType is the code of a limit rule family. RuleNone means no rule.
type RuleType int

// RuleNone marks an unrestricted show or usage rule.
const RuleNone RuleType = 0

// Limits is the rule payload handed to a LimitChecker. Its content is
// defined by the checker; checkers may correct it in place.
type Limits map[string]any

// CloseState is the administrative close flag of a module.
type CloseState int

const (
	// Open modules are gated by their rules only.
	Open CloseState = iota
	// SoftClosed modules stay visible but cannot be opened.
	SoftClosed
	// HardClosed modules are neither shown nor opened.
	HardClosed
)

func (c CloseState) String() string {
	switch c {
	case Open:
		return "open"
	case SoftClosed:
		return "soft"
	case HardClosed:
		return "hard"
	default:
		return "CloseState(" + strconv.Itoa(int(c)) + ")"
	}
}

// ParseCloseState parses "open", "soft" or "hard". The empty string is Open.
func ParseCloseState(s string) (CloseState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return Open, nil
	case "soft", "soft_closed":
		return SoftClosed, nil
	case "hard", "closed", "hard_closed":
		return HardClosed, nil
	default:
		return Open, fmt.Errorf("gate: unknown close state %q", s)
	}
}

// ShowState is the presentation state of a module. Handlers own it; the
// engine only reads it.
type ShowState int

const (
	StateHide ShowState = iota
	StateHiding
	StateShow
	StateShowing
)

func (s ShowState) String() string {
	switch s {
	case StateHide:
		return "hide"
	case StateHiding:
		return "hiding"
	case StateShow:
		return "show"
	case StateShowing:
		return "showing"
	default:
		return "ShowState(" + strconv.Itoa(int(s)) + ")"
	}
}

// Direction selects what Toggle asks the handler to do.
type Direction int

const (
	// ToggleAuto shows a hidden module and hides a shown one.
	ToggleAuto Direction = iota
	ToggleShow
	ToggleHide
)

func (d Direction) String() string {
	switch d {
	case ToggleAuto:
		return "auto"
	case ToggleShow:
		return "show"
	case ToggleHide:
		return "hide"
	default:
		return "Direction(" + strconv.Itoa(int(d)) + ")"
	}
}

// ParseDirection parses "auto", "show" or "hide". The empty string is auto.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ToggleAuto, nil
	case "show":
		return ToggleShow, nil
	case "hide":
		return ToggleHide, nil
	default:
		return ToggleAuto, fmt.Errorf("gate: unknown toggle direction %q", s)
	}
}

// TipState tells the notice presenter why a module could not be opened.
type TipState int

const (
	// TipComingSoon means the module is closed or not yet opened server-side.
	TipComingSoon TipState = iota
	// TipLimitNotMet means a usage rule is not satisfied.
	TipLimitNotMet
)

func (t TipState) String() string {
	switch t {
	case TipComingSoon:
		return "coming_soon"
	case TipLimitNotMet:
		return "limit_not_met"
	default:
		return "TipState(" + strconv.Itoa(int(t)) + ")"
	}
}

// MarshalText encodes the state by name.
func (t TipState) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Config is the configuration and live state of one module.
type Config struct {
	ID   ModuleID
	Type ModuleType
	Name string

	ShowRule    RuleType
	UsageRule   RuleType
	ShowLimits  Limits
	UsageLimits Limits

	Closed     CloseState
	ServerOpen bool

	// ShowState is written by handlers while they show or hide the module.
	ShowState ShowState

	onOpen []*Callback
}

// PendingCallbacks returns how many open callbacks are queued.
func (c *Config) PendingCallbacks() int {
	return len(c.onOpen)
}

// adoptCallbacks moves the queued callbacks of from onto c, skipping ones
// already queued on c.
func (c *Config) adoptCallbacks(from *Config) {
	for _, cb := range from.onOpen {
		if !slices.Contains(c.onOpen, cb) {
			c.onOpen = append(c.onOpen, cb)
		}
	}
	from.onOpen = nil
}

// Callback is a one-shot function queued until a module becomes openable.
// Callbacks are compared by pointer.
type Callback struct {
	fn func()
}

// NewCallback wraps fn.
func NewCallback(fn func()) *Callback {
	return &Callback{fn: fn}
}

// Execute runs the callback.
func (c *Callback) Execute() {
	if c != nil && c.fn != nil {
		c.fn()
	}
}
