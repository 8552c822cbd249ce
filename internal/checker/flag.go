package checker

import (
	"slices"

	"github.com/flemzord/modgate/internal/gate"
)

// KeyFlags is the payload key of FlagChecker.
const KeyFlags = "flags"

// FlagChecker checks payloads of the form {flags: [name, ...]}. Every listed
// flag must be raised.
type FlagChecker struct {
	Flags  *Flags
	Notice gate.TipPresenter
}

var _ gate.LimitChecker = (*FlagChecker)(nil)

// Check implements gate.LimitChecker.
func (c *FlagChecker) Check(limits gate.Limits, notify bool) bool {
	names, ok := flagList(limits)
	if !ok {
		notice(c.Notice, notify)
		return false
	}
	for _, name := range names {
		if !c.Flags.Has(name) {
			notice(c.Notice, notify)
			return false
		}
	}
	return true
}

// AdjustLimits removes show flags that are not usage flags.
func (c *FlagChecker) AdjustLimits(show, usage gate.Limits) bool {
	sf, sok := flagList(show)
	uf, uok := flagList(usage)
	if !sok || !uok {
		return false
	}
	kept := slices.DeleteFunc(slices.Clone(sf), func(f string) bool {
		return !slices.Contains(uf, f)
	})
	if len(kept) == len(sf) {
		return false
	}
	show[KeyFlags] = kept
	return true
}

// flagList reads the flags entry; a missing entry is an empty list.
func flagList(limits gate.Limits) ([]string, bool) {
	raw, present := limits[KeyFlags]
	if !present || raw == nil {
		return nil, true
	}
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return []string{v}, true
	default:
		return nil, false
	}
}
