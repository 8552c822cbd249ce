package checker

import (
	"math"

	"github.com/flemzord/modgate/internal/gate"
)

// AttributeChecker checks payloads of the form {attribute: minimum}. Every
// listed attribute must be at least its minimum.
type AttributeChecker struct {
	Attrs  *Attributes
	Notice gate.TipPresenter
}

var _ gate.LimitChecker = (*AttributeChecker)(nil)

// Check implements gate.LimitChecker. A minimum that is not a number never
// passes.
func (c *AttributeChecker) Check(limits gate.Limits, notify bool) bool {
	for name, raw := range limits {
		need, ok := toInt64(raw)
		if !ok || c.Attrs.Get(name) < need {
			notice(c.Notice, notify)
			return false
		}
	}
	return true
}

// AdjustLimits lowers show minimums above the usage minimum of the same
// attribute and drops show attributes the usage payload does not list.
func (c *AttributeChecker) AdjustLimits(show, usage gate.Limits) bool {
	changed := false
	for name, raw := range show {
		u, listed := usage[name]
		if !listed {
			delete(show, name)
			changed = true
			continue
		}
		sv, sok := toInt64(raw)
		uv, uok := toInt64(u)
		if uok && (!sok || sv > uv) {
			show[name] = uv
			changed = true
		}
	}
	return changed
}

func notice(fn gate.TipPresenter, notify bool) {
	if notify && fn != nil {
		fn(gate.TipLimitNotMet)
	}
}

// toInt64 accepts the numeric shapes YAML and JSON decoding produce.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
