package checker

import (
	"time"

	"github.com/flemzord/modgate/internal/gate"
)

// Payload keys of ScheduleChecker.
const (
	KeyAfter  = "after"
	KeyBefore = "before"
)

// ScheduleChecker checks payloads of the form {after: T, before: T}. Either
// bound may be omitted. Bounds are RFC 3339 strings or time.Time values.
type ScheduleChecker struct {
	Now    func() time.Time
	Notice gate.TipPresenter
}

var _ gate.LimitChecker = (*ScheduleChecker)(nil)

// Check implements gate.LimitChecker. The window is [after, before).
func (c *ScheduleChecker) Check(limits gate.Limits, notify bool) bool {
	now := c.now()
	after, hasAfter, okA := bound(limits, KeyAfter)
	before, hasBefore, okB := bound(limits, KeyBefore)
	if !okA || !okB ||
		(hasAfter && now.Before(after)) ||
		(hasBefore && !now.Before(before)) {
		notice(c.Notice, notify)
		return false
	}
	return true
}

// AdjustLimits widens the show window so it covers the usage window.
func (c *ScheduleChecker) AdjustLimits(show, usage gate.Limits) bool {
	changed := false

	sa, sHas, sOK := bound(show, KeyAfter)
	ua, uHas, uOK := bound(usage, KeyAfter)
	if sHas && sOK && uOK {
		switch {
		case !uHas:
			delete(show, KeyAfter)
			changed = true
		case sa.After(ua):
			show[KeyAfter] = ua.Format(time.RFC3339)
			changed = true
		}
	}

	sb, sHas, sOK := bound(show, KeyBefore)
	ub, uHas, uOK := bound(usage, KeyBefore)
	if sHas && sOK && uOK {
		switch {
		case !uHas:
			delete(show, KeyBefore)
			changed = true
		case sb.Before(ub):
			show[KeyBefore] = ub.Format(time.RFC3339)
			changed = true
		}
	}
	return changed
}

func (c *ScheduleChecker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// bound reads a time bound. It reports whether the key is present and
// whether its value parsed.
func bound(limits gate.Limits, key string) (t time.Time, present, ok bool) {
	raw, present := limits[key]
	if !present {
		return time.Time{}, false, true
	}
	switch v := raw.(type) {
	case time.Time:
		return v, true, true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, true, false
		}
		return t, true, true
	default:
		return time.Time{}, true, false
	}
}
