package checker

import (
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/modgate/internal/gate"
)

// Checker kinds accepted by Build.
const (
	KindAttribute = "attribute"
	KindSchedule  = "schedule"
	KindFlag      = "flag"
)

// Deps are the facts and hooks the built checkers share.
type Deps struct {
	Attributes *Attributes
	Flags      *Flags
	Now        func() time.Time
	Notice     gate.TipPresenter
}

// Build instantiates one checker per rule type. Every unknown kind is
// reported.
func Build(kinds map[gate.RuleType]string, deps Deps) (gate.Checkers, error) {
	if deps.Attributes == nil {
		deps.Attributes = NewAttributes(nil, nil)
	}
	if deps.Flags == nil {
		deps.Flags = NewFlags(nil)
	}

	out := make(gate.Checkers, len(kinds))
	var errs []error
	for rt, kind := range kinds {
		if rt == gate.RuleNone {
			errs = append(errs, fmt.Errorf("rule 0 is reserved for unrestricted modules (kind %q)", kind))
			continue
		}
		switch kind {
		case KindAttribute:
			out[rt] = &AttributeChecker{Attrs: deps.Attributes, Notice: deps.Notice}
		case KindSchedule:
			out[rt] = &ScheduleChecker{Now: deps.Now, Notice: deps.Notice}
		case KindFlag:
			out[rt] = &FlagChecker{Flags: deps.Flags, Notice: deps.Notice}
		default:
			errs = append(errs, fmt.Errorf("rule %d: unknown checker kind %q", rt, kind))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
