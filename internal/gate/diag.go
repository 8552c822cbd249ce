package gate

import (
	"strings"

	"github.com/flemzord/modgate/internal/event"
)

// DiagKind categorizes a configuration or usage problem.
type DiagKind string

const (
	DiagUnknownModule    DiagKind = "unknown_module"
	DiagDuplicateBinding DiagKind = "duplicate_binding"
	DiagDuplicateConfig  DiagKind = "duplicate_config"
	DiagRuleMismatch     DiagKind = "rule_mismatch"
	DiagMissingChecker   DiagKind = "missing_checker"
	DiagLimitsAdjusted   DiagKind = "limits_adjusted"
)

// Diagnostic is a non-fatal problem report. Validation-pass diagnostics
// aggregate every affected module into one report.
type Diagnostic struct {
	Kind    DiagKind   `json:"kind"`
	Modules []ModuleID `json:"modules"`
	Message string     `json:"message"`
}

// report logs a diagnostic, broadcasts it and forwards it to the
// OnDiagnostic hook.
func (m *Manager) report(d Diagnostic) {
	ids := make([]string, len(d.Modules))
	for i, id := range d.Modules {
		ids[i] = string(id)
	}
	m.logger.Warn(d.Message,
		"kind", string(d.Kind),
		"modules", strings.Join(ids, ","),
	)
	m.bus.Dispatch(event.ModuleDiagnostic, d)
	if m.onDiagnostic != nil {
		m.onDiagnostic(d)
	}
}

// reportOnce reports d unless the previous report of the same kind carried
// the same message. Reinstalling configs or checkers forgets past reports.
func (m *Manager) reportOnce(d Diagnostic) {
	if m.reported[d.Kind] == d.Message {
		return
	}
	m.reported[d.Kind] = d.Message
	m.report(d)
}

func joinIDs(ids []ModuleID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(id))
	}
	return b.String()
}
