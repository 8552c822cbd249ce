// Package redact keeps configured secrets out of logs and admin output.
package redact

import (
	"regexp"
	"strings"
	"sync"
)

// Placeholder replaces a redacted value.
const Placeholder = "***REDACTED***"

// Service is the name the application publishes its Redactor under.
const Service = "app.redactor"

// secretKey matches configuration keys that hold secrets.
var secretKey = regexp.MustCompile(`(?i)(secret|token|password|pass|key|credential)`)

// bearer matches an Authorization header value.
var bearer = regexp.MustCompile(`(?i)bearer\s+[a-z0-9._~+/=-]{8,}`)

// Redactor replaces known secret values in strings and maps. Secrets are
// registered at runtime by the components that own them. Safe for
// concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	literals []string
}

// New returns an empty Redactor.
func New() *Redactor {
	return &Redactor{}
}

// Add registers secret values. Empty and duplicate values are ignored.
func (r *Redactor) Add(secrets ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range secrets {
		if s == "" || containsString(r.literals, s) {
			continue
		}
		r.literals = append(r.literals, s)
	}
}

// Len returns the number of registered secrets.
func (r *Redactor) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.literals)
}

// String replaces bearer credentials and registered secrets in s.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = bearer.ReplaceAllString(s, "Bearer "+Placeholder)

	r.mu.RLock()
	literals := r.literals
	r.mu.RUnlock()
	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, Placeholder)
	}
	return s
}

// Map walks a decoded YAML or JSON document in place. Non-empty string
// values under secret-looking keys are replaced; other strings go through
// String.
func (r *Redactor) Map(m map[string]any) {
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && secretKey.MatchString(k) {
			m[k] = Placeholder
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			r.Map(val)
		case []any:
			for i, item := range val {
				switch it := item.(type) {
				case map[string]any:
					r.Map(it)
				case string:
					val[i] = r.String(it)
				}
			}
		case string:
			m[k] = r.String(val)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
