package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/modgate/internal/engine"
	"github.com/flemzord/modgate/internal/gate"
)

// ErrBadPayload marks a webhook body the handler could not use.
var ErrBadPayload = errors.New("gateway: bad webhook payload")

// WebhookHandler processes a validated webhook payload.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) error
}

type webhookEntry struct {
	handler WebhookHandler
	secret  string
}

// WebhookDispatcher routes incoming webhooks to registered handlers with HMAC validation.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]webhookEntry
	logger   *slog.Logger
}

// NewWebhookDispatcher creates a ready-to-use dispatcher.
func NewWebhookDispatcher(logger *slog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		handlers: make(map[string]webhookEntry),
		logger:   logger,
	}
}

// Register adds a handler for the given source with an optional HMAC secret.
func (d *WebhookDispatcher) Register(source string, h WebhookHandler, secret string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[source] = webhookEntry{handler: h, secret: secret}
}

// Sources returns the number of registered sources.
func (d *WebhookDispatcher) Sources() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// ServeHTTP implements http.Handler. It extracts the source from the chi URL param,
// validates HMAC if configured, and dispatches to the registered handler.
func (d *WebhookDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source := chi.URLParam(r, "source")
	if source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}

	d.mu.RLock()
	entry, ok := d.handlers[source]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("webhook received for unregistered source", "source", source)
		http.Error(w, "unknown source", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if entry.secret != "" {
		sig := r.Header.Get("X-Signature-256")
		if !validateHMAC(body, sig, entry.secret) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	if err := entry.handler.HandleWebhook(r.Context(), source, body, r.Header); err != nil {
		if errors.Is(err, ErrBadPayload) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.logger.Error("webhook handler failed", "source", source, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

const maxWebhookBody = 1 << 20

// validateHMAC checks HMAC-SHA256 signature in constant time.
func validateHMAC(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// FactsUpdate is the body of a facts webhook. Attributes are set to the
// given values; flags are set or cleared.
type FactsUpdate struct {
	Attributes map[string]int64 `json:"attributes"`
	Flags      map[string]bool  `json:"flags"`
}

// factsWebhook applies FactsUpdate bodies on the engine loop.
type factsWebhook struct {
	engine  *engine.Engine
	timeout time.Duration
	metrics *Metrics
}

func (f *factsWebhook) HandleWebhook(ctx context.Context, source string, body []byte, _ http.Header) error {
	var u FactsUpdate
	if err := json.Unmarshal(body, &u); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(u.Attributes) == 0 && len(u.Flags) == 0 {
		return fmt.Errorf("%w: no attributes or flags", ErrBadPayload)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	err := f.engine.Do(ctx, func(*gate.Manager) {
		for name, v := range u.Attributes {
			f.engine.Attributes().Set(name, v)
		}
		for name, on := range u.Flags {
			f.engine.Flags().Set(name, on)
		}
	})
	if err != nil {
		return fmt.Errorf("gateway: webhook %s: %w", source, err)
	}
	f.metrics.RecordWebhook()
	return nil
}
