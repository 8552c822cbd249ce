package gateway

import "sync/atomic"

// Metrics tracks gateway-level counters using atomic operations for lock-free concurrency.
type Metrics struct {
	requests atomic.Int64
	toggles  atomic.Int64
	presses  atomic.Int64
	webhooks atomic.Int64
	errors   atomic.Int64
}

// RecordRequest records an admin API request.
func (m *Metrics) RecordRequest() { m.requests.Add(1) }

// RecordToggle records a toggle request sent to the engine.
func (m *Metrics) RecordToggle() { m.toggles.Add(1) }

// RecordPress records a button press sent to the engine.
func (m *Metrics) RecordPress() { m.presses.Add(1) }

// RecordWebhook records an accepted webhook delivery.
func (m *Metrics) RecordWebhook() { m.webhooks.Add(1) }

// RecordError records a request that failed on the server side.
func (m *Metrics) RecordError() { m.errors.Add(1) }

// Snapshot returns a point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests: m.requests.Load(),
		Toggles:  m.toggles.Load(),
		Presses:  m.presses.Load(),
		Webhooks: m.webhooks.Load(),
		Errors:   m.errors.Load(),
	}
}

// MetricsSnapshot is a serializable point-in-time metrics view.
type MetricsSnapshot struct {
	Requests int64 `json:"requests"`
	Toggles  int64 `json:"toggles"`
	Presses  int64 `json:"presses"`
	Webhooks int64 `json:"webhooks"`
	Errors   int64 `json:"errors"`
}
