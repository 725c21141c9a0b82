package aggregates

import (
	"time"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/observability"
)

// Hooks receives lifecycle signals after the fact. Implementations must not
// block: they run on the request path, outside the transaction.
type Hooks interface {
	// WriteDone fires once per write, after any retries. status is
	// "success" or the aggregate error code.
	WriteDone(op, status string, dur time.Duration)
	Conflict(op string)
	Retry(op string)
	Transitioned(from, to requests.Status, override bool)
	Denied(reason string)
}

// NoopHooks drops every signal. Embed it to implement only part of Hooks.
type NoopHooks struct{}

func (NoopHooks) WriteDone(string, string, time.Duration)             {}
func (NoopHooks) Conflict(string)                                     {}
func (NoopHooks) Retry(string)                                        {}
func (NoopHooks) Transitioned(requests.Status, requests.Status, bool) {}
func (NoopHooks) Denied(string)                                       {}

// metricsHooks feeds the Prometheus counters.
type metricsHooks struct {
	m *observability.Metrics
}

func NewObservabilityHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return NoopHooks{}
	}
	return metricsHooks{m: m}
}

func (h metricsHooks) WriteDone(op, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(op, status, dur)
}
func (h metricsHooks) Conflict(op string) { h.m.IncAggregateConflict(op) }
func (h metricsHooks) Retry(op string)    { h.m.IncAggregateRetry(op) }
func (h metricsHooks) Transitioned(from, to requests.Status, override bool) {
	h.m.IncTransition(from, to, override)
}
func (h metricsHooks) Denied(reason string) { h.m.IncDenied(reason) }
