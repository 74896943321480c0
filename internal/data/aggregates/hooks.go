package aggregates

import (
	"time"

	"github.com/yungbote/marketpulse/internal/observability"
)

// Hooks receives one signal per commit attempt.
type Hooks interface {
	ObserveCommit(op, status string, dur time.Duration)
	IncDuplicate(op string)
	IncRetry(op string)
}

// NewObservabilityHooks reports commit signals to metrics. Nil metrics
// record nothing.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	return metricsHooks{m: metrics}
}

type metricsHooks struct {
	m *observability.Metrics
}

func (h metricsHooks) ObserveCommit(op, status string, dur time.Duration) {
	h.m.ObserveWriterOperation(op, status, dur)
}

func (h metricsHooks) IncDuplicate(op string) { h.m.IncWriterConflict(op) }
func (h metricsHooks) IncRetry(op string)     { h.m.IncWriterRetry(op) }
