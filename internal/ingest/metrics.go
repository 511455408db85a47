package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSaved = "saved"
)

// Metrics counts processed messages by outcome and times their handling.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	messages *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "annotator",
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Recording messages processed, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "annotator",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Time from receive to outcome for one recording message.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.messages, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func failureOutcome(kind FailureKind) string {
	return string(kind) + "_error"
}
