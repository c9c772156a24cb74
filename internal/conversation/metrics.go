package conversation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records step transitions and remote-call outcomes. A nil *Metrics
// records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	turnLatency prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lazyswap",
			Subsystem: "conversation",
			Name:      "transitions_total",
			Help:      "Conversation step transitions segmented by source and target step.",
		}, []string{"from", "to"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lazyswap",
			Subsystem: "conversation",
			Name:      "outcomes_total",
			Help:      "Turn outcomes such as quote_created, shift_created or quote_error.",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lazyswap",
			Subsystem: "conversation",
			Name:      "turn_duration_seconds",
			Help:      "Time spent handling one inbound message, remote calls included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.outcomes, m.turnLatency)
	}
	return m
}

func (m *Metrics) transition(from, to Kind) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) outcome(name string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(name).Inc()
}

func (m *Metrics) observe(d time.Duration) {
	if m == nil {
		return
	}
	m.turnLatency.Observe(d.Seconds())
}
