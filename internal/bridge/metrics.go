package bridge

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the bridge's operational counters. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry collisions.
type Metrics struct {
	submitted       prometheus.Counter
	outcomes        *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	dispatchSeconds prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		submitted: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecotrack_bridge_requests_submitted_total",
			Help: "Requests accepted into the bridge queue.",
		})),
		outcomes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrack_bridge_request_outcomes_total",
			Help: "Request outcomes by error kind; ok for success.",
		}, []string{"outcome"})),
		queueDepth: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecotrack_bridge_queue_depth",
			Help: "Requests currently waiting for the dispatch worker.",
		})),
		dispatchSeconds: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecotrack_bridge_dispatch_seconds",
			Help:    "Time spent in a single send-and-wait against the mailbox channel.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		})),
	}
	return m
}

// register reuses an already-registered collector so rebuilding the bridge in
// one process (restarts in tests, mainly) does not panic the registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return already.ExistingCollector.(C)
	}
	panic(err)
}

func (m *Metrics) recordSubmitted() {
	if m == nil {
		return
	}
	m.submitted.Inc()
}

func (m *Metrics) recordOutcome(err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.outcomes.WithLabelValues("ok").Inc()
		return
	}
	m.outcomes.WithLabelValues(Kind(err)).Inc()
}

func (m *Metrics) setQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) observeDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchSeconds.Observe(d.Seconds())
}
