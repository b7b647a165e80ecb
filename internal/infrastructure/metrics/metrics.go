package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "mqttpub"

// Metrics holds the publisher's collectors.
type Metrics struct {
	published       prometheus.Counter
	publishErrors   prometheus.Counter
	connectAttempts prometheus.Counter
	connectErrors   prometheus.Counter
	retries         prometheus.Counter
	encodeErrors    prometheus.Counter
	abandoned       prometheus.Counter

	bufferDepth   prometheus.Gauge
	drainDuration prometheus.Histogram
}

// New creates a Metrics instance and registers all collectors with reg.
// Returns an error if any registration fails, e.g. on a duplicate.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "published_total",
			Help:      "Total messages confirmed published to the broker",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed publish attempts",
		}),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connect_attempts_total",
			Help:      "Total broker connection attempts",
		}),
		connectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connect_errors_total",
			Help:      "Total failed broker connection attempts",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retries_total",
			Help:      "Total backoff waits entered after a failed delivery attempt",
		}),
		encodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "encode_errors_total",
			Help:      "Total events rejected before buffering",
		}),
		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "abandoned_total",
			Help:      "Total buffered messages left undelivered at shutdown",
		}),
		bufferDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "buffer_depth",
			Help:      "Messages currently waiting in the delivery buffer",
		}),
		drainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "drain_duration_seconds",
			Help:      "Time spent in one connect-and-drain attempt",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}

	err := errors.Join(
		reg.Register(m.published),
		reg.Register(m.publishErrors),
		reg.Register(m.connectAttempts),
		reg.Register(m.connectErrors),
		reg.Register(m.retries),
		reg.Register(m.encodeErrors),
		reg.Register(m.abandoned),
		reg.Register(m.bufferDepth),
		reg.Register(m.drainDuration),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// IncPublished records one confirmed publish.
func (m *Metrics) IncPublished() {
	if m == nil {
		return
	}
	m.published.Inc()
}

// IncPublishError records one failed publish.
func (m *Metrics) IncPublishError() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}

// IncConnectAttempt records one dial attempt.
func (m *Metrics) IncConnectAttempt() {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
}

// IncConnectError records one failed dial.
func (m *Metrics) IncConnectError() {
	if m == nil {
		return
	}
	m.connectErrors.Inc()
}

// IncRetry records entry into backoff.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// IncEncodeError records one rejected event.
func (m *Metrics) IncEncodeError() {
	if m == nil {
		return
	}
	m.encodeErrors.Inc()
}

// AddAbandoned records messages dropped at shutdown.
func (m *Metrics) AddAbandoned(n int) {
	if m == nil {
		return
	}
	m.abandoned.Add(float64(n))
}

// SetBufferDepth updates the buffer depth gauge.
func (m *Metrics) SetBufferDepth(n int) {
	if m == nil {
		return
	}
	m.bufferDepth.Set(float64(n))
}

// ObserveDrain records the duration of one drain attempt.
func (m *Metrics) ObserveDrain(d time.Duration) {
	if m == nil {
		return
	}
	m.drainDuration.Observe(d.Seconds())
}
