package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the client's Prometheus metrics. A nil *Collector is
// valid and records nothing, so instrumentation stays optional.
type Collector struct {
	connectionState  *prometheus.GaugeVec
	reconnectsTotal  prometheus.Counter
	framesReceived   prometheus.Counter
	framesSent       prometheus.Counter
	framesDropped    *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	queueDropsTotal  *prometheus.CounterVec
	heartbeatLatency prometheus.Histogram
}

// New creates and registers the collectors. reg may be
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "realtime",
			Name:      "connection_state",
			Help:      "Current connection state (1 for the active state, 0 otherwise).",
		}, []string{"state"}),
		reconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime",
			Name:      "reconnect_attempts_total",
			Help:      "Total reconnection attempts.",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime",
			Name:      "frames_received_total",
			Help:      "Inbound frames received from the transport.",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime",
			Name:      "frames_sent_total",
			Help:      "Outbound frames handed to the transport.",
		}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realtime",
			Name:      "frames_dropped_total",
			Help:      "Frames dropped, by reason.",
		}, []string{"reason"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "realtime",
			Name:      "queue_depth",
			Help:      "Messages pending in the outgoing queue.",
		}),
		queueDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realtime",
			Name:      "queue_drops_total",
			Help:      "Queued messages discarded, by reason.",
		}, []string{"reason"}),
		heartbeatLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "realtime",
			Name:      "heartbeat_latency_seconds",
			Help:      "Ping/pong round-trip latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	reg.MustRegister(
		c.connectionState,
		c.reconnectsTotal,
		c.framesReceived,
		c.framesSent,
		c.framesDropped,
		c.queueDepth,
		c.queueDropsTotal,
		c.heartbeatLatency,
	)

	return c
}

// SetState marks state as active and every other known state inactive.
func (c *Collector) SetState(state string, all []string) {
	if c == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1.0
		}
		c.connectionState.WithLabelValues(s).Set(v)
	}
}

// ReconnectAttempt counts one reconnection attempt.
func (c *Collector) ReconnectAttempt() {
	if c == nil {
		return
	}
	c.reconnectsTotal.Inc()
}

// FrameReceived counts one inbound frame.
func (c *Collector) FrameReceived() {
	if c == nil {
		return
	}
	c.framesReceived.Inc()
}

// FrameSent counts one outbound frame.
func (c *Collector) FrameSent() {
	if c == nil {
		return
	}
	c.framesSent.Inc()
}

// FrameDropped counts a dropped frame by reason ("parse", "unroutable").
func (c *Collector) FrameDropped(reason string) {
	if c == nil {
		return
	}
	c.framesDropped.WithLabelValues(reason).Inc()
}

// QueueDepth records the current queue length.
func (c *Collector) QueueDepth(n int) {
	if c == nil {
		return
	}
	c.queueDepth.Set(float64(n))
}

// QueueDrop counts a discarded queued message by reason ("expired",
// "evicted", "attempts").
func (c *Collector) QueueDrop(reason string) {
	if c == nil {
		return
	}
	c.queueDropsTotal.WithLabelValues(reason).Inc()
}

// HeartbeatLatency records one ping/pong round trip.
func (c *Collector) HeartbeatLatency(d time.Duration) {
	if c == nil {
		return
	}
	c.heartbeatLatency.Observe(d.Seconds())
}
