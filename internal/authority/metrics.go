package authority

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the authority's Prometheus metrics, registered against
// an injected registry so tests can use isolated registries.
type Collector struct {
	eventsAccepted prometheus.Counter
	pushesRejected *prometheus.CounterVec
	subscribers    prometheus.Gauge
	appendLatency  prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ordo_authority_events_accepted_total",
			Help: "Events appended to the authority log.",
		}),
		pushesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordo_authority_pushes_rejected_total",
			Help: "Rejected push exchanges by error code.",
		}, []string{"code"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ordo_authority_subscribers",
			Help: "Currently connected live subscribers.",
		}),
		appendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ordo_authority_append_latency_seconds",
			Help:    "Latency of authority log appends.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(c.eventsAccepted, c.pushesRejected, c.subscribers, c.appendLatency)
	return c
}

// All record methods tolerate a nil receiver so a server built without
// metrics needs no guards at call sites.

func (c *Collector) RecordAccepted(n int) {
	if c == nil {
		return
	}
	c.eventsAccepted.Add(float64(n))
}

func (c *Collector) RecordRejected(code string) {
	if c == nil {
		return
	}
	c.pushesRejected.WithLabelValues(code).Inc()
}

func (c *Collector) SubscriberConnected() {
	if c == nil {
		return
	}
	c.subscribers.Inc()
}

func (c *Collector) SubscriberDisconnected() {
	if c == nil {
		return
	}
	c.subscribers.Dec()
}

func (c *Collector) RecordAppendLatency(d time.Duration) {
	if c == nil {
		return
	}
	c.appendLatency.Observe(d.Seconds())
}
