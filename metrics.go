package bywhen

import (
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

var _ prometheus.Collector = &metrics{}

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	return &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bywhen",
			Name:      "requests_total",
			Help:      "Number of Slack requests processed, by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bywhen",
			Name:      "request_duration_seconds",
			Help:      "Time taken to process a Slack request, by trigger",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
	}
}

func (m *metrics) observe(trigger string, result Result, duration time.Duration) {
	m.requests.WithLabelValues(trigger, string(result.Outcome)).Inc()
	m.duration.WithLabelValues(trigger).Observe(duration.Seconds())
}

func (m *metrics) Describe(ch chan<- *prometheus.Desc) {
	m.requests.Describe(ch)
	m.duration.Describe(ch)
}

func (m *metrics) Collect(ch chan<- prometheus.Metric) {
	m.requests.Collect(ch)
	m.duration.Collect(ch)
}
