// internal/transaction/metrics.go
package transaction

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	successCounter    prometheus.Counter
	failureCounter    prometheus.Counter
	durationHistogram prometheus.Histogram
}

// NewMetrics registers the transaction collectors with reg (the default
// registry when nil). A second Manager in the same process reuses the
// already-registered collectors instead of panicking.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	successCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "raceswap_tx_success_total",
		Help: "Total number of successfully confirmed swap transactions",
	})
	failureCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "raceswap_tx_failure_total",
		Help: "Total number of failed swap transactions",
	})
	durationHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "raceswap_tx_duration_seconds",
		Help:    "End-to-end submission-to-confirmation duration in seconds",
		Buckets: prometheus.LinearBuckets(0, 0.5, 20),
	})

	return &Metrics{
		successCounter:    registerCounter(reg, successCounter),
		failureCounter:    registerCounter(reg, failureCounter),
		durationHistogram: registerHistogram(reg, durationHistogram),
	}
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) prometheus.Counter {
	if existing, ok := register(reg, c).(prometheus.Counter); ok {
		return existing
	}
	return c
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram) prometheus.Histogram {
	if existing, ok := register(reg, h).(prometheus.Histogram); ok {
		return existing
	}
	return h
}

func register(reg prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector
		}
	}
	return collector
}

func (m *Metrics) TrackTransaction(start time.Time) {
	m.durationHistogram.Observe(time.Since(start).Seconds())
}
