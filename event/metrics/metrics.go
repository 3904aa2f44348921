// Package metrics exports dispatcher measurements to Prometheus.
package metrics

import (
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dshills/eventbus/event"
	"github.com/dshills/eventbus/event/dispatch"
)

// Collector holds Prometheus metrics for an event dispatcher.
// Pass it to event.WithObserver.
type Collector struct {
	// Dispatches is the number of events that reached at least one listener.
	Dispatches *prometheus.CounterVec

	// Invocations counts listener invocations by outcome (ok, error, panic).
	Invocations *prometheus.CounterVec

	// DispatchDuration is the time spent running all listeners of one event.
	DispatchDuration *prometheus.HistogramVec
}

var _ event.Observer = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		Dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Total number of events delivered to at least one listener",
			},
			[]string{"event_type"},
		),

		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listener_invocations_total",
				Help:      "Total number of listener invocations by outcome",
			},
			[]string{"event_type", "outcome"},
		),

		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Time to run every listener of one event",
				Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"event_type"},
		),
	}
}

// ObserveInvocation implements event.Observer.
func (c *Collector) ObserveInvocation(eventType reflect.Type, _ string, result dispatch.Result) {
	c.Invocations.WithLabelValues(eventType.String(), result.Outcome()).Inc()
}

// ObserveDispatch implements event.Observer.
func (c *Collector) ObserveDispatch(eventType reflect.Type, _ int, elapsed time.Duration) {
	t := eventType.String()
	c.Dispatches.WithLabelValues(t).Inc()
	c.DispatchDuration.WithLabelValues(t).Observe(elapsed.Seconds())
}
