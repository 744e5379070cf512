package attachment

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// SwallowedFailures counts storage failures that were logged but, by
// contract, not returned to the caller. A nil *SwallowedFailures is valid and
// counts nothing.
type SwallowedFailures struct {
	counter *prometheus.CounterVec
}

// NewSwallowedFailures registers the counter with reg.
func NewSwallowedFailures(namespace string, reg prometheus.Registerer) (*SwallowedFailures, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "attachment",
		Name:      "swallowed_storage_failures_total",
		Help:      "Storage failures tolerated during reads and cascading deletes.",
	}, []string{"operation"})

	if err := reg.Register(counter); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register attachment metric: %w", err)
		}
		counter = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return &SwallowedFailures{counter: counter}, nil
}

func (s *SwallowedFailures) Inc(op string) {
	if s == nil {
		return
	}
	s.counter.WithLabelValues(op).Inc()
}
