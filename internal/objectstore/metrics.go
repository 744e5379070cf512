package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for store operations.
type Observer interface {
	RecordOperation(op string, duration time.Duration, err error)
}

// PrometheusObserver exports store metrics to Prometheus.
type PrometheusObserver struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewPrometheusObserver registers the store latency and error collectors.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "objectstore"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of object store calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_errors_total",
		Help:      "Count of failed object store calls.",
	}, []string{"operation"})

	if err := reg.Register(duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register store metric: %w", err)
		}
		duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	if err := reg.Register(errs); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register store metric: %w", err)
		}
		errs = are.ExistingCollector.(*prometheus.CounterVec)
	}

	return &PrometheusObserver{duration: duration, errors: errs}, nil
}

// RecordOperation tracks latency for every call and counts failures. A
// missing object is an answer, not a failure.
func (o *PrometheusObserver) RecordOperation(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil && !errors.Is(err, ErrNotExist) {
		o.errors.WithLabelValues(op).Inc()
	}
}

type instrumentedStore struct {
	next     Store
	observer Observer
}

// Instrument wraps store so that every call is reported to observer.
func Instrument(store Store, observer Observer) Store {
	if observer == nil {
		return store
	}
	return &instrumentedStore{next: store, observer: observer}
}

func (s *instrumentedStore) SignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	start := time.Now()
	u, err := s.next.SignUpload(ctx, key, contentType, ttl)
	s.observer.RecordOperation("sign_upload", time.Since(start), err)
	return u, err
}

func (s *instrumentedStore) SignRead(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	u, err := s.next.SignRead(ctx, key, ttl)
	s.observer.RecordOperation("sign_read", time.Since(start), err)
	return u, err
}

func (s *instrumentedStore) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	start := time.Now()
	info, err := s.next.HeadObject(ctx, key)
	s.observer.RecordOperation("head", time.Since(start), err)
	return info, err
}

func (s *instrumentedStore) DeleteObject(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.DeleteObject(ctx, key)
	s.observer.RecordOperation("delete", time.Since(start), err)
	return err
}
