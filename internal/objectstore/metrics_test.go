package objectstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err error
}

func (s failingStore) SignUpload(context.Context, string, string, time.Duration) (string, error) {
	return "", s.err
}

func (s failingStore) SignRead(context.Context, string, time.Duration) (string, error) {
	return "https://signed.example/read", nil
}

func (s failingStore) HeadObject(_ context.Context, key string) (ObjectInfo, error) {
	return ObjectInfo{}, fmt.Errorf("stat %q: %w", key, ErrNotExist)
}

func (s failingStore) DeleteObject(context.Context, string) error {
	return s.err
}

func TestInstrumentRecordsFailures(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	observer, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	store := Instrument(failingStore{err: errors.New("boom")}, observer)
	ctx := context.Background()

	_, err = store.SignUpload(ctx, "k", "text/plain", time.Minute)
	require.Error(t, err)
	_, err = store.SignRead(ctx, "k", time.Minute)
	require.NoError(t, err)
	_, err = store.HeadObject(ctx, "k")
	require.ErrorIs(t, err, ErrNotExist)
	require.Error(t, store.DeleteObject(ctx, "k"))

	require.Equal(t, 1.0, testutil.ToFloat64(observer.errors.WithLabelValues("sign_upload")))
	require.Equal(t, 0.0, testutil.ToFloat64(observer.errors.WithLabelValues("sign_read")))
	require.Equal(t, 0.0, testutil.ToFloat64(observer.errors.WithLabelValues("head")), "not-found is not a failure")
	require.Equal(t, 1.0, testutil.ToFloat64(observer.errors.WithLabelValues("delete")))
}

func TestNewPrometheusObserverReusesCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("dup", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("dup", reg)
	require.NoError(t, err)

	first.RecordOperation("delete", time.Millisecond, errors.New("x"))
	require.Equal(t, 1.0, testutil.ToFloat64(second.errors.WithLabelValues("delete")))
}

func TestInstrumentWithoutObserver(t *testing.T) {
	t.Parallel()

	inner := failingStore{}
	require.Equal(t, Store(inner), Instrument(inner, nil))
}
