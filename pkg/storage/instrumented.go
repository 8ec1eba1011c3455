package storage

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/ioevents/pkg/observability"
)

// InstrumentedStore records the outcome and latency of every call on the
// wrapped store
type InstrumentedStore struct {
	CursorStore
	backend string
	metrics *observability.OTelMetrics
}

// Instrument wraps store. A nil metrics returns store unchanged.
func Instrument(store CursorStore, backend Type, metrics *observability.OTelMetrics) CursorStore {
	if metrics == nil {
		return store
	}
	if backend == "" {
		backend = TypeMemory
	}
	return &InstrumentedStore{CursorStore: store, backend: string(backend), metrics: metrics}
}

func (s *InstrumentedStore) Load(ctx context.Context, key string) (string, error) {
	start := time.Now()
	next, err := s.CursorStore.Load(ctx, key)
	s.record(ctx, "load", err, start)
	return next, err
}

func (s *InstrumentedStore) Save(ctx context.Context, key, nextURL string) error {
	start := time.Now()
	err := s.CursorStore.Save(ctx, key, nextURL)
	s.record(ctx, "save", err, start)
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.CursorStore.Delete(ctx, key)
	s.record(ctx, "delete", err, start)
	return err
}

func (s *InstrumentedStore) record(ctx context.Context, op string, err error, start time.Time) {
	outcome := observability.OutcomeOK
	switch {
	case errors.Is(err, ErrCursorNotFound):
		outcome = observability.OutcomeNotFound
	case err != nil:
		outcome = observability.OutcomeError
	}
	s.metrics.RecordStoreOp(ctx, s.backend, op, outcome, time.Since(start))
}
