package metrics

import (
	"context"
	"time"

	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoreMetrics records namespace store calls.
type StoreMetrics interface {
	// RecordOperation records a completed store operation.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "PathToHandle", "Mkdir", "Move")
	//   - duration: Time taken to complete the operation
	//   - err: Error if operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)
}

// storeMetrics is the Prometheus implementation of StoreMetrics.
type storeMetrics struct {
	storeType         string
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates a Prometheus-backed StoreMetrics instance.
//
// Parameters:
//   - storeType: Type of namespace store (e.g., "chimera", "badger")
//
// Returns a no-op implementation if metrics are not enabled.
func NewStoreMetrics(storeType string) StoreMetrics {
	if !IsEnabled() {
		return noopStoreMetrics{}
	}
	return newStoreMetrics(GetRegistry(), storeType)
}

func newStoreMetrics(reg prometheus.Registerer, storeType string) *storeMetrics {
	return &storeMetrics{
		storeType: storeType,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenmig_namespace_operations_total",
				Help: "Namespace store operations by store type, operation and status",
			},
			[]string{"store_type", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tokenmig_namespace_operation_duration_seconds",
				Help: "Duration of namespace store operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.025,  // 25ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"store_type", "operation"},
		),
	}
}

func (m *storeMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(m.storeType, operation, status).Inc()
	m.operationDuration.WithLabelValues(m.storeType, operation).Observe(duration.Seconds())
}

type noopStoreMetrics struct{}

func (noopStoreMetrics) RecordOperation(operation string, duration time.Duration, err error) {}

// instrumentedStore decorates a namespace.Store with operation metrics.
type instrumentedStore struct {
	namespace.Store
	m StoreMetrics
}

// InstrumentStore wraps store so every call is timed and counted. When m is
// nil the store is returned unchanged.
func InstrumentStore(store namespace.Store, m StoreMetrics) namespace.Store {
	if m == nil {
		return store
	}
	if _, ok := m.(noopStoreMetrics); ok {
		return store
	}
	return &instrumentedStore{Store: store, m: m}
}

func (s *instrumentedStore) PathToHandle(ctx context.Context, path string) (namespace.FileHandle, error) {
	start := time.Now()
	handle, err := s.Store.PathToHandle(ctx, path)
	s.m.RecordOperation("PathToHandle", time.Since(start), err)
	return handle, err
}

func (s *instrumentedStore) HandleToPath(ctx context.Context, handle namespace.FileHandle, root namespace.FileHandle) (string, error) {
	start := time.Now()
	p, err := s.Store.HandleToPath(ctx, handle, root)
	s.m.RecordOperation("HandleToPath", time.Since(start), err)
	return p, err
}

func (s *instrumentedStore) EntryType(ctx context.Context, handle namespace.FileHandle) (namespace.FileType, error) {
	start := time.Now()
	fileType, err := s.Store.EntryType(ctx, handle)
	s.m.RecordOperation("EntryType", time.Since(start), err)
	return fileType, err
}

func (s *instrumentedStore) IDToHandle(ctx context.Context, id string) (namespace.FileHandle, error) {
	start := time.Now()
	handle, err := s.Store.IDToHandle(ctx, id)
	s.m.RecordOperation("IDToHandle", time.Since(start), err)
	return handle, err
}

func (s *instrumentedStore) Mkdir(ctx context.Context, parent namespace.FileHandle, name string, uid, gid, mode uint32) (namespace.FileHandle, error) {
	start := time.Now()
	handle, err := s.Store.Mkdir(ctx, parent, name, uid, gid, mode)
	s.m.RecordOperation("Mkdir", time.Since(start), err)
	return handle, err
}

func (s *instrumentedStore) Move(ctx context.Context, handle, fromDir namespace.FileHandle, fromName string, toDir namespace.FileHandle, toName string) error {
	start := time.Now()
	err := s.Store.Move(ctx, handle, fromDir, fromName, toDir, toName)
	s.m.RecordOperation("Move", time.Since(start), err)
	return err
}
