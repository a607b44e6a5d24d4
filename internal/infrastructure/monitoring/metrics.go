package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the filesystem collectors.
type Metrics struct {
	MountsActive  prometheus.Gauge
	MountOps      *prometheus.CounterVec
	BytesRead     prometheus.Counter
	BytesWritten  prometheus.Counter
	IdentitySwaps *prometheus.CounterVec
	HandlesOpen   prometheus.Gauge
	OpDuration    *prometheus.HistogramVec

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for JSON output.
type Snapshot struct {
	MountsActive  int64 `json:"mounts_active"`
	MountOps      int64 `json:"mount_operations"`
	MountErrors   int64 `json:"mount_errors"`
	BytesRead     int64 `json:"bytes_read"`
	BytesWritten  int64 `json:"bytes_written"`
	IdentitySwaps int64 `json:"identity_changes"`
	HandlesOpen   int64 `json:"open_handles"`
}

// NewMetrics registers the collectors on reg. A nil reg keeps them
// unregistered, which suits tests and embedded use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MountsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vfs_mounts_active",
				Help: "Number of active mounts",
			},
		),
		MountOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfs_mount_operations_total",
				Help: "Total number of mount and unmount operations",
			},
			[]string{"op", "result"},
		),
		BytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vfs_bytes_read_total",
				Help: "Total bytes read through file handles",
			},
		),
		BytesWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vfs_bytes_written_total",
				Help: "Total bytes written through file handles",
			},
		),
		IdentitySwaps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfs_identity_changes_total",
				Help: "Total number of identity changes",
			},
			[]string{"result"},
		),
		HandlesOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vfs_open_handles",
				Help: "Number of open file handles",
			},
		),
		OpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vfs_operation_duration_seconds",
				Help:    "Filesystem operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),
	}
}

// RecordMountOp records a mount or unmount attempt.
func (m *Metrics) RecordMountOp(op string, err error) {
	if m == nil {
		return
	}
	result := resultOf(err)
	m.MountOps.WithLabelValues(op, result).Inc()

	m.mu.Lock()
	m.snapshot.MountOps++
	if err != nil {
		m.snapshot.MountErrors++
	}
	m.mu.Unlock()
}

// SetMountsActive sets the number of active mounts.
func (m *Metrics) SetMountsActive(count int) {
	if m == nil {
		return
	}
	m.MountsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.MountsActive = int64(count)
	m.mu.Unlock()
}

// AddBytesRead counts bytes returned to callers.
func (m *Metrics) AddBytesRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesRead.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesRead += int64(n)
	m.mu.Unlock()
}

// AddBytesWritten counts bytes accepted by the write directory.
func (m *Metrics) AddBytesWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesWritten.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesWritten += int64(n)
	m.mu.Unlock()
}

// RecordIdentitySwap records an identity change.
func (m *Metrics) RecordIdentitySwap(err error) {
	if m == nil {
		return
	}
	m.IdentitySwaps.WithLabelValues(resultOf(err)).Inc()
	m.mu.Lock()
	m.snapshot.IdentitySwaps++
	m.mu.Unlock()
}

// IncHandles counts an opened handle.
func (m *Metrics) IncHandles() {
	if m == nil {
		return
	}
	m.HandlesOpen.Inc()
	m.mu.Lock()
	m.snapshot.HandlesOpen++
	m.mu.Unlock()
}

// DecHandles counts a closed handle.
func (m *Metrics) DecHandles() {
	if m == nil {
		return
	}
	m.HandlesOpen.Dec()
	m.mu.Lock()
	m.snapshot.HandlesOpen--
	m.mu.Unlock()
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// Timer measures operation duration.
type Timer struct {
	start   time.Time
	metrics *Metrics
	op      string
}

// NewTimer starts timing op.
func NewTimer(metrics *Metrics, op string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		op:      op,
	}
}

// Stop records the elapsed time.
func (t *Timer) Stop() {
	if t.metrics == nil {
		return
	}
	t.metrics.OpDuration.WithLabelValues(t.op).Observe(time.Since(t.start).Seconds())
}
