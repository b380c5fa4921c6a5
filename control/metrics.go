// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics of acceptors and connections, exported as prometheus
// collectors. A nil *Metrics is valid and records nothing.

package control

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Direction label values.
const (
	DirRead     = "read"
	DirWrite    = "write"
	DirAccept   = "accept"
	DirConnect  = "connect"
	DirReadable = "readable"
	DirWritable = "writable"
)

// Metrics holds the collectors.
type Metrics struct {
	Accepted      prometheus.Counter
	BytesRead     prometheus.Counter
	BytesWritten  prometheus.Counter
	PendingBytes  prometheus.Gauge
	FlushFailures prometheus.Counter
	Suspensions   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "accepted_connections_total",
			Help: "Connections produced by AsyncAccept.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "read_bytes_total",
			Help: "Bytes returned by AsyncRead.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "written_bytes_total",
			Help: "Bytes handed to the kernel by AsyncWrite and write flushes.",
		}),
		PendingBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "pending_write_bytes",
			Help: "Bytes queued until the socket becomes writable.",
		}),
		FlushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tcp", Name: "flush_failures_total",
			Help: "Connections closed because a pending write could not be flushed.",
		}),
		Suspensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "task", Name: "suspensions_total",
			Help: "Operations parked waiting for readiness.",
		}, []string{"op"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "task", Name: "notifications_total",
			Help: "Readiness notifications delivered by the driver.",
		}, []string{"event"}),
	}
}

// Collectors lists every collector.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Accepted, m.BytesRead, m.BytesWritten, m.PendingBytes,
		m.FlushFailures, m.Suspensions, m.Notifications,
	}
}

// Register adds every collector to r. Collectors already registered are
// left in place.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}

func (m *Metrics) ObserveAccepted() {
	if m != nil {
		m.Accepted.Inc()
	}
}

func (m *Metrics) ObserveRead(n int) {
	if m != nil && n > 0 {
		m.BytesRead.Add(float64(n))
	}
}

func (m *Metrics) ObserveWritten(n int) {
	if m != nil && n > 0 {
		m.BytesWritten.Add(float64(n))
	}
}

func (m *Metrics) AddPending(delta int) {
	if m != nil && delta != 0 {
		m.PendingBytes.Add(float64(delta))
	}
}

func (m *Metrics) ObserveFlushFailure() {
	if m != nil {
		m.FlushFailures.Inc()
	}
}

func (m *Metrics) ObserveSuspend(op string) {
	if m != nil {
		m.Suspensions.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) ObserveNotify(event string) {
	if m != nil {
		m.Notifications.WithLabelValues(event).Inc()
	}
}
