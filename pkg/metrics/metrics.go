package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MonitorMetrics records change notifications.
type MonitorMetrics interface {
	// EventEmitted counts one event delivered to a consumer.
	EventEmitted(kind, signal string)
	// EventDiscarded counts one event dropped because the monitor was paused.
	EventDiscarded(kind string)
}

// QueueMetrics records operation queue state.
type QueueMetrics interface {
	SetActive(name string, active bool)
	SetPending(name string, pending int)
	OperationReleased(name string)
}

// DiskUsageMetrics records background size calculations.
type DiskUsageMetrics interface {
	CalculationStarted()
	CalculationFinished(cancelled bool, duration time.Duration)
}

type monitorMetrics struct {
	emitted   *prometheus.CounterVec
	discarded *prometheus.CounterVec
}

type queueMetrics struct {
	active   *prometheus.GaugeVec
	pending  *prometheus.GaugeVec
	released *prometheus.CounterVec
}

type diskUsageMetrics struct {
	inFlight prometheus.Gauge
	duration *prometheus.HistogramVec
}

// Collectors are created once per process; promauto panics on duplicates.
var (
	monitorOnce    sync.Once
	monitorShared  *monitorMetrics
	queueOnce      sync.Once
	queueShared    *queueMetrics
	diskUsageOnce  sync.Once
	diskUsageShare *diskUsageMetrics
)

// NewMonitorMetrics returns the Prometheus monitor metrics, or a no-op
// implementation when metrics are disabled.
func NewMonitorMetrics() MonitorMetrics {
	if !IsEnabled() {
		return NoopMonitorMetrics{}
	}

	monitorOnce.Do(func() {
		reg := GetRegistry()
		monitorShared = &monitorMetrics{
			emitted: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "monitor_events_total",
					Help:      "Change notifications delivered to consumers by monitor kind and signal",
				},
				[]string{"kind", "signal"},
			),
			discarded: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "monitor_events_discarded_total",
					Help:      "Change notifications dropped while a monitor was paused",
				},
				[]string{"kind"},
			),
		}
	})
	return monitorShared
}

func (m *monitorMetrics) EventEmitted(kind, signal string) {
	m.emitted.WithLabelValues(kind, signal).Inc()
}

func (m *monitorMetrics) EventDiscarded(kind string) {
	m.discarded.WithLabelValues(kind).Inc()
}

// NewQueueMetrics returns the Prometheus queue metrics, or a no-op
// implementation when metrics are disabled.
func NewQueueMetrics() QueueMetrics {
	if !IsEnabled() {
		return NoopQueueMetrics{}
	}

	queueOnce.Do(func() {
		reg := GetRegistry()
		queueShared = &queueMetrics{
			active: promauto.With(reg).NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "queue_active",
					Help:      "1 while an operation holds the named queue",
				},
				[]string{"queue"},
			),
			pending: promauto.With(reg).NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "queue_pending",
					Help:      "Operations waiting for the named queue",
				},
				[]string{"queue"},
			),
			released: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "queue_operations_released_total",
					Help:      "Operations allowed to start on the named queue",
				},
				[]string{"queue"},
			),
		}
	})
	return queueShared
}

func (m *queueMetrics) SetActive(name string, active bool) {
	value := 0.0
	if active {
		value = 1
	}
	m.active.WithLabelValues(name).Set(value)
}

func (m *queueMetrics) SetPending(name string, pending int) {
	m.pending.WithLabelValues(name).Set(float64(pending))
}

func (m *queueMetrics) OperationReleased(name string) {
	m.released.WithLabelValues(name).Inc()
}

// NewDiskUsageMetrics returns the Prometheus disk usage metrics, or a no-op
// implementation when metrics are disabled.
func NewDiskUsageMetrics() DiskUsageMetrics {
	if !IsEnabled() {
		return NoopDiskUsageMetrics{}
	}

	diskUsageOnce.Do(func() {
		reg := GetRegistry()
		diskUsageShare = &diskUsageMetrics{
			inFlight: promauto.With(reg).NewGauge(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "disk_usage_in_flight",
					Help:      "Directory size calculations currently running",
				},
			),
			duration: promauto.With(reg).NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "disk_usage_duration_seconds",
					Help:      "Duration of directory size calculations",
					Buckets: []float64{
						0.01, // 10ms
						0.1,  // 100ms
						1,    // 1s
						10,   // 10s
						60,   // 1m
						600,  // 10m
					},
				},
				[]string{"status"},
			),
		}
	})
	return diskUsageShare
}

func (m *diskUsageMetrics) CalculationStarted() {
	m.inFlight.Inc()
}

func (m *diskUsageMetrics) CalculationFinished(cancelled bool, duration time.Duration) {
	m.inFlight.Dec()
	status := "completed"
	if cancelled {
		status = "cancelled"
	}
	m.duration.WithLabelValues(status).Observe(duration.Seconds())
}
