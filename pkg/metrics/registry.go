// Package metrics provides Prometheus metrics for the monitor, queue and disk
// usage components.
//
// Metrics are optional. Until InitRegistry is called every constructor returns
// a no-op implementation, so library users pay nothing for them.
//
//	metrics.InitRegistry()
//	queues := queue.New(queue.WithMetrics(metrics.NewQueueMetrics()))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sunflower"

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process registry. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
