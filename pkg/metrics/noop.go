package metrics

import "time"

// NoopMonitorMetrics discards everything.
type NoopMonitorMetrics struct{}

func (NoopMonitorMetrics) EventEmitted(string, string) {}
func (NoopMonitorMetrics) EventDiscarded(string)       {}

// NoopQueueMetrics discards everything.
type NoopQueueMetrics struct{}

func (NoopQueueMetrics) SetActive(string, bool)   {}
func (NoopQueueMetrics) SetPending(string, int)   {}
func (NoopQueueMetrics) OperationReleased(string) {}

// NoopDiskUsageMetrics discards everything.
type NoopDiskUsageMetrics struct{}

func (NoopDiskUsageMetrics) CalculationStarted()                     {}
func (NoopDiskUsageMetrics) CalculationFinished(bool, time.Duration) {}
