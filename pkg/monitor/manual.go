package monitor

import (
	"sync"
	"time"

	"sunflower/pkg/metrics"
)

// DefaultInterval is how often a started manual monitor drains its queue.
const DefaultInterval = time.Second

// Option configures a monitor.
type Option func(*options)

type options struct {
	interval         time.Duration
	changesDoneDelay time.Duration
	metrics          metrics.MonitorMetrics
}

// WithInterval sets the manual monitor drain interval.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithChangesDoneDelay sets how long a native monitor waits after the last
// write to a path before emitting the ChangesDone hint.
func WithChangesDoneDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.changesDoneDelay = d
		}
	}
}

// WithMetrics attaches monitor metrics.
func WithMetrics(m metrics.MonitorMetrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		interval:         DefaultInterval,
		changesDoneDelay: DefaultChangesDoneDelay,
		metrics:          metrics.NoopMonitorMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Manual is the fallback for backends without native notification. Code that
// changes the watched tree pushes events into Queue; each drain collapses
// identical events and emits them once, in first-push order.
type Manual struct {
	*emitter
	interval time.Duration

	mu      sync.Mutex
	pending map[Event]struct{}
	order   []Event
	started bool
	stop    chan struct{}
}

// NewManual creates a manual monitor. Call Start to drain on a timer, or
// drive Flush from the host loop.
func NewManual(path string, opts ...Option) *Manual {
	o := buildOptions(opts)
	return &Manual{
		emitter:  newEmitter("manual", path, o.metrics),
		interval: o.interval,
		pending:  make(map[Event]struct{}),
	}
}

func (m *Manual) Path() string          { return m.path }
func (m *Manual) Events() <-chan Event  { return m.events }
func (m *Manual) IsQueueBased() bool    { return true }
func (m *Manual) Queue() Queue          { return m }
func (m *Manual) IsPaused() bool        { return m.paused.Load() }
func (m *Manual) Done() <-chan struct{} { return m.done }

// Interval returns the drain interval.
func (m *Manual) Interval() time.Duration {
	return m.interval
}

// Push records an event for the next drain. Events pushed while paused or
// after Cancel are discarded.
func (m *Manual) Push(ev Event) {
	ev = NewEvent(ev.Signal, ev.Path, ev.OtherPath)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused.Load() || m.cancelled() {
		m.discard()
		return
	}
	if _, ok := m.pending[ev]; ok {
		return
	}
	m.pending[ev] = struct{}{}
	m.order = append(m.order, ev)
}

// Pending returns the number of distinct events waiting for the next drain.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Flush is one drain step: it emits every distinct pending event once and
// returns how many were emitted. Nothing is emitted while paused.
func (m *Manual) Flush() int {
	m.mu.Lock()
	if m.paused.Load() || len(m.order) == 0 {
		m.mu.Unlock()
		return 0
	}
	batch := m.order
	m.order = nil
	m.pending = make(map[Event]struct{})
	m.mu.Unlock()

	emitted := 0
	for _, ev := range batch {
		if !m.send(ev) {
			break
		}
		emitted++
	}
	return emitted
}

// Start begins draining every interval on a background goroutine.
func (m *Manual) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = true
	if !m.paused.Load() {
		m.startTickerLocked()
	}
}

func (m *Manual) startTickerLocked() {
	if m.stop != nil || m.cancelled() {
		return
	}
	stop := make(chan struct{})
	m.stop = stop

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Flush()
			case <-stop:
				return
			case <-m.done:
				return
			}
		}
	}()
}

func (m *Manual) stopTickerLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

// Pause stops the drain timer and starts discarding pushed events.
func (m *Manual) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused.Store(true)
	m.stopTickerLocked()
}

// Resume drops anything left over from before the pause and restarts the
// drain timer if the monitor had been started.
func (m *Manual) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for range m.order {
		m.discard()
	}
	m.order = nil
	m.pending = make(map[Event]struct{})
	m.paused.Store(false)

	if m.started {
		m.startTickerLocked()
	}
}

// Cancel stops draining and closes the events channel.
func (m *Manual) Cancel() {
	m.mu.Lock()
	m.stopTickerLocked()
	m.order = nil
	m.pending = make(map[Event]struct{})
	m.mu.Unlock()

	m.close()
}
