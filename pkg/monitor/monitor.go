// Package monitor normalizes filesystem change notifications into a small
// signal vocabulary. Events are delivered on a channel; the host event loop
// is the single consumer.
package monitor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"sunflower/pkg/metrics"
)

// Signal is a normalized change notification.
type Signal int

const (
	SignalChanged Signal = iota
	// SignalChangesDone is a hint that a burst of changes probably ended.
	// Its absence is not an error.
	SignalChangesDone
	SignalDeleted
	SignalCreated
	SignalAttributeChanged
	SignalPreUnmount
	SignalUnmounted
	// SignalMoved is the only signal carrying OtherPath.
	SignalMoved
	// SignalDirectorySizeChanged is never produced by a watch. Background size
	// aggregators push it to report progress through the same queue.
	SignalDirectorySizeChanged
)

var signalNames = map[Signal]string{
	SignalChanged:              "changed",
	SignalChangesDone:          "changes_done",
	SignalDeleted:              "deleted",
	SignalCreated:              "created",
	SignalAttributeChanged:     "attribute_changed",
	SignalPreUnmount:           "pre_unmount",
	SignalUnmounted:            "unmounted",
	SignalMoved:                "moved",
	SignalDirectorySizeChanged: "directory_size_changed",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// Event is one emitted notification.
type Event struct {
	Signal    Signal `json:"signal"`
	Path      string `json:"path"`
	OtherPath string `json:"other_path,omitempty"`
}

// NewEvent builds an event, dropping otherPath for every signal but Moved.
func NewEvent(signal Signal, path, otherPath string) Event {
	if signal != SignalMoved {
		otherPath = ""
	}
	return Event{Signal: signal, Path: path, OtherPath: otherPath}
}

// Queue accepts pushed events from code that performs changes itself.
type Queue interface {
	Push(ev Event)
}

// QueueFunc adapts a function to Queue.
type QueueFunc func(Event)

// Push calls f.
func (f QueueFunc) Push(ev Event) {
	f(ev)
}

// Monitor is a change-notification source bound to one path.
type Monitor interface {
	// Path returns the watched path.
	Path() string
	// Events delivers notifications. The channel is closed by Cancel.
	Events() <-chan Event
	// Pause suppresses emission. Events arriving meanwhile are discarded.
	Pause()
	Resume()
	IsPaused() bool
	// Cancel tears down the watch. It is safe to call more than once.
	Cancel()
	// IsQueueBased reports whether events must be pushed through Queue.
	IsQueueBased() bool
	// Queue returns nil when the monitor has no notification capability.
	Queue() Queue
}

// MonitorError is returned when a watch cannot be established. Callers are
// expected to fall back to a manual monitor.
type MonitorError struct {
	Path string
	Err  error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("monitor %s: %v", e.Path, e.Err)
}

func (e *MonitorError) Unwrap() error {
	return e.Err
}

const eventBuffer = 64

// emitter owns the events channel. Sends never race with the close.
type emitter struct {
	kind    string
	path    string
	events  chan Event
	done    chan struct{}
	sendMu  sync.Mutex
	once    sync.Once
	paused  atomic.Bool
	metrics metrics.MonitorMetrics
}

func newEmitter(kind, path string, m metrics.MonitorMetrics) *emitter {
	if m == nil {
		m = metrics.NoopMonitorMetrics{}
	}
	return &emitter{
		kind:    kind,
		path:    path,
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
		metrics: m,
	}
}

// send blocks until the event is consumed or the monitor is cancelled.
func (e *emitter) send(ev Event) bool {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	select {
	case <-e.done:
		return false
	default:
	}

	select {
	case e.events <- ev:
		e.metrics.EventEmitted(e.kind, ev.Signal.String())
		return true
	case <-e.done:
		return false
	}
}

func (e *emitter) discard() {
	e.metrics.EventDiscarded(e.kind)
}

func (e *emitter) cancelled() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *emitter) close() bool {
	closed := false
	e.once.Do(func() {
		close(e.done)
		e.sendMu.Lock()
		close(e.events)
		e.sendMu.Unlock()
		closed = true
	})
	return closed
}

// Base is the monitor of providers without notification support. It never
// emits and its Queue is nil.
type Base struct {
	*emitter
}

// NewBase returns a monitor that never emits.
func NewBase(path string) *Base {
	return &Base{emitter: newEmitter("base", path, nil)}
}

func (m *Base) Path() string         { return m.path }
func (m *Base) Events() <-chan Event { return m.events }
func (m *Base) Pause()               { m.paused.Store(true) }
func (m *Base) Resume()              { m.paused.Store(false) }
func (m *Base) IsPaused() bool       { return m.paused.Load() }
func (m *Base) Cancel()              { m.close() }
func (m *Base) IsQueueBased() bool   { return false }
func (m *Base) Queue() Queue         { return nil }
