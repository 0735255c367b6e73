// Package queue sequences long-running operations through named lanes. At
// most one operation runs per name; waiting operations under the same name
// start in the order they were added. Different names never block each other.
package queue

import (
	"context"
	"sort"
	"sync"

	"sunflower/pkg/log"
	"sunflower/pkg/metrics"

	"github.com/google/uuid"
)

// DefaultName is the queue used when no name is given.
const DefaultName = "Default"

// Event is a one-shot start signal for a pending operation.
type Event struct {
	ID   string
	once sync.Once
	ch   chan struct{}
}

// NewEvent creates an unset event.
func NewEvent() *Event {
	return &Event{
		ID: uuid.NewString(),
		ch: make(chan struct{}),
	}
}

// Set signals the event. Setting twice is harmless.
func (e *Event) Set() {
	e.once.Do(func() { close(e.ch) })
}

// IsSet reports whether the event has been signalled.
func (e *Event) IsSet() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the event is set.
func (e *Event) Done() <-chan struct{} {
	return e.ch
}

// Wait blocks until the event is set or ctx is done. A set event wins over a
// done context.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.ch:
		return nil
	default:
	}

	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status is a point-in-time view of one queue.
type Status struct {
	Name    string `json:"name"`
	Active  bool   `json:"active"`
	Pending int    `json:"pending"`
}

type lane struct {
	active  bool
	pending []*Event
}

// Registry holds every named queue. Queues are created on first use and
// live as long as the registry.
type Registry struct {
	mu      sync.Mutex
	lanes   map[string]*lane
	metrics metrics.QueueMetrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics attaches queue metrics.
func WithMetrics(m metrics.QueueMetrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		lanes:   make(map[string]*lane),
		metrics: metrics.NoopQueueMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func normalize(name string) string {
	if name == "" {
		return DefaultName
	}
	return name
}

func (r *Registry) laneLocked(name string) *lane {
	l, ok := r.lanes[name]
	if !ok {
		l = &lane{}
		r.lanes[name] = l
	}
	return l
}

// Add enqueues ev under name. If nothing is running on that queue the event
// is set immediately and the queue becomes active.
func (r *Registry) Add(name string, ev *Event) {
	name = normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.laneLocked(name)
	if !l.active {
		l.active = true
		r.metrics.SetActive(name, true)
		r.metrics.OperationReleased(name)
		ev.Set()
		log.Debug().Str("queue", name).Str("operation", ev.ID).Msg("Operation started immediately")
		return
	}

	l.pending = append(l.pending, ev)
	r.metrics.SetPending(name, len(l.pending))
	log.Debug().Str("queue", name).Str("operation", ev.ID).Int("pending", len(l.pending)).
		Msg("Operation waiting for queue")
}

// Enqueue is Add with a fresh event.
func (r *Registry) Enqueue(name string) *Event {
	ev := NewEvent()
	r.Add(name, ev)
	return ev
}

// StartNext is called by a finishing operation. It releases the oldest
// waiting event, or marks the queue inactive when nothing is waiting.
func (r *Registry) StartNext(name string) {
	name = normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.laneLocked(name)
	if len(l.pending) == 0 {
		l.active = false
		r.metrics.SetActive(name, false)
		log.Debug().Str("queue", name).Msg("Queue idle")
		return
	}

	next := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	l.active = true
	r.metrics.SetPending(name, len(l.pending))
	r.metrics.OperationReleased(name)
	next.Set()
	log.Debug().Str("queue", name).Str("operation", next.ID).Int("pending", len(l.pending)).
		Msg("Next operation released")
}

// Remove drops a waiting event that was never started, e.g. when the user
// cancels an operation still in line. It reports whether ev was found.
func (r *Registry) Remove(name string, ev *Event) bool {
	name = normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lanes[name]
	if !ok {
		return false
	}
	for i, pending := range l.pending {
		if pending == ev {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			r.metrics.SetPending(name, len(l.pending))
			return true
		}
	}
	return false
}

// IsActive reports whether an operation currently holds the queue.
func (r *Registry) IsActive(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lanes[normalize(name)]
	return ok && l.active
}

// Pending returns the number of operations waiting on the queue.
func (r *Registry) Pending(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.lanes[normalize(name)]; ok {
		return len(l.pending)
	}
	return 0
}

// Names returns every known queue name, sorted, always including DefaultName.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.laneLocked(DefaultName)
	names := make([]string, 0, len(r.lanes))
	for name := range r.lanes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the status of every queue, sorted by name.
func (r *Registry) Snapshot() []Status {
	names := r.Names()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, 0, len(names))
	for _, name := range names {
		l := r.lanes[name]
		out = append(out, Status{Name: name, Active: l.active, Pending: len(l.pending)})
	}
	return out
}

// Run waits for the queue, calls fn, then advances the queue whatever fn
// returns. If ctx ends while still waiting, the event is withdrawn and
// ctx's error is returned without calling fn.
func (r *Registry) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	ev := r.Enqueue(name)
	if err := ev.Wait(ctx); err != nil {
		if r.Remove(name, ev) {
			return err
		}
		// Released concurrently with the cancellation; hand the slot on.
		r.StartNext(name)
		return err
	}
	defer r.StartNext(name)
	return fn(ctx)
}
