package monitor

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sunflower/pkg/log"

	"github.com/fsnotify/fsnotify"
)

// DefaultChangesDoneDelay is the quiet period after a write before the
// ChangesDone hint is emitted.
const DefaultChangesDoneDelay = 500 * time.Millisecond

// Native wraps an fsnotify watch on a single directory or file.
type Native struct {
	*emitter
	watcher *fsnotify.Watcher
	root    string
	delay   time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// NewNative establishes a watch on path. Failures are returned as
// *MonitorError so the caller can fall back to a manual monitor.
func NewNative(path string, opts ...Option) (*Native, error) {
	o := buildOptions(opts)

	root := filepath.Clean(path)
	if _, err := os.Stat(root); err != nil {
		return nil, &MonitorError{Path: path, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &MonitorError{Path: path, Err: err}
	}
	if err := watcher.Add(root); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", root).Msg("Failed to close watcher after add error")
		}
		return nil, &MonitorError{Path: path, Err: err}
	}

	n := &Native{
		emitter: newEmitter("native", root, o.metrics),
		watcher: watcher,
		root:    root,
		delay:   o.changesDoneDelay,
		timers:  make(map[string]*time.Timer),
	}

	n.wg.Add(1)
	go n.loop()

	log.Debug().Str("path", root).Msg("Native monitor started")
	return n, nil
}

func (n *Native) Path() string         { return n.path }
func (n *Native) Events() <-chan Event { return n.events }
func (n *Native) Pause()               { n.paused.Store(true) }
func (n *Native) Resume()              { n.paused.Store(false) }
func (n *Native) IsPaused() bool       { return n.paused.Load() }
func (n *Native) IsQueueBased() bool   { return false }
func (n *Native) Queue() Queue         { return nil }

func (n *Native) loop() {
	defer n.wg.Done()

	for {
		select {
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handle(ev)
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// The kernel dropped events; a consumer must rescan.
				n.deliver(NewEvent(SignalChanged, n.root, ""))
				continue
			}
			log.Warn().Err(err).Str("path", n.root).Msg("Native monitor error")
		case <-n.done:
			return
		}
	}
}

// translate maps one fsnotify event onto the signal vocabulary. A single
// fsnotify event may carry several operations.
func (n *Native) translate(ev fsnotify.Event) []Event {
	name := filepath.Clean(ev.Name)
	var out []Event

	if ev.Has(fsnotify.Create) {
		out = append(out, NewEvent(SignalCreated, name, ""))
	}
	if ev.Has(fsnotify.Write) {
		out = append(out, NewEvent(SignalChanged, name, ""))
	}
	// fsnotify reports the destination of a rename as a separate Create, so
	// the source is gone as far as this directory is concerned.
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		out = append(out, NewEvent(SignalDeleted, name, ""))
		if name == n.root {
			out = append(out, NewEvent(SignalUnmounted, name, ""))
		}
	}
	if ev.Has(fsnotify.Chmod) {
		out = append(out, NewEvent(SignalAttributeChanged, name, ""))
	}
	return out
}

func (n *Native) handle(ev fsnotify.Event) {
	for _, out := range n.translate(ev) {
		if !n.deliver(out) {
			continue
		}
		if out.Signal == SignalChanged {
			n.scheduleChangesDone(out.Path)
		}
	}
}

func (n *Native) deliver(ev Event) bool {
	if n.paused.Load() {
		n.discard()
		return false
	}
	return n.send(ev)
}

func (n *Native) scheduleChangesDone(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancelled() {
		return
	}
	if timer, ok := n.timers[path]; ok {
		timer.Reset(n.delay)
		return
	}
	n.timers[path] = time.AfterFunc(n.delay, func() {
		n.mu.Lock()
		delete(n.timers, path)
		n.mu.Unlock()
		n.deliver(NewEvent(SignalChangesDone, path, ""))
	})
}

// Cancel removes the watch and closes the events channel.
func (n *Native) Cancel() {
	n.mu.Lock()
	for path, timer := range n.timers {
		timer.Stop()
		delete(n.timers, path)
	}
	n.mu.Unlock()

	if !n.close() {
		return
	}
	if err := n.watcher.Close(); err != nil {
		log.Warn().Err(err).Str("path", n.root).Msg("Failed to close watcher")
	}
	n.wg.Wait()
	log.Debug().Str("path", n.root).Msg("Native monitor cancelled")
}
