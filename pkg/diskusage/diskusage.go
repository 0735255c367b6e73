// Package diskusage computes subtree sizes in the background. Partial totals
// are published every batch of entries and announced through a monitor
// queue, so a consumer can redraw without polling.
package diskusage

import (
	"strings"
	"sync"
	"time"

	"sunflower/pkg/location"
	"sunflower/pkg/log"
	"sunflower/pkg/metrics"
	"sunflower/pkg/models"
	"sunflower/pkg/monitor"
	"sunflower/pkg/provider"

	"github.com/dustin/go-humanize"
)

// DefaultBatchSize is the number of entries between published snapshots.
const DefaultBatchSize = 50

// Result is a snapshot of one calculation. Done is set once the whole
// subtree was walked.
type Result struct {
	Count uint64 `json:"count"`
	Size  uint64 `json:"size"`
	Done  bool   `json:"done"`
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithBatchSize sets how many entries are processed between snapshots.
func WithBatchSize(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithMetrics attaches disk usage metrics.
func WithMetrics(m metrics.DiskUsageMetrics) Option {
	return func(c *Calculator) {
		if m != nil {
			c.metrics = m
		}
	}
}

type job struct {
	stop chan struct{}
	once sync.Once
}

func (j *job) cancel() {
	j.once.Do(func() { close(j.stop) })
}

func (j *job) cancelled() bool {
	select {
	case <-j.stop:
		return true
	default:
		return false
	}
}

// Calculator runs at most one calculation per path.
type Calculator struct {
	provider  provider.Provider
	batchSize int
	metrics   metrics.DiskUsageMetrics

	mu       sync.Mutex
	inFlight map[string]*job
	results  map[string]Result
	wg       sync.WaitGroup
}

// New creates a calculator walking through p.
func New(p provider.Provider, opts ...Option) *Calculator {
	c := &Calculator{
		provider:  p,
		batchSize: DefaultBatchSize,
		metrics:   metrics.NoopDiskUsageMetrics{},
		inFlight:  make(map[string]*job),
		results:   make(map[string]Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate starts sizing path on its own goroutine. Progress is announced
// on q, which may be nil. It returns false when a calculation for the same
// path is already running.
func (c *Calculator) Calculate(path string, q monitor.Queue) bool {
	c.mu.Lock()
	if _, ok := c.inFlight[path]; ok {
		c.mu.Unlock()
		log.Debug().Str("path", path).Msg("Disk usage already in flight")
		return false
	}
	j := &job{stop: make(chan struct{})}
	c.inFlight[path] = j
	c.results[path] = Result{}
	c.wg.Add(1)
	c.mu.Unlock()

	c.metrics.CalculationStarted()
	go c.run(path, j, q)
	return true
}

// Cancel stops the calculation for path at its next check.
func (c *Calculator) Cancel(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if j, ok := c.inFlight[path]; ok {
		j.cancel()
		delete(c.inFlight, path)
	}
}

// CancelAll stops every calculation for parent or anything nested below it.
func (c *Calculator) CancelAll(parent string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path, j := range c.inFlight {
		if isNested(path, parent) {
			j.cancel()
			delete(c.inFlight, path)
		}
	}
}

// IsInFlight reports whether a calculation for path is running.
func (c *Calculator) IsInFlight(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[path]
	return ok
}

// Get returns the latest snapshot for path.
func (c *Calculator) Get(path string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[path]
	return r, ok
}

// Remove cancels any calculation for path and drops its result.
func (c *Calculator) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if j, ok := c.inFlight[path]; ok {
		j.cancel()
		delete(c.inFlight, path)
	}
	delete(c.results, path)
}

// Wait blocks until every started calculation has returned.
func (c *Calculator) Wait() {
	c.wg.Wait()
}

// Close cancels everything and waits for the workers.
func (c *Calculator) Close() {
	c.mu.Lock()
	for path, j := range c.inFlight {
		j.cancel()
		delete(c.inFlight, path)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Calculator) run(root string, j *job, q monitor.Queue) {
	defer c.wg.Done()
	start := time.Now()

	var count, size uint64
	processed := 0
	pending := []string{root}

	// Breadth-first: directories are queued and listed in discovery order
	for len(pending) > 0 && !j.cancelled() {
		dir := pending[0]
		pending[0] = ""
		pending = pending[1:]

		names, err := c.provider.ListDir(dir, "")
		if err != nil {
			log.Debug().Err(err).Str("path", dir).Msg("Disk usage skipped unreadable directory")
			continue
		}

		for _, name := range names {
			if j.cancelled() {
				break
			}
			// Links are sized as themselves, never followed
			child := location.Parse(dir).Child(name).String()
			info := c.provider.GetStat(child, "", false, false).Base()
			if !info.IsValid() {
				continue
			}

			count++
			if info.Type == models.FileTypeDirectory {
				pending = append(pending, child)
			} else {
				size += info.Size
			}

			// Publish a partial snapshot every batch
			processed++
			if processed%c.batchSize == 0 {
				c.publish(root, j, Result{Count: count, Size: size}, q)
			}
		}
	}

	cancelled := j.cancelled()
	if !cancelled {
		c.publish(root, j, Result{Count: count, Size: size, Done: true}, q)
	}

	// A newer job for the same root owns the entry now
	c.mu.Lock()
	if c.inFlight[root] == j {
		delete(c.inFlight, root)
	}
	c.mu.Unlock()

	c.metrics.CalculationFinished(cancelled, time.Since(start))
	log.Debug().
		Str("path", root).
		Uint64("count", count).
		Str("size", humanize.IBytes(size)).
		Bool("cancelled", cancelled).
		Dur("duration", time.Since(start)).
		Msg("Disk usage finished")
}

// publish stores a snapshot unless the job was cancelled or replaced, then
// announces it.
func (c *Calculator) publish(root string, j *job, r Result, q monitor.Queue) {
	c.mu.Lock()
	if j.cancelled() {
		c.mu.Unlock()
		return
	}
	c.results[root] = r
	c.mu.Unlock()

	if q != nil {
		q.Push(monitor.NewEvent(monitor.SignalDirectorySizeChanged, root, ""))
	}
}

func isNested(path, parent string) bool {
	if path == parent {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(parent, "/")+"/")
}
