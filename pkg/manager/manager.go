package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sunflower/pkg/config"
	"sunflower/pkg/diskusage"
	"sunflower/pkg/location"
	"sunflower/pkg/log"
	"sunflower/pkg/metrics"
	"sunflower/pkg/models"
	"sunflower/pkg/monitor"
	"sunflower/pkg/provider"
	"sunflower/pkg/provider/gio"
	"sunflower/pkg/provider/local"
	"sunflower/pkg/provider/zip"
	"sunflower/pkg/queue"
)

// Manager ties providers, operation queues and disk usage together. Providers
// are created once per scheme and shared; archive providers are created per
// archive and must be released by the caller.
type Manager struct {
	cfg      *config.Config
	registry *provider.Registry
	queues   *queue.Registry

	mu        sync.Mutex
	providers map[string]provider.Provider
	archives  map[provider.Provider]struct{}
	usage     map[provider.Provider]*diskusage.Calculator
}

// New creates a manager with every built-in provider registered. A nil cfg
// uses the defaults.
func New(cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}

	m := &Manager{
		cfg:       cfg,
		registry:  provider.NewRegistry(),
		queues:    queue.New(queue.WithMetrics(metrics.NewQueueMetrics())),
		providers: make(map[string]provider.Provider),
		archives:  make(map[provider.Provider]struct{}),
		usage:     make(map[provider.Provider]*diskusage.Calculator),
	}
	RegisterDefaults(m.registry)
	return m
}

// RegisterDefaults adds the local, gvfs and zip factories to r.
func RegisterDefaults(r *provider.Registry) {
	r.Register(local.Protocol, local.Factory)
	for _, proto := range gio.Protocols() {
		r.Register(proto.Scheme, gio.FactoryFor(proto))
	}
	for _, ct := range []string{
		provider.ContentTypeZip,
		provider.ContentTypeJar,
		provider.ContentTypeWar,
		provider.ContentTypeJavaArchive,
		"application/java-archive",
	} {
		r.RegisterContentType(ct, zip.Factory)
	}
}

// Registry returns the provider registry.
func (m *Manager) Registry() *provider.Registry {
	return m.registry
}

// Queues returns the operation queue registry.
func (m *Manager) Queues() *queue.Registry {
	return m.queues
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// ProviderOptions returns the options every provider is built with.
func (m *Manager) ProviderOptions() provider.Options {
	return provider.Options{
		Owner:     "sunflower",
		MountRoot: m.cfg.GIO.MountRoot,
		TrashDir:  m.cfg.Trash.Dir,
		MonitorOptions: []monitor.Option{
			monitor.WithInterval(m.cfg.Monitor.Interval),
			monitor.WithChangesDoneDelay(m.cfg.Monitor.ChangesDoneDelay),
			monitor.WithMetrics(metrics.NewMonitorMetrics()),
		},
	}
}

// Provider returns the shared provider serving uri's scheme.
func (m *Manager) Provider(uri string) (provider.Provider, error) {
	scheme := location.Parse(uri).Scheme

	m.mu.Lock()
	defer m.mu.Unlock()

	// Reuse the provider already serving this scheme
	if p, ok := m.providers[scheme]; ok {
		return p, nil
	}

	// First use of the scheme, create and cache it
	p, err := m.registry.Open(uri, m.ProviderOptions())
	if err != nil {
		return nil, err
	}
	m.providers[scheme] = p
	return p, nil
}

// OpenArchive returns a fresh provider presenting the archive at path. The
// manager holds it until ReleaseArchive or Close.
func (m *Manager) OpenArchive(path string) (provider.Provider, error) {
	p, err := m.registry.OpenArchive(path, m.ProviderOptions())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.archives[p] = struct{}{}
	m.mu.Unlock()
	return p, nil
}

// ReleaseArchive closes an archive provider and forgets its disk usage.
func (m *Manager) ReleaseArchive(p provider.Provider) error {
	binder, ok := p.(provider.ArchiveBinder)
	if !ok {
		return provider.Unsupported("release_archive_handle", p.Protocol())
	}

	m.mu.Lock()
	delete(m.archives, p)
	m.mu.Unlock()

	// Stop calculations before the handle they read through goes away.
	m.dropUsage(p)
	return binder.ReleaseArchiveHandle()
}

// HeldArchives returns how many archive providers are still open.
func (m *Manager) HeldArchives() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.archives)
}

// Watch opens a monitor on uri through its provider.
func (m *Manager) Watch(uri string) (monitor.Monitor, error) {
	p, err := m.Provider(uri)
	if err != nil {
		return nil, err
	}
	if !p.GetSupport().Has(models.SupportMonitor) {
		log.Debug().Str("path", uri).Str("protocol", p.Protocol()).Msg("Provider does not declare monitoring")
	}
	mon, err := p.GetMonitor(uri)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", uri, err)
	}
	return mon, nil
}

// DiskUsage returns the calculator bound to p, creating it on first use.
func (m *Manager) DiskUsage(p provider.Provider) *diskusage.Calculator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.usage[p]; ok {
		return c
	}
	c := diskusage.New(p,
		diskusage.WithBatchSize(m.cfg.DiskUsage.BatchSize),
		diskusage.WithMetrics(metrics.NewDiskUsageMetrics()),
	)
	m.usage[p] = c
	return c
}

func (m *Manager) dropUsage(p provider.Provider) {
	m.mu.Lock()
	c, ok := m.usage[p]
	delete(m.usage, p)
	m.mu.Unlock()

	if ok {
		c.Close()
	}
}

// QueueName maps an empty name onto the configured default lane.
func (m *Manager) QueueName(name string) string {
	if name == "" {
		return m.cfg.Queue.DefaultName
	}
	return name
}

// Run executes fn once every operation queued before it on the named lane has
// released it.
func (m *Manager) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	return m.queues.Run(ctx, m.QueueName(name), fn)
}

// Close stops every disk usage calculation and releases archive providers
// still held.
func (m *Manager) Close() error {
	m.mu.Lock()
	calculators := make([]*diskusage.Calculator, 0, len(m.usage))
	for _, c := range m.usage {
		calculators = append(calculators, c)
	}
	archives := make([]provider.ArchiveBinder, 0, len(m.archives))
	for p := range m.archives {
		if binder, ok := p.(provider.ArchiveBinder); ok {
			archives = append(archives, binder)
		}
	}
	m.usage = make(map[provider.Provider]*diskusage.Calculator)
	m.archives = make(map[provider.Provider]struct{})
	m.mu.Unlock()

	// Calculations first, they may still be reading from an archive.
	for _, c := range calculators {
		c.Close()
	}

	if len(archives) > 0 {
		log.Debug().Int("archives", len(archives)).Msg("Releasing archives still held")
	}

	// Release every archive, collecting failures
	var errs []error
	for _, binder := range archives {
		if err := binder.ReleaseArchiveHandle(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
