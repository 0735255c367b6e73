// Package gio implements providers for remote and virtual locations served
// by gvfs. Every location is translated onto the gvfs FUSE tree and the
// actual I/O goes through the local provider.
package gio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sunflower/pkg/location"
	"sunflower/pkg/log"
	"sunflower/pkg/models"
	"sunflower/pkg/monitor"
	"sunflower/pkg/provider"
	"sunflower/pkg/provider/local"
)

// ErrNoMount is returned when no gvfs mount encloses a location.
var ErrNoMount = errors.New("location is not mounted")

// Provider serves one gvfs protocol.
type Provider struct {
	*provider.Base
	proto     Protocol
	mountRoot string
	trash     *local.Trash
	fs        *local.Provider

	monitorOpts []monitor.Option
	mu          sync.Mutex
	monitors    []*monitor.Manual
}

var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.ModeSetter      = (*Provider)(nil)
	_ provider.OwnerSetter     = (*Provider)(nil)
	_ provider.TimestampSetter = (*Provider)(nil)
	_ provider.Linker          = (*Provider)(nil)
)

// New creates a provider for proto.
func New(proto Protocol, opts provider.Options) *Provider {
	mountRoot := opts.MountRoot
	if mountRoot == "" {
		mountRoot = DefaultMountRoot()
	}
	return &Provider{
		Base:        provider.NewBase(proto.Scheme, proto.Support, false, opts),
		proto:       proto,
		mountRoot:   mountRoot,
		trash:       local.NewTrash(opts.TrashDir),
		fs:          local.New(provider.Options{}),
		monitorOpts: opts.MonitorOptions,
	}
}

// FactoryFor returns the registry hook for proto.
func FactoryFor(proto Protocol) provider.Factory {
	return func(opts provider.Options) (provider.Provider, error) {
		return New(proto, opts), nil
	}
}

// MountRoot returns the gvfs FUSE directory in use.
func (p *Provider) MountRoot() string {
	return p.mountRoot
}

// target is a location translated onto the local filesystem.
type target struct {
	loc   location.Location
	local string
	root  location.Location
}

func (p *Provider) resolve(path, relativeTo string) (target, error) {
	return p.locate(location.Resolve(path, relativeTo))
}

func (p *Provider) locate(loc location.Location) (target, error) {
	loc.Scheme = p.proto.Scheme
	loc.Path = cleanPath(loc.Path)

	if p.proto.trash {
		return target{
			loc:   loc,
			local: filepath.Join(p.trash.FilesDir(), filepath.FromSlash(loc.Path)),
			root:  loc.WithPath("/"),
		}, nil
	}

	mounts, err := ListMounts(p.mountRoot)
	if err != nil {
		return target{}, fmt.Errorf("%w: %s: %w", ErrNoMount, loc.URI(), err)
	}

	for _, m := range mounts {
		rootPath, ok := p.proto.match(m, loc)
		if !ok {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(loc.Path, rootPath), "/")
		return target{
			loc:   loc,
			local: filepath.Join(m.Dir, filepath.FromSlash(rel)),
			root:  loc.WithPath(rootPath),
		}, nil
	}
	return target{}, fmt.Errorf("%w: %s", ErrNoMount, loc.URI())
}

// GetStat stats the location through its FUSE mount.
func (p *Provider) GetStat(path, relativeTo string, extended, follow bool) models.Stat {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		log.Debug().Err(err).Str("protocol", p.Protocol()).Str("path", path).Msg("Stat failed")
		return models.InvalidStat(extended)
	}
	return p.fs.GetStat(t.local, "", extended, follow)
}

func (p *Provider) IsFile(path, relativeTo string) bool {
	return p.GetStat(path, relativeTo, false, true).Base().Type == models.FileTypeRegular
}

func (p *Provider) IsDir(path, relativeTo string) bool {
	return p.GetStat(path, relativeTo, false, true).Base().Type == models.FileTypeDirectory
}

func (p *Provider) IsLink(path, relativeTo string) bool {
	return p.GetStat(path, relativeTo, false, false).Base().Type == models.FileTypeLink
}

func (p *Provider) Exists(path, relativeTo string) bool {
	return p.GetStat(path, relativeTo, false, false).Base().IsValid()
}

// CreateFile creates an empty file with mode.
func (p *Provider) CreateFile(path string, mode uint32, relativeTo string) error {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return err
	}
	if err := p.fs.CreateFile(t.local, mode, ""); err != nil {
		return err
	}
	p.notify(monitor.SignalCreated, t.loc, location.Location{})
	return nil
}

// CreateDirectory creates a directory with mode.
func (p *Provider) CreateDirectory(path string, mode uint32, relativeTo string) error {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return err
	}
	if err := p.fs.CreateDirectory(t.local, mode, ""); err != nil {
		return err
	}
	p.notify(monitor.SignalCreated, t.loc, location.Location{})
	return nil
}

// RemoveFile removes a non-directory entry.
func (p *Provider) RemoveFile(path, relativeTo string) error {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return err
	}
	if err := p.fs.RemoveFile(t.local, ""); err != nil {
		return err
	}
	p.forget(t)
	p.notify(monitor.SignalDeleted, t.loc, location.Location{})
	return nil
}

// RemoveDirectory removes a directory tree. The tree is walked breadth-first;
// files go as they are found and directories are removed deepest first.
func (p *Provider) RemoveDirectory(path, relativeTo string) error {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return err
	}
	if !p.fs.IsDir(t.local, "") || p.fs.IsLink(t.local, "") {
		return &os.PathError{Op: "rmdir", Path: t.loc.String(), Err: errNotDirectory}
	}

	// Walk breadth-first, removing files and collecting directories
	dirs := []string{t.local}
	for i := 0; i < len(dirs); i++ {
		names, err := p.fs.ListDir(dirs[i], "")
		if err != nil {
			return err
		}
		for _, name := range names {
			child := filepath.Join(dirs[i], name)
			if p.fs.GetStat(child, "", false, false).Base().Type == models.FileTypeDirectory {
				dirs = append(dirs, child)
				continue
			}
			if err := p.fs.RemoveFile(child, ""); err != nil {
				return err
			}
		}
	}

	// Deepest directories were collected last, remove them first
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Remove(dirs[i]); err != nil {
			log.Debug().Err(err).Str("path", dirs[i]).Msg("Failed to remove directory")
			return err
		}
	}

	p.forget(t)
	p.notify(monitor.SignalDeleted, t.loc, location.Location{})
	log.Debug().Str("protocol", p.Protocol()).Str("path", t.loc.String()).Int("directories", len(dirs)).
		Msg("Directory tree removed")
	return nil
}

var errNotDirectory = errors.New("not a directory")

// RenamePath renames within a mount.
func (p *Provider) RenamePath(source, destination, relativeTo string) error {
	src, dst, err := p.resolvePair(source, destination, relativeTo)
	if err != nil {
		return err
	}
	if err := p.fs.RenamePath(src.local, dst.local, ""); err != nil {
		return err
	}
	p.notify(monitor.SignalMoved, src.loc, dst.loc)
	return nil
}

// MovePath moves source to destination, copying between mounts.
func (p *Provider) MovePath(source, destination, relativeTo string) error {
	src, dst, err := p.resolvePair(source, destination, relativeTo)
	if err != nil {
		return err
	}
	if err := p.fs.MovePath(src.local, dst.local, ""); err != nil {
		return err
	}
	p.notify(monitor.SignalMoved, src.loc, dst.loc)
	return nil
}

func (p *Provider) resolvePair(source, destination, relativeTo string) (target, target, error) {
	src, err := p.resolve(source, relativeTo)
	if err != nil {
		return target{}, target{}, err
	}
	dst, err := p.resolve(destination, relativeTo)
	if err != nil {
		return target{}, target{}, err
	}
	return src, dst, nil
}

// ListDir lists a directory through its FUSE mount.
func (p *Provider) ListDir(path, relativeTo string) ([]string, error) {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return nil, err
	}
	return p.fs.ListDir(t.local, "")
}

// GetFileHandle opens a file through its FUSE mount.
func (p *Provider) GetFileHandle(path string, mode models.OpenMode, relativeTo string) (provider.Handle, error) {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return nil, err
	}
	h, err := p.fs.GetFileHandle(t.local, mode, "")
	if err != nil {
		return nil, err
	}
	if mode.Writable() {
		p.notify(monitor.SignalChanged, t.loc, location.Location{})
	}
	return h, nil
}

// GetRootPath returns the URI of the enclosing mount.
func (p *Provider) GetRootPath(path string) string {
	loc := location.Parse(path)
	t, err := p.locate(loc)
	if err != nil {
		loc.Scheme = p.proto.Scheme
		return loc.WithPath("/").URI()
	}
	return t.root.URI()
}

// GetParentPath returns the parent URI, never above the mount root.
func (p *Provider) GetParentPath(path string) string {
	loc := location.Parse(path)
	t, err := p.locate(loc)
	if err != nil {
		loc.Scheme = p.proto.Scheme
		return loc.Parent().URI()
	}
	if t.loc.Path == t.root.Path || !hasPathPrefix(t.loc.Path, t.root.Path) {
		return t.root.URI()
	}
	return t.loc.Parent().URI()
}

// GetSystemSize returns the capacity reported by the FUSE mount when the
// protocol declares it.
func (p *Provider) GetSystemSize(path string) models.SystemSize {
	if !p.GetSupport().Has(models.SupportSystemSize) {
		return models.SystemSize{}
	}
	t, err := p.resolve(path, "")
	if err != nil {
		return models.SystemSize{}
	}
	return p.fs.GetSystemSize(t.local)
}

// GetMonitor returns a started queue-based monitor. Changes made through
// this provider are pushed into it automatically.
func (p *Provider) GetMonitor(path string) (monitor.Monitor, error) {
	loc := location.Parse(path)
	loc.Scheme = p.proto.Scheme
	loc.Path = cleanPath(loc.Path)

	m := monitor.NewManual(loc.URI(), p.monitorOpts...)
	m.Start()

	p.mu.Lock()
	p.monitors = append(p.monitors, m)
	p.mu.Unlock()

	log.Debug().Str("protocol", p.Protocol()).Str("path", m.Path()).Msg("Manual monitor started")
	return m, nil
}

// notify pushes ev into every live monitor watching the changed path or its
// parent directory.
func (p *Provider) notify(signal monitor.Signal, loc, other location.Location) {
	changed := loc.URI()
	parent := loc.Parent().URI()
	otherURI := ""
	if other.Scheme != "" {
		otherURI = other.URI()
	}
	ev := monitor.NewEvent(signal, changed, otherURI)

	p.mu.Lock()
	defer p.mu.Unlock()

	live := p.monitors[:0]
	for _, m := range p.monitors {
		select {
		case <-m.Done():
			continue
		default:
		}
		live = append(live, m)
		if m.Path() == changed || m.Path() == parent {
			m.Push(ev)
		}
	}
	for i := len(live); i < len(p.monitors); i++ {
		p.monitors[i] = nil
	}
	p.monitors = live
}

// forget drops the trash info of a permanently deleted top-level trash item.
func (p *Provider) forget(t target) {
	if !p.proto.trash || filepath.Dir(t.local) != p.trash.FilesDir() {
		return
	}
	info := filepath.Join(p.trash.InfoDir(), filepath.Base(t.local)+".trashinfo")
	if err := os.Remove(info); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", info).Msg("Failed to remove trash info")
	}
}

// SetMode changes permission bits through the FUSE mount.
func (p *Provider) SetMode(path string, mode uint32, relativeTo string) error {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return err
	}
	if err := p.fs.SetMode(t.local, mode, ""); err != nil {
		return err
	}
	p.notify(monitor.SignalAttributeChanged, t.loc, location.Location{})
	return nil
}

// SetOwner changes ownership through the FUSE mount.
func (p *Provider) SetOwner(path string, uid, gid int, relativeTo string) error {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return err
	}
	if err := p.fs.SetOwner(t.local, uid, gid, ""); err != nil {
		return err
	}
	p.notify(monitor.SignalAttributeChanged, t.loc, location.Location{})
	return nil
}

// SetTimestamp changes timestamps through the FUSE mount.
func (p *Provider) SetTimestamp(path string, access, modify time.Time, relativeTo string) error {
	t, err := p.resolve(path, relativeTo)
	if err != nil {
		return err
	}
	if err := p.fs.SetTimestamp(t.local, access, modify, ""); err != nil {
		return err
	}
	p.notify(monitor.SignalAttributeChanged, t.loc, location.Location{})
	return nil
}

// Link creates a link inside a mount. Symbolic link targets are stored as
// given.
func (p *Provider) Link(target, name string, symbolic bool, relativeTo string) error {
	link, err := p.resolve(name, relativeTo)
	if err != nil {
		return err
	}

	linkTarget := target
	if !symbolic {
		t, err := p.resolve(target, relativeTo)
		if err != nil {
			return err
		}
		linkTarget = t.local
	}

	if err := p.fs.Link(linkTarget, link.local, symbolic, ""); err != nil {
		return err
	}
	p.notify(monitor.SignalCreated, link.loc, location.Location{})
	return nil
}
