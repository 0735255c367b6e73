// Package local implements the provider for the local filesystem.
package local

import (
	"path/filepath"

	"sunflower/pkg/location"
	"sunflower/pkg/models"
	"sunflower/pkg/monitor"
	"sunflower/pkg/provider"
)

// Protocol is the scheme served by this provider.
const Protocol = location.SchemeFile

const (
	filePerm     = 0o644
	trashDirPerm = 0o700
)

var support = models.NewSupportSet(
	models.SupportMonitor,
	models.SupportTrash,
	models.SupportSymbolicLink,
	models.SupportHardLink,
	models.SupportSetOwner,
	models.SupportSetAccess,
	models.SupportSetTimestamp,
	models.SupportSystemSize,
)

// Provider implements provider.Provider for plain local paths.
type Provider struct {
	*provider.Base
	trash       *Trash
	monitorOpts []monitor.Option
}

var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.ModeSetter      = (*Provider)(nil)
	_ provider.OwnerSetter     = (*Provider)(nil)
	_ provider.TimestampSetter = (*Provider)(nil)
	_ provider.Trasher         = (*Provider)(nil)
	_ provider.Linker          = (*Provider)(nil)
)

// New creates a local provider.
func New(opts provider.Options) *Provider {
	return &Provider{
		Base:        provider.NewBase(Protocol, support, true, opts),
		trash:       NewTrash(opts.TrashDir),
		monitorOpts: opts.MonitorOptions,
	}
}

// Factory is the registry hook for the file scheme.
func Factory(opts provider.Options) (provider.Provider, error) {
	return New(opts), nil
}

// resolve turns (path, relativeTo) into a clean local path.
func (p *Provider) resolve(path, relativeTo string) string {
	loc := location.Resolve(path, relativeTo)
	if loc.Path == "" {
		return "."
	}
	return filepath.Clean(loc.Path)
}

// GetParentPath returns the parent directory, never above "/".
func (p *Provider) GetParentPath(path string) string {
	target := p.resolve(path, "")
	if target == "/" {
		return "/"
	}
	return filepath.Dir(target)
}
