package provider

import (
	"sunflower/pkg/location"
	"sunflower/pkg/models"
	"sunflower/pkg/monitor"
)

// Base holds what every provider shares and supplies the safe defaults:
// mutators refuse with ErrUnsupported, capacity is unknown and the monitor
// never emits. Concrete providers embed it and override what they support.
type Base struct {
	protocol string
	support  models.SupportSet
	local    bool
	opts     Options
}

// NewBase creates the shared part of a provider.
func NewBase(protocol string, support models.SupportSet, local bool, opts Options) *Base {
	opts.Selection = append([]string(nil), opts.Selection...)
	return &Base{
		protocol: protocol,
		support:  support,
		local:    local,
		opts:     opts,
	}
}

func (b *Base) Protocol() string              { return b.protocol }
func (b *Base) IsLocal() bool                 { return b.local }
func (b *Base) GetSupport() models.SupportSet { return b.support }
func (b *Base) Owner() string                 { return b.opts.Owner }
func (b *Base) BasePath() string              { return b.opts.BasePath }
func (b *Base) Options() Options              { return b.opts }

// Selection returns a copy of the selection list.
func (b *Base) Selection() []string {
	return append([]string(nil), b.opts.Selection...)
}

// Unsupported returns the error for op on this provider.
func (b *Base) Unsupported(op string) error {
	return Unsupported(op, b.protocol)
}

// Resolve applies the (path, relativeTo) convention.
func (b *Base) Resolve(path, relativeTo string) location.Location {
	return location.Resolve(path, relativeTo)
}

// GetRootPath returns "/" for local paths and the bare authority otherwise.
func (b *Base) GetRootPath(path string) string {
	loc := location.Parse(path)
	return loc.WithPath("/").String()
}

// GetParentPath returns the parent of path, never above the root.
func (b *Base) GetParentPath(path string) string {
	return location.Parse(path).Parent().String()
}

func (b *Base) GetSystemSize(string) models.SystemSize {
	return models.SystemSize{}
}

// GetMonitor returns a monitor that never emits.
func (b *Base) GetMonitor(path string) (monitor.Monitor, error) {
	return monitor.NewBase(path), nil
}

func (b *Base) CreateFile(string, uint32, string) error {
	return b.Unsupported("create_file")
}

func (b *Base) CreateDirectory(string, uint32, string) error {
	return b.Unsupported("create_directory")
}

func (b *Base) RemoveFile(string, string) error {
	return b.Unsupported("remove_file")
}

func (b *Base) RemoveDirectory(string, string) error {
	return b.Unsupported("remove_directory")
}

func (b *Base) RenamePath(string, string, string) error {
	return b.Unsupported("rename_path")
}

func (b *Base) MovePath(string, string, string) error {
	return b.Unsupported("move_path")
}

func (b *Base) GetFileHandle(string, models.OpenMode, string) (Handle, error) {
	return nil, b.Unsupported("get_file_handle")
}
