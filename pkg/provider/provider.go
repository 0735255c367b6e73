// Package provider defines the contract every filesystem backend implements.
// Path arguments follow the (path, relativeTo) convention: when relativeTo is
// set and path is neither absolute nor a URI, path is resolved against it.
package provider

import (
	"io"

	"sunflower/pkg/models"
	"sunflower/pkg/monitor"
)

// Handle is an open file returned by GetFileHandle.
type Handle interface {
	io.ReadWriteCloser
	io.Seeker
}

// Provider is a filesystem backend.
type Provider interface {
	// IsFile reports whether path is a regular file. It never errors; a failed
	// stat reports false.
	IsFile(path, relativeTo string) bool

	// IsDir reports whether path is a directory. Links are followed.
	IsDir(path, relativeTo string) bool

	// IsLink reports whether path itself is a symbolic link.
	IsLink(path, relativeTo string) bool

	// Exists reports whether path exists. A dangling link exists.
	Exists(path, relativeTo string) bool

	// GetStat returns FileInfoExtended when extended is set, FileInfo
	// otherwise. On failure the sentinel with FileTypeInvalid is returned.
	GetStat(path, relativeTo string, extended, follow bool) models.Stat

	// CreateFile creates an empty file with exactly the given permission bits.
	CreateFile(path string, mode uint32, relativeTo string) error

	// CreateDirectory creates a directory with exactly the given permission bits.
	CreateDirectory(path string, mode uint32, relativeTo string) error

	// RemoveFile removes a file or link.
	RemoveFile(path, relativeTo string) error

	// RemoveDirectory removes a directory with everything in it.
	RemoveDirectory(path, relativeTo string) error

	// RenamePath renames within one location.
	RenamePath(source, destination, relativeTo string) error

	// MovePath moves source to destination, crossing devices if needed.
	MovePath(source, destination, relativeTo string) error

	// ListDir returns entry names in unspecified order.
	ListDir(path, relativeTo string) ([]string, error)

	// GetFileHandle opens path in the given mode.
	GetFileHandle(path string, mode models.OpenMode, relativeTo string) (Handle, error)

	// GetRootPath returns the mount or filesystem root enclosing path.
	GetRootPath(path string) string

	// GetParentPath returns the parent of path, never above the root.
	GetParentPath(path string) string

	// GetSystemSize returns volume capacity. The zero value means unknown.
	GetSystemSize(path string) models.SystemSize

	// GetMonitor returns a change monitor for path.
	GetMonitor(path string) (monitor.Monitor, error)

	// GetSupport returns the optional capabilities this provider declares.
	GetSupport() models.SupportSet

	// Protocol returns the scheme this provider serves.
	Protocol() string

	// IsLocal reports whether paths are plain local filesystem paths.
	IsLocal() bool
}

// Options carries the construction parameters shared by every provider.
type Options struct {
	// Owner identifies whoever created the provider, usually a UI panel.
	Owner string
	// BasePath is fixed for archive providers (the archive file itself).
	BasePath string
	// Selection is a list of paths limiting what the provider presents.
	Selection []string

	// MountRoot overrides the gvfs FUSE mount directory.
	MountRoot string
	// TrashDir overrides the freedesktop trash directory.
	TrashDir string
	// MonitorOptions are passed to every monitor the provider creates.
	MonitorOptions []monitor.Option
}

// Factory builds a provider.
type Factory func(opts Options) (Provider, error)
