package gio

import (
	"path"
	"strings"

	"sunflower/pkg/location"
	"sunflower/pkg/models"
)

// Protocol describes one gvfs backend: the URI scheme it serves, how its
// mounts are named and which capabilities it declares.
type Protocol struct {
	Scheme  string
	Support models.SupportSet

	mountType string
	// hostKey is the mount parameter holding the URI host. Empty for
	// backends with a single mount.
	hostKey string
	// shareAware backends use the first path segment as the share name.
	shareAware bool
	// secure distinguishes dav from davs; both use the "dav" mount type.
	secure *bool
	// trash maps onto the local trash instead of a FUSE mount.
	trash bool
}

func secure(v bool) *bool { return &v }

var (
	Samba = Protocol{
		Scheme:     "smb",
		Support:    models.NewSupportSet(models.SupportMonitor, models.SupportSystemSize),
		mountType:  "smb-share",
		hostKey:    "server",
		shareAware: true,
	}
	FTP = Protocol{
		Scheme:    "ftp",
		Support:   models.NewSupportSet(models.SupportMonitor),
		mountType: "ftp",
		hostKey:   "host",
	}
	SFTP = Protocol{
		Scheme: "sftp",
		Support: models.NewSupportSet(
			models.SupportMonitor,
			models.SupportSymbolicLink,
			models.SupportSetAccess,
			models.SupportSetOwner,
			models.SupportSetTimestamp,
			models.SupportSystemSize,
		),
		mountType: "sftp",
		hostKey:   "host",
	}
	WebDAV = Protocol{
		Scheme:    "dav",
		Support:   models.NewSupportSet(models.SupportMonitor),
		mountType: "dav",
		hostKey:   "host",
		secure:    secure(false),
	}
	SecureWebDAV = Protocol{
		Scheme:    "davs",
		Support:   models.NewSupportSet(models.SupportMonitor),
		mountType: "dav",
		hostKey:   "host",
		secure:    secure(true),
	}
	// Trash declares nothing: everything in it is already trashed and
	// destructive operations go through the general mechanism.
	Trash = Protocol{
		Scheme:  "trash",
		Support: models.NewSupportSet(),
		trash:   true,
	}
	Gphoto2 = Protocol{
		Scheme:    "gphoto2",
		Support:   models.NewSupportSet(models.SupportMonitor),
		mountType: "gphoto2",
		hostKey:   "host",
	}
	MTP = Protocol{
		Scheme:    "mtp",
		Support:   models.NewSupportSet(models.SupportMonitor, models.SupportSystemSize),
		mountType: "mtp",
		hostKey:   "host",
	}
	Network = Protocol{
		Scheme:    "network",
		Support:   models.NewSupportSet(models.SupportMonitor),
		mountType: "network",
	}
	// Archive hosts are the escaped URI of the archive file.
	Archive = Protocol{
		Scheme:    "archive",
		Support:   models.NewSupportSet(models.SupportMonitor),
		mountType: "archive",
		hostKey:   "host",
	}
)

// Protocols returns every gvfs backend.
func Protocols() []Protocol {
	return []Protocol{Samba, FTP, SFTP, WebDAV, SecureWebDAV, Trash, Gphoto2, MTP, Network, Archive}
}

// match reports whether m is the mount enclosing loc and returns the URI
// path of the mount root.
func (pr Protocol) match(m Mount, loc location.Location) (string, bool) {
	if m.Type != pr.mountType {
		return "", false
	}
	if pr.secure != nil && (m.Params["ssl"] == "true") != *pr.secure {
		return "", false
	}
	if pr.hostKey != "" && !strings.EqualFold(m.Params[pr.hostKey], unescapeAll(loc.Host)) {
		return "", false
	}
	if user := m.Params["user"]; user != "" && loc.User != "" && user != unescapeAll(loc.User) {
		return "", false
	}
	if port := m.Params["port"]; port != "" && loc.Port != "" && port != loc.Port {
		return "", false
	}

	p := cleanPath(loc.Path)
	root := "/"
	if pr.shareAware {
		share := firstSegment(p)
		if share == "" || !strings.EqualFold(m.Params["share"], share) {
			return "", false
		}
		root = "/" + share
	}
	if prefix := m.Params["prefix"]; prefix != "" && prefix != "/" {
		prefix = cleanPath(prefix)
		if !hasPathPrefix(p, prefix) {
			return "", false
		}
		root = prefix
	}
	return root, true
}

func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if idx := strings.IndexByte(p, '/'); idx >= 0 {
		return p[:idx]
	}
	return p
}

func hasPathPrefix(p, prefix string) bool {
	if prefix == "/" || p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}
