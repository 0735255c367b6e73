package local

import (
	"os"
	"time"

	"sunflower/pkg/log"

	"golang.org/x/sys/unix"
)

// SetMode sets the permission bits of path, including setuid, setgid and
// sticky.
func (p *Provider) SetMode(path string, mode uint32, relativeTo string) error {
	target := p.resolve(path, relativeTo)
	if err := chmod(target, mode&0o7777); err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Failed to set mode")
		return err
	}
	return nil
}

// SetOwner changes the owner of path without following links. Pass -1 to
// leave either id unchanged.
func (p *Provider) SetOwner(path string, uid, gid int, relativeTo string) error {
	target := p.resolve(path, relativeTo)
	if err := unix.Lchown(target, uid, gid); err != nil {
		log.Debug().Err(err).Str("path", target).Int("uid", uid).Int("gid", gid).Msg("Failed to set owner")
		return &os.PathError{Op: "lchown", Path: target, Err: err}
	}
	return nil
}

// SetTimestamp sets access and modification times of path.
func (p *Provider) SetTimestamp(path string, access, modify time.Time, relativeTo string) error {
	target := p.resolve(path, relativeTo)
	times := []unix.Timespec{
		unix.NsecToTimespec(access.UnixNano()),
		unix.NsecToTimespec(modify.UnixNano()),
	}
	if err := unix.UtimesNano(target, times); err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Failed to set timestamps")
		return &os.PathError{Op: "utimes", Path: target, Err: err}
	}
	return nil
}

// Link creates name pointing at target. Symbolic link targets are stored
// verbatim so relative links stay relative; hard link targets are resolved
// the same way as name.
func (p *Provider) Link(target, name string, symbolic bool, relativeTo string) error {
	linkPath := p.resolve(name, relativeTo)

	var err error
	if symbolic {
		err = os.Symlink(target, linkPath)
	} else {
		err = os.Link(p.resolve(target, relativeTo), linkPath)
	}
	if err != nil {
		log.Debug().Err(err).Str("target", target).Str("path", linkPath).Bool("symbolic", symbolic).
			Msg("Failed to create link")
		return err
	}
	return nil
}
