package local

import (
	"path/filepath"

	"sunflower/pkg/log"
	"sunflower/pkg/models"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// GetSystemSize returns capacity of the filesystem holding path. Failures
// return the zero value.
func (p *Provider) GetSystemSize(path string) models.SystemSize {
	target := p.resolve(path, "")

	var stat unix.Statfs_t
	if err := unix.Statfs(target, &stat); err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Failed to get filesystem stats")
		return models.SystemSize{}
	}

	// Bsize is signed on some platforms.
	var bsize uint64
	if stat.Bsize > 0 {
		bsize = uint64(stat.Bsize) //nolint:gosec // Safe conversion after checking
	}

	size := models.SystemSize{
		BlockSize:      bsize,
		BlockTotal:     stat.Blocks,
		BlockAvailable: stat.Bavail,
		SizeTotal:      stat.Blocks * bsize,
		SizeAvailable:  stat.Bavail * bsize,
	}

	log.Debug().
		Str("path", target).
		Str("total", humanize.IBytes(size.SizeTotal)).
		Str("available", humanize.IBytes(size.SizeAvailable)).
		Msg("Filesystem stats")

	return size
}

// GetRootPath returns the mount point of the filesystem holding path. For
// missing paths the nearest existing ancestor is used.
func (p *Provider) GetRootPath(path string) string {
	current := p.resolve(path, "")
	if !filepath.IsAbs(current) {
		abs, err := filepath.Abs(current)
		if err != nil {
			return "/"
		}
		current = abs
	}
	return mountPoint(current)
}

// mountPoint climbs from path until the device changes.
func mountPoint(path string) string {
	current := path

	var st unix.Stat_t
	for unix.Stat(current, &st) != nil {
		if current == "/" {
			return "/"
		}
		current = filepath.Dir(current)
	}

	dev := st.Dev
	for current != "/" {
		parent := filepath.Dir(current)
		var parentStat unix.Stat_t
		if err := unix.Stat(parent, &parentStat); err != nil || parentStat.Dev != dev {
			return current
		}
		current = parent
	}
	return "/"
}
