package local

import (
	"sunflower/pkg/log"
	"sunflower/pkg/models"

	"golang.org/x/sys/unix"
)

// GetStat returns stat information for path. Links are only followed when
// follow is set. Failures return the Invalid sentinel.
func (p *Provider) GetStat(path, relativeTo string, extended, follow bool) models.Stat {
	target := p.resolve(path, relativeTo)

	var st unix.Stat_t
	var err error
	if follow {
		err = unix.Stat(target, &st)
	} else {
		err = unix.Lstat(target, &st)
	}
	if err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Stat failed")
		return models.InvalidStat(extended)
	}

	return statFromUnix(&st, extended)
}

func statFromUnix(st *unix.Stat_t, extended bool) models.Stat {
	info := models.FileInfo{
		Size:       uint64(st.Size), //nolint:gosec // Size is never negative
		Mode:       st.Mode & 0o7777,
		UserID:     st.Uid,
		GroupID:    st.Gid,
		TimeModify: uint64(st.Mtim.Sec), //nolint:gosec // Pre-epoch timestamps clamp in practice
		Type:       fileTypeFromUnix(st.Mode),
	}
	if !extended {
		return info
	}

	return models.FileInfoExtended{
		FileInfo:   info,
		IMode:      st.Mode,
		TimeAccess: uint64(st.Atim.Sec), //nolint:gosec // See TimeModify
		TimeChange: uint64(st.Ctim.Sec), //nolint:gosec // See TimeModify
		Device:     uint64(st.Dev),      //nolint:unconvert // Dev width differs per platform
		Inode:      uint64(st.Ino),      //nolint:unconvert // Ino width differs per platform
	}
}

func fileTypeFromUnix(mode uint32) models.FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFLNK:
		return models.FileTypeLink
	case unix.S_IFDIR:
		return models.FileTypeDirectory
	case unix.S_IFSOCK:
		return models.FileTypeSocket
	case unix.S_IFCHR:
		return models.FileTypeDeviceCharacter
	case unix.S_IFBLK:
		return models.FileTypeDeviceBlock
	default:
		return models.FileTypeRegular
	}
}

// IsFile reports whether path is a regular file, following links.
func (p *Provider) IsFile(path, relativeTo string) bool {
	return p.GetStat(path, relativeTo, false, true).Base().Type == models.FileTypeRegular
}

// IsDir reports whether path is a directory, following links.
func (p *Provider) IsDir(path, relativeTo string) bool {
	return p.GetStat(path, relativeTo, false, true).Base().Type == models.FileTypeDirectory
}

// IsLink reports whether path itself is a symbolic link.
func (p *Provider) IsLink(path, relativeTo string) bool {
	return p.GetStat(path, relativeTo, false, false).Base().Type == models.FileTypeLink
}

// Exists reports whether path exists. Dangling links exist.
func (p *Provider) Exists(path, relativeTo string) bool {
	return p.GetStat(path, relativeTo, false, false).Base().IsValid()
}
