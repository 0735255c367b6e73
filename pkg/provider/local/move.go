package local

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"sunflower/pkg/log"

	"golang.org/x/sys/unix"
)

// RenamePath renames source to destination. Both are resolved against
// relativeTo, so a bare destination name stays in the same directory.
func (p *Provider) RenamePath(source, destination, relativeTo string) error {
	src := p.resolve(source, relativeTo)
	dst := p.resolve(destination, relativeTo)

	if err := os.Rename(src, dst); err != nil {
		log.Debug().Err(err).Str("source", src).Str("destination", dst).Msg("Rename failed")
		return err
	}

	log.Debug().Str("source", src).Str("destination", dst).Msg("Path renamed")
	return nil
}

// MovePath moves source to destination. Moves across devices fall back to
// copying the tree and removing the source.
func (p *Provider) MovePath(source, destination, relativeTo string) error {
	src := p.resolve(source, relativeTo)
	dst := p.resolve(destination, relativeTo)

	// Try a plain rename first
	err := os.Rename(src, dst)
	if err == nil {
		log.Debug().Str("source", src).Str("destination", dst).Msg("Path moved")
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return err
	}

	// Copy the tree, then remove the source
	log.Debug().Str("source", src).Str("destination", dst).Msg("Cross-device move, copying")
	if err := copyTree(src, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		log.Error().Err(err).Str("source", src).Msg("Copied but failed to remove source")
		return err
	}

	log.Debug().Str("source", src).Str("destination", dst).Msg("Path moved across devices")
	return nil
}

// copyTree copies src to dst preserving permission bits and symbolic links.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		// Lstat semantics, so links are recreated instead of followed
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.Mkdir(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
