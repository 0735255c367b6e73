package local

import (
	"os"

	"sunflower/pkg/log"

	"golang.org/x/sys/unix"
)

// RemoveFile removes a file, link or other non-directory entry.
func (p *Provider) RemoveFile(path, relativeTo string) error {
	target := p.resolve(path, relativeTo)

	if err := unix.Unlink(target); err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Failed to remove file")
		return &os.PathError{Op: "unlink", Path: target, Err: err}
	}

	log.Debug().Str("path", target).Msg("File removed")
	return nil
}

// RemoveDirectory removes a directory and everything below it.
func (p *Provider) RemoveDirectory(path, relativeTo string) error {
	target := p.resolve(path, relativeTo)

	info, err := os.Lstat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "rmdir", Path: target, Err: unix.ENOTDIR}
	}

	if err := os.RemoveAll(target); err != nil {
		log.Error().Err(err).Str("path", target).Msg("Failed to remove directory")
		return err
	}

	log.Debug().Str("path", target).Msg("Directory removed")
	return nil
}
