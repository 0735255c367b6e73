package local

import (
	"os"

	"sunflower/pkg/log"

	"golang.org/x/sys/unix"
)

// CreateFile creates an empty file. The file must not exist; its permission
// bits are set to mode regardless of the process umask.
func (p *Provider) CreateFile(path string, mode uint32, relativeTo string) error {
	target := p.resolve(path, relativeTo)

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, os.FileMode(mode&0o777))
	if err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Failed to create file")
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := chmod(target, mode); err != nil {
		return err
	}
	log.Debug().Str("path", target).Uint32("mode", mode).Msg("File created")
	return nil
}

// CreateDirectory creates a single directory with exactly mode.
func (p *Provider) CreateDirectory(path string, mode uint32, relativeTo string) error {
	target := p.resolve(path, relativeTo)

	if err := os.Mkdir(target, os.FileMode(mode&0o777)); err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Failed to create directory")
		return err
	}
	if err := chmod(target, mode); err != nil {
		return err
	}
	log.Debug().Str("path", target).Uint32("mode", mode).Msg("Directory created")
	return nil
}

func chmod(path string, mode uint32) error {
	if err := unix.Chmod(path, mode); err != nil {
		return &os.PathError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}
