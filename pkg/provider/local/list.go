package local

import (
	"os"

	"sunflower/pkg/log"
	"sunflower/pkg/models"
	"sunflower/pkg/provider"
)

// ListDir returns the names of the entries in path.
func (p *Provider) ListDir(path, relativeTo string) ([]string, error) {
	target := p.resolve(path, relativeTo)

	dir, err := os.Open(target)
	if err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Failed to open directory")
		return nil, err
	}
	defer dir.Close()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// GetFileHandle opens path. Writable modes create the file when missing.
func (p *Provider) GetFileHandle(path string, mode models.OpenMode, relativeTo string) (provider.Handle, error) {
	target := p.resolve(path, relativeTo)

	f, err := os.OpenFile(target, mode.Flags(), filePerm)
	if err != nil {
		log.Debug().Err(err).Str("path", target).Str("mode", mode.String()).Msg("Failed to open file")
		return nil, err
	}
	return f, nil
}
