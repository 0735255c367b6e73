package local

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sunflower/pkg/log"
	"sunflower/pkg/provider"

	"golang.org/x/sys/unix"
)

const (
	trashInfoExt     = ".trashinfo"
	trashDateLayout  = "2006-01-02T15:04:05"
	maxTrashAttempts = 10000
)

var errTrashNameExhausted = errors.New("no free name in trash")

// Trash is a freedesktop.org trash directory with files/ and info/.
type Trash struct {
	dir string
	// top is set for per-volume trash directories; Path entries are then
	// relative to it.
	top string
}

// DefaultTrashDir returns $XDG_DATA_HOME/Trash, or ~/.local/share/Trash.
func DefaultTrashDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "Trash")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "Trash")
	}
	return filepath.Join(home, ".local", "share", "Trash")
}

// NewTrash returns the trash rooted at dir, or the home trash when dir is
// empty.
func NewTrash(dir string) *Trash {
	if dir == "" {
		dir = DefaultTrashDir()
	}
	return &Trash{dir: dir}
}

func (t *Trash) Dir() string      { return t.dir }
func (t *Trash) FilesDir() string { return filepath.Join(t.dir, "files") }
func (t *Trash) InfoDir() string  { return filepath.Join(t.dir, "info") }

func (t *Trash) ensure() error {
	for _, dir := range []string{t.FilesDir(), t.InfoDir()} {
		if err := os.MkdirAll(dir, trashDirPerm); err != nil {
			return err
		}
	}
	return nil
}

// Put moves path into the trash and returns the name it got there.
func (t *Trash) Put(path string, deleted time.Time) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		return "", err
	}
	if err := t.ensure(); err != nil {
		return "", err
	}

	name, infoPath, err := t.reserve(filepath.Base(path), t.infoPath(path), deleted)
	if err != nil {
		return "", err
	}

	if err := os.Rename(path, filepath.Join(t.FilesDir(), name)); err != nil {
		if removeErr := os.Remove(infoPath); removeErr != nil {
			log.Warn().Err(removeErr).Str("path", infoPath).Msg("Failed to remove orphaned trash info")
		}
		return "", err
	}
	return name, nil
}

func (t *Trash) infoPath(path string) string {
	if t.top != "" {
		if rel, err := filepath.Rel(t.top, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return path
}

// reserve claims a name by creating its info file exclusively.
func (t *Trash) reserve(base, original string, deleted time.Time) (string, string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}

	content := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: original}).EscapedPath(), deleted.Format(trashDateLayout))

	for attempt := 1; attempt <= maxTrashAttempts; attempt++ {
		name := base
		if attempt > 1 {
			name = fmt.Sprintf("%s.%d%s", stem, attempt, ext)
		}
		if _, err := os.Lstat(filepath.Join(t.FilesDir(), name)); err == nil {
			continue
		}

		infoPath := filepath.Join(t.InfoDir(), name+trashInfoExt)
		f, err := os.OpenFile(infoPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", err
		}

		_, writeErr := f.WriteString(content)
		closeErr := f.Close()
		if err := errors.Join(writeErr, closeErr); err != nil {
			os.Remove(infoPath)
			return "", "", err
		}
		return name, infoPath, nil
	}
	return "", "", errTrashNameExhausted
}

// TrashPath moves path to the home trash. When the home trash lives on
// another device the per-volume $topdir/.Trash-$uid is used instead.
func (p *Provider) TrashPath(path, relativeTo string) error {
	target := p.resolve(path, relativeTo)
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}

	now := time.Now()
	trash := p.trash
	name, err := trash.Put(target, now)
	if errors.Is(err, unix.EXDEV) {
		top := mountPoint(target)
		trash = &Trash{dir: filepath.Join(top, fmt.Sprintf(".Trash-%d", os.Getuid())), top: top}
		name, err = trash.Put(target, now)
	}
	if err != nil {
		log.Debug().Err(err).Str("path", target).Msg("Failed to trash path")
		return &provider.TrashError{Path: target, Err: err}
	}

	log.Info().Str("path", target).Str("trash", trash.Dir()).Str("name", name).Msg("Path moved to trash")
	return nil
}

// TrashDir returns the home trash used by this provider.
func (p *Provider) TrashDir() *Trash {
	return p.trash
}
