// Package zip implements a read-only provider presenting the content of a
// zip archive.
package zip

import (
	"errors"
	"os"
	"path"
	"strings"
	"sync"

	"sunflower/pkg/location"
	"sunflower/pkg/log"
	"sunflower/pkg/models"
	"sunflower/pkg/provider"

	"github.com/klauspost/compress/zip"
)

// Protocol is the name this provider reports.
const Protocol = "zip"

const (
	typeDirectory = 0o040000
	typeRegular   = 0o100000
	typeLink      = 0o120000
	implicitPerm  = 0o755
)

var errNoArchive = errors.New("no archive bound")

// ErrReleased is returned by every lookup after ReleaseArchiveHandle, until a
// new archive is bound.
var ErrReleased = errors.New("archive handle released")

type entry struct {
	name string
	info models.FileInfo
	file *zip.File
}

// Provider lists and reads entries of one archive. The archive handle is
// opened lazily from the base path unless bound with SetArchiveHandle. A
// non-empty selection limits the provider to the selected members, their
// ancestors and everything below them.
type Provider struct {
	*provider.Base

	selection []string

	mu       sync.Mutex
	archive  *zip.ReadCloser
	index    map[string][]*entry
	released bool
}

var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.ArchiveBinder = (*Provider)(nil)
)

// New creates a provider for the archive at opts.BasePath.
func New(opts provider.Options) *Provider {
	p := &Provider{
		Base: provider.NewBase(Protocol, models.NewSupportSet(), false, opts),
	}
	for _, member := range p.Selection() {
		if key := normalize(member); key != "" {
			p.selection = append(p.selection, key)
		}
	}
	return p
}

// Factory is the registry hook for zip content types.
func Factory(opts provider.Options) (provider.Provider, error) {
	return New(opts), nil
}

// SetArchiveHandle binds an already opened archive, releasing any previous
// one. The provider owns rc from now on.
func (p *Provider) SetArchiveHandle(rc *zip.ReadCloser) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.releaseLocked()
	p.archive = rc
	p.released = false
	return err
}

// OpenArchive opens the archive at archivePath and binds it.
func (p *Provider) OpenArchive(archivePath string) error {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return &provider.ArchiveError{Path: archivePath, Err: err}
	}
	return p.SetArchiveHandle(rc)
}

// ReleaseArchiveHandle closes the bound archive. Calling it again is a no-op.
// The base path is not reopened afterwards; lookups fail with ErrReleased
// until SetArchiveHandle or OpenArchive binds a new archive.
func (p *Provider) ReleaseArchiveHandle() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released = true
	return p.releaseLocked()
}

// ArchiveHandle returns the bound archive, or nil.
func (p *Provider) ArchiveHandle() *zip.ReadCloser {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.archive
}

func (p *Provider) releaseLocked() error {
	p.index = nil
	if p.archive == nil {
		return nil
	}
	err := p.archive.Close()
	p.archive = nil
	if err != nil {
		log.Warn().Err(err).Str("path", p.BasePath()).Msg("Failed to close archive")
	}
	return err
}

// loadLocked opens the archive if necessary and builds the index in one
// pass over the central directory.
func (p *Provider) loadLocked() error {
	if p.index != nil {
		return nil
	}
	if p.archive == nil {
		if p.released {
			return &provider.ArchiveError{Path: p.BasePath(), Err: ErrReleased}
		}
		if p.BasePath() == "" {
			return &provider.ArchiveError{Err: errNoArchive}
		}
		rc, err := zip.OpenReader(p.BasePath())
		if err != nil {
			return &provider.ArchiveError{Path: p.BasePath(), Err: err}
		}
		p.archive = rc
	}

	p.index = buildIndex(p.archive.File)
	log.Debug().
		Str("path", p.BasePath()).
		Str("owner", p.Owner()).
		Int("entries", len(p.archive.File)).
		Int("selected", len(p.selection)).
		Msg("Archive indexed")
	return nil
}

func buildIndex(files []*zip.File) map[string][]*entry {
	index := map[string][]*entry{"": nil}
	byPath := make(map[string]*entry)

	var ensureDir func(dir string)
	ensureDir = func(dir string) {
		if dir == "" {
			return
		}
		if _, ok := byPath[dir]; ok {
			return
		}
		parent, name := split(dir)
		ensureDir(parent)

		e := &entry{name: name, info: models.FileInfo{Mode: implicitPerm, Type: models.FileTypeDirectory}}
		byPath[dir] = e
		index[parent] = append(index[parent], e)
		if _, ok := index[dir]; !ok {
			index[dir] = nil
		}
	}

	for _, f := range files {
		name := normalize(f.Name)
		if name == "" {
			continue
		}
		isDir := strings.HasSuffix(f.Name, "/") || f.Mode().IsDir()
		info := fileInfo(f, isDir)

		if existing, ok := byPath[name]; ok {
			// An explicit directory entry after its implicit creation keeps one
			// listing entry but takes the recorded attributes.
			existing.info = info
			existing.file = f
			continue
		}

		parent, base := split(name)
		ensureDir(parent)

		e := &entry{name: base, info: info, file: f}
		byPath[name] = e
		index[parent] = append(index[parent], e)
		if isDir {
			if _, ok := index[name]; !ok {
				index[name] = nil
			}
		}
	}
	return index
}

func fileInfo(f *zip.File, isDir bool) models.FileInfo {
	mode := f.Mode()
	info := models.FileInfo{
		Size:       f.UncompressedSize64,
		Mode:       uint32(mode.Perm()),
		TimeModify: uint64(max(f.Modified.Unix(), 0)), //nolint:gosec // Clamped above
		Type:       models.FileTypeRegular,
	}
	switch {
	case isDir:
		info.Size = 0
		info.Type = models.FileTypeDirectory
		if info.Mode == 0 {
			info.Mode = implicitPerm
		}
	case mode&os.ModeSymlink != 0:
		info.Type = models.FileTypeLink
	}
	return info
}

// normalize turns an archive member name or a caller path into the index key.
func normalize(p string) string {
	p = path.Clean("/" + strings.TrimSuffix(p, "/"))
	return strings.TrimPrefix(p, "/")
}

func split(p string) (string, string) {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}

func (p *Provider) key(filePath, relativeTo string) string {
	return normalize(location.Resolve(filePath, relativeTo).Path)
}

// selected reports whether key is visible under the selection.
func (p *Provider) selected(key string) bool {
	if len(p.selection) == 0 || key == "" {
		return true
	}
	for _, member := range p.selection {
		switch {
		case key == member,
			strings.HasPrefix(key, member+"/"),
			strings.HasPrefix(member, key+"/"):
			return true
		}
	}
	return false
}

func (p *Provider) lookupLocked(key string) (*entry, bool) {
	if !p.selected(key) {
		return nil, false
	}
	parent, name := split(key)
	entries, ok := p.index[parent]
	if !ok {
		return nil, false
	}
	for _, e := range entries {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

// ListDir lists one directory of the archive. The first call builds the index.
func (p *Provider) ListDir(dirPath, relativeTo string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return nil, err
	}

	key := p.key(dirPath, relativeTo)
	entries, ok := p.index[key]
	if !ok || !p.selected(key) {
		return nil, &os.PathError{Op: "readdir", Path: dirPath, Err: os.ErrNotExist}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// Members outside the selection are hidden, not reported as missing.
		if !p.selected(path.Join(key, e.name)) {
			continue
		}
		names = append(names, e.name)
	}
	return names, nil
}

// GetStat returns the recorded attributes of an entry.
func (p *Provider) GetStat(filePath, relativeTo string, extended, _ bool) models.Stat {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		log.Debug().Err(err).Str("path", filePath).Msg("Archive stat failed")
		return models.InvalidStat(extended)
	}

	key := p.key(filePath, relativeTo)
	var info models.FileInfo
	if key == "" {
		info = models.FileInfo{Mode: implicitPerm, Type: models.FileTypeDirectory}
	} else {
		e, ok := p.lookupLocked(key)
		if !ok {
			return models.InvalidStat(extended)
		}
		info = e.info
	}

	if !extended {
		return info
	}
	return models.FileInfoExtended{
		FileInfo:   info,
		IMode:      typeBits(info.Type) | info.Mode,
		TimeAccess: info.TimeModify,
		TimeChange: info.TimeModify,
	}
}

func typeBits(t models.FileType) uint32 {
	switch t {
	case models.FileTypeDirectory:
		return typeDirectory
	case models.FileTypeLink:
		return typeLink
	default:
		return typeRegular
	}
}

func (p *Provider) IsFile(filePath, relativeTo string) bool {
	return p.GetStat(filePath, relativeTo, false, true).Base().Type == models.FileTypeRegular
}

func (p *Provider) IsDir(filePath, relativeTo string) bool {
	return p.GetStat(filePath, relativeTo, false, true).Base().Type == models.FileTypeDirectory
}

func (p *Provider) IsLink(filePath, relativeTo string) bool {
	return p.GetStat(filePath, relativeTo, false, false).Base().Type == models.FileTypeLink
}

func (p *Provider) Exists(filePath, relativeTo string) bool {
	return p.GetStat(filePath, relativeTo, false, false).Base().IsValid()
}

// GetFileHandle opens an entry for reading. Every other mode is refused.
func (p *Provider) GetFileHandle(filePath string, mode models.OpenMode, relativeTo string) (provider.Handle, error) {
	if mode != models.OpenRead {
		return nil, p.Unsupported("get_file_handle")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return nil, err
	}

	e, ok := p.lookupLocked(p.key(filePath, relativeTo))
	if !ok || e.file == nil || e.info.Type == models.FileTypeDirectory {
		return nil, &os.PathError{Op: "open", Path: filePath, Err: os.ErrNotExist}
	}
	return openEntry(e.file)
}
