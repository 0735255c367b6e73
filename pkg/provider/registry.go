package provider

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sunflower/pkg/location"
	"sunflower/pkg/log"

	"github.com/gabriel-vasile/mimetype"
)

// Archive content types served by the zip provider.
const (
	ContentTypeZip         = "application/zip"
	ContentTypeJar         = "application/jar"
	ContentTypeWar         = "application/war"
	ContentTypeJavaArchive = "application/x-java-archive"
)

// Registry maps schemes and archive content types to provider factories.
type Registry struct {
	mu           sync.RWMutex
	schemes      map[string]Factory
	contentTypes map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemes:      make(map[string]Factory),
		contentTypes: make(map[string]Factory),
	}
}

// Register binds scheme to f, replacing any earlier binding.
func (r *Registry) Register(scheme string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemes[strings.ToLower(scheme)] = f
}

// RegisterContentType binds an archive content type to f.
func (r *Registry) RegisterContentType(contentType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contentTypes[strings.ToLower(contentType)] = f
}

// Schemes returns the registered schemes, sorted.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.schemes))
	for scheme := range r.schemes {
		out = append(out, scheme)
	}
	sort.Strings(out)
	return out
}

// ContentTypes returns the registered archive content types, sorted.
func (r *Registry) ContentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.contentTypes))
	for ct := range r.contentTypes {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}

// ForScheme returns the factory bound to scheme.
func (r *Registry) ForScheme(scheme string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.schemes[strings.ToLower(scheme)]
	return f, ok
}

// ForContentType returns the factory bound to an archive content type.
func (r *Registry) ForContentType(contentType string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.contentTypes[strings.ToLower(contentType)]
	return f, ok
}

// Open returns a provider for the scheme of uri.
func (r *Registry) Open(uri string, opts Options) (Provider, error) {
	loc := location.Parse(uri)
	f, ok := r.ForScheme(loc.Scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, loc.Scheme)
	}

	p, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s provider: %w", loc.Scheme, err)
	}
	log.Debug().Str("protocol", loc.Scheme).Str("path", uri).Msg("Provider created")
	return p, nil
}

// OpenArchive returns a provider presenting the archive file at path.
func (r *Registry) OpenArchive(path string, opts Options) (Provider, error) {
	contentType := DetectContentType(path)
	f, ok := r.ForContentType(contentType)
	if !ok {
		return nil, Unsupported("open_archive", contentType)
	}

	opts.BasePath = path
	p, err := f(opts)
	if err != nil {
		return nil, &ArchiveError{Path: path, Err: err}
	}
	log.Debug().Str("content_type", contentType).Str("path", path).Msg("Archive provider created")
	return p, nil
}

// IsArchive reports whether path looks like an archive some factory serves.
func (r *Registry) IsArchive(path string) bool {
	_, ok := r.ForContentType(DetectContentType(path))
	return ok
}

// DetectContentType guesses the content type of a local file from its
// extension, falling back to sniffing its leading bytes.
// Unknown files report "application/octet-stream".
func DetectContentType(path string) string {
	byExtension := "application/octet-stream"
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jar":
		return ContentTypeJar
	case ".war":
		return ContentTypeWar
	case ".zip":
		return ContentTypeZip
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		if base, _, err := mime.ParseMediaType(ct); err == nil {
			ct = base
		}
		if isArchiveType(ct) {
			return ct
		}
		byExtension = ct
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return byExtension
	}
	// Jar and other zip-based formats detect as children of zip.
	for m := detected; m != nil; m = m.Parent() {
		if isArchiveType(m.String()) {
			return m.String()
		}
	}
	return byExtension
}

func isArchiveType(ct string) bool {
	switch ct {
	case ContentTypeZip, ContentTypeJar, ContentTypeWar, ContentTypeJavaArchive, "application/java-archive":
		return true
	}
	return false
}
