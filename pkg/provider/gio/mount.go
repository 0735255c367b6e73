package gio

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Mount is one entry of the gvfs FUSE directory. Entry names look like
// "smb-share:server=host,share=music" with URI-escaped values.
type Mount struct {
	Type   string
	Params map[string]string
	Dir    string
}

// DefaultMountRoot returns $XDG_RUNTIME_DIR/gvfs, or /run/user/$UID/gvfs.
func DefaultMountRoot() string {
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		return filepath.Join(runtime, "gvfs")
	}
	return filepath.Join("/run/user", fmt.Sprint(os.Getuid()), "gvfs")
}

// ParseMountName splits a gvfs mount directory name. Values are unescaped.
func ParseMountName(name string) (Mount, bool) {
	idx := strings.IndexByte(name, ':')
	if idx <= 0 {
		return Mount{}, false
	}

	m := Mount{Type: name[:idx], Params: make(map[string]string)}
	rest := name[idx+1:]
	if rest == "" {
		return m, true
	}

	for _, pair := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return Mount{}, false
		}
		m.Params[key] = unescapeAll(value)
	}
	return m, true
}

// MountName renders m back to its directory name form.
func (m Mount) MountName() string {
	keys := make([]string, 0, len(m.Params))
	for key := range m.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+url.PathEscape(m.Params[key]))
	}
	return m.Type + ":" + strings.Join(pairs, ",")
}

// ListMounts reads every parseable mount under root.
func ListMounts(root string) ([]Mount, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	mounts := make([]Mount, 0, len(entries))
	for _, entry := range entries {
		m, ok := ParseMountName(entry.Name())
		if !ok {
			continue
		}
		m.Dir = filepath.Join(root, entry.Name())
		mounts = append(mounts, m)
	}
	return mounts, nil
}

// unescapeAll removes every level of URI escaping. Archive hosts are a URI
// escaped once more for every level of nesting.
func unescapeAll(s string) string {
	for strings.Contains(s, "%") {
		next, err := url.PathUnescape(s)
		if err != nil || next == s {
			return s
		}
		s = next
	}
	return s
}
