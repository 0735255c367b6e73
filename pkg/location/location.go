// Package location parses the paths handed to providers. Callers pass bare
// filesystem paths and scheme-qualified URIs interchangeably; both are turned
// into a Location once, at the boundary, so no provider has to strip prefixes
// on its own.
package location

import (
	"net/url"
	"path"
	"strings"
)

// SchemeFile is the scheme of bare paths and file:// URIs.
const SchemeFile = "file"

const schemeSeparator = "://"

// Location is a parsed path or URI.
type Location struct {
	Scheme string
	User   string
	Host   string
	Port   string
	Path   string
}

// Parse turns raw into a Location. Anything without a scheme separator is a
// local path and is kept verbatim, including relative paths.
func Parse(raw string) Location {
	idx := strings.Index(raw, schemeSeparator)
	if idx <= 0 || strings.ContainsAny(raw[:idx], "/ ") {
		return Location{Scheme: SchemeFile, Path: raw}
	}

	loc := Location{Scheme: strings.ToLower(raw[:idx])}
	rest := raw[idx+len(schemeSeparator):]

	authority := rest
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		authority = rest[:slash]
		loc.Path = unescape(rest[slash:])
	}

	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		loc.User = authority[:at]
		authority = authority[at+1:]
	}

	if colon := strings.LastIndexByte(authority, ':'); colon >= 0 && isPort(authority[colon+1:]) {
		host := authority[:colon]
		if !strings.Contains(host, ":") || strings.HasSuffix(host, "]") {
			loc.Port = authority[colon+1:]
			authority = host
		}
	}
	// The host is kept escaped: archive URIs carry a whole URI there.
	loc.Host = authority

	if loc.Scheme == SchemeFile && loc.Path == "" {
		loc.Path = "/"
	}
	return loc
}

// Resolve applies the (path, relativeTo) convention: when relativeTo is set
// and p is neither absolute nor a URI, p is joined onto relativeTo.
func Resolve(p, relativeTo string) Location {
	target := Parse(p)
	if relativeTo == "" || strings.Contains(p, schemeSeparator) || strings.HasPrefix(p, "/") {
		return target
	}

	base := Parse(relativeTo)
	if p == "" {
		return base
	}
	if base.Path == "" {
		base.Path = p
	} else {
		base.Path = path.Join(base.Path, p)
	}
	return base
}

// IsLocal reports whether the location addresses the local filesystem.
func (l Location) IsLocal() bool {
	return l.Scheme == SchemeFile
}

// Name returns the last path element.
func (l Location) Name() string {
	if l.Path == "" || l.Path == "/" {
		return ""
	}
	return path.Base(l.Path)
}

// Parent returns the location one level up. The root is its own parent.
func (l Location) Parent() Location {
	parent := l
	switch {
	case l.Path == "" || l.Path == "/":
		parent.Path = "/"
	case strings.HasPrefix(l.Path, "/"):
		parent.Path = path.Dir(strings.TrimSuffix(l.Path, "/"))
	default:
		dir := path.Dir(strings.TrimSuffix(l.Path, "/"))
		if dir == "." {
			dir = ""
		}
		parent.Path = dir
	}
	return parent
}

// Child returns the location of name inside l.
func (l Location) Child(name string) Location {
	child := l
	if l.Path == "" {
		child.Path = name
	} else {
		child.Path = path.Join(l.Path, name)
	}
	return child
}

// WithPath returns a copy with the path replaced.
func (l Location) WithPath(p string) Location {
	l.Path = p
	return l
}

// Authority renders user@host:port.
func (l Location) Authority() string {
	var b strings.Builder
	if l.User != "" {
		b.WriteString(l.User)
		b.WriteByte('@')
	}
	b.WriteString(l.Host)
	if l.Port != "" {
		b.WriteByte(':')
		b.WriteString(l.Port)
	}
	return b.String()
}

// URI renders the location as a scheme-qualified URI.
func (l Location) URI() string {
	p := l.Path
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return l.Scheme + schemeSeparator + l.Authority() + escapePath(p)
}

// String renders local locations as plain paths and everything else as URIs.
func (l Location) String() string {
	if l.IsLocal() {
		return l.Path
	}
	return l.URI()
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
