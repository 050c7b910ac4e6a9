package wheel

import (
	"path"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// Location is a normalized, slash-separated path relative to the package
// root. Locations are values: they compare with ==, never touch the
// filesystem, and two equal path strings always parse to equal Locations.
// The zero value is the package root.
type Location struct {
	p   string // segments joined with "/", no leading or trailing slash
	dir bool   // source string carried a trailing slash
}

// Root is the package root location.
var Root = Location{}

// ParseLocation parses s into a Location. The path must be relative, use
// forward slashes, and contain no empty, "." or ".." segments. A single
// trailing slash is allowed and marks a directory location.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, errors.New(errors.ErrCodeInvalidPath, "path is empty")
	}
	if strings.ContainsRune(s, '\\') {
		return Location{}, errors.New(errors.ErrCodeInvalidPath, "path %q contains a backslash", s)
	}
	if strings.HasPrefix(s, "/") {
		return Location{}, errors.New(errors.ErrCodeInvalidPath, "path %q is absolute", s)
	}
	dir := strings.HasSuffix(s, "/")
	trimmed := strings.TrimSuffix(s, "/")
	for _, seg := range strings.Split(trimmed, "/") {
		switch seg {
		case "":
			return Location{}, errors.New(errors.ErrCodeInvalidPath, "path %q has an empty segment", s)
		case ".", "..":
			return Location{}, errors.New(errors.ErrCodeInvalidPath, "path %q contains a %q segment", s, seg)
		}
	}
	return Location{p: trimmed, dir: dir}, nil
}

// String returns the slash-separated form. Directory locations keep their
// trailing slash; the root renders as "".
func (l Location) String() string {
	if l.dir && l.p != "" {
		return l.p + "/"
	}
	return l.p
}

// Path returns the slash-separated form without any directory marker.
func (l Location) Path() string {
	return l.p
}

// IsDir reports whether the location is marked as a directory. The root
// is always a directory.
func (l Location) IsDir() bool {
	return l.dir || l.p == ""
}

// IsRoot reports whether the location is the package root.
func (l Location) IsRoot() bool {
	return l.p == ""
}

// Parts returns the path segments. The root has none.
func (l Location) Parts() []string {
	if l.p == "" {
		return nil
	}
	return strings.Split(l.p, "/")
}

// Name returns the final segment, or "" for the root.
func (l Location) Name() string {
	if i := strings.LastIndexByte(l.p, '/'); i >= 0 {
		return l.p[i+1:]
	}
	return l.p
}

// Parent returns the containing directory. The root is its own parent.
func (l Location) Parent() Location {
	if l.p == "" {
		return Root
	}
	i := strings.LastIndexByte(l.p, '/')
	if i < 0 {
		return Root
	}
	return Location{p: l.p[:i], dir: true}
}

// Suffix returns the extension of the final segment, including the dot.
// Names that start or end with a dot have no suffix.
func (l Location) Suffix() string {
	name := l.Name()
	if i := strings.LastIndexByte(name, '.'); i > 0 && i < len(name)-1 {
		return name[i:]
	}
	return ""
}

// Stem returns the final segment with its Suffix removed.
func (l Location) Stem() string {
	name := l.Name()
	if i := strings.LastIndexByte(name, '.'); i > 0 && i < len(name)-1 {
		return name[:i]
	}
	return name
}

// Join returns the location extended by the given elements. Elements are
// split on "/" and empty segments are dropped. The result is a directory
// location only when the last element ends with a slash.
func (l Location) Join(elem ...string) Location {
	segs := l.Parts()
	n := len(segs)
	dir := false
	for _, e := range elem {
		if e == "" {
			continue
		}
		for _, seg := range strings.Split(e, "/") {
			if seg != "" {
				segs = append(segs, seg)
			}
		}
		dir = strings.HasSuffix(e, "/")
	}
	if len(segs) == n {
		return l
	}
	return Location{p: strings.Join(segs, "/"), dir: dir}
}

// Match reports whether the trailing segments of the location match the
// slash-separated glob pattern, one path.Match pattern per segment. An
// empty or malformed pattern matches nothing.
func (l Location) Match(pattern string) bool {
	pattern = strings.TrimSuffix(pattern, "/")
	if pattern == "" {
		return false
	}
	pats := strings.Split(pattern, "/")
	parts := l.Parts()
	if len(pats) > len(parts) {
		return false
	}
	tail := parts[len(parts)-len(pats):]
	for i, pat := range pats {
		ok, err := path.Match(pat, tail[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}
