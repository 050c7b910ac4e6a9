package wheel

import (
	"archive/zip"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// archiveTree reads a wheel straight out of its zip archive. The central
// directory is indexed once at open time; implied parent directories
// count as containers even without their own entries.
type archiveTree struct {
	rc       *zip.ReadCloser
	files    map[string]*zip.File
	dirs     map[string]bool
	children map[string][]Entry
	closed   bool
}

var _ Tree = (*archiveTree)(nil)

// OpenArchive opens the wheel archive at path. Input that cannot be read
// as a zip file, or that contains entry names which are not valid package
// paths, is rejected as an unreadable package.
func OpenArchive(path string) (Tree, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		if rc != nil {
			rc.Close()
		}
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "no such file: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeUnreadablePackage, err, "%s is not a readable zip archive", path)
	}
	t := &archiveTree{
		rc:    rc,
		files: make(map[string]*zip.File, len(rc.File)),
		dirs:  map[string]bool{"": true},
	}
	for _, zf := range rc.File {
		loc, err := ParseLocation(zf.Name)
		if err != nil {
			rc.Close()
			return nil, errors.Wrap(errors.ErrCodeUnreadablePackage, err, "archive entry %q is not a valid package path", zf.Name)
		}
		if loc.IsDir() {
			t.addDirs(loc.p)
			continue
		}
		t.files[loc.p] = zf
		t.addDirs(parentOf(loc.p))
	}
	t.index()
	return t, nil
}

// addDirs records p and every ancestor of p as containers.
func (t *archiveTree) addDirs(p string) {
	for p != "" && !t.dirs[p] {
		t.dirs[p] = true
		p = parentOf(p)
	}
}

// index precomputes the sorted child list of every container.
func (t *archiveTree) index() {
	kids := make(map[string]map[string]bool) // parent -> child name -> child is a dir
	add := func(p string, isDir bool) {
		parent := parentOf(p)
		m := kids[parent]
		if m == nil {
			m = make(map[string]bool)
			kids[parent] = m
		}
		m[baseOf(p)] = m[baseOf(p)] || isDir
	}
	for d := range t.dirs {
		if d != "" {
			add(d, true)
		}
	}
	for f := range t.files {
		add(f, false)
	}
	t.children = make(map[string][]Entry, len(t.dirs))
	for d := range t.dirs {
		names := kids[d]
		es := make([]Entry, 0, len(names))
		for name, isDir := range names {
			p := name
			if d != "" {
				p = d + "/" + name
			}
			es = append(es, Entry{Loc: Location{p: p, dir: isDir}, Dir: isDir})
		}
		sort.Slice(es, func(i, j int) bool { return es[i].Loc.p < es[j].Loc.p })
		t.children[d] = es
	}
}

func (t *archiveTree) Children(dir Location) ([]Entry, error) {
	es, ok := t.children[dir.p]
	if !ok {
		if _, isFile := t.files[dir.p]; isFile {
			return nil, errors.New(errors.ErrCodeNotDirectory, "%s is not a directory", dir)
		}
		return nil, errors.New(errors.ErrCodeNotFound, "no such directory: %s", dir)
	}
	out := make([]Entry, len(es))
	copy(out, es)
	return out, nil
}

func (t *archiveTree) IsDir(loc Location) (bool, error) {
	if t.dirs[loc.p] {
		return true, nil
	}
	if _, ok := t.files[loc.p]; ok {
		return false, nil
	}
	return false, errors.New(errors.ErrCodeNotFound, "no such path: %s", loc)
}

func (t *archiveTree) Exists(loc Location) (bool, error) {
	if t.dirs[loc.p] {
		return true, nil
	}
	if loc.dir {
		return false, nil
	}
	_, ok := t.files[loc.p]
	return ok, nil
}

func (t *archiveTree) Open(leaf Location) (io.ReadCloser, error) {
	if zf, ok := t.files[leaf.p]; ok && !leaf.dir {
		r, err := zf.Open()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnreadablePackage, err, "open archive entry %s", leaf)
		}
		return r, nil
	}
	if t.dirs[leaf.p] {
		return nil, errors.New(errors.ErrCodeIsDirectory, "%s is a directory", leaf)
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no such file: %s", leaf)
}

func (t *archiveTree) Leaves() ([]Location, error) {
	names := make([]string, 0, len(t.files))
	for name := range t.files {
		names = append(names, name)
	}
	sort.Strings(names)
	locs := make([]Location, len(names))
	for i, name := range names {
		locs[i] = Location{p: name}
	}
	return locs, nil
}

func (t *archiveTree) Scope() Scope {
	return ScopeFull
}

func (t *archiveTree) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.rc.Close()
}

func parentOf(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

func baseOf(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
