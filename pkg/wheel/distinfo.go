package wheel

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// distInfoTree serves a bare *.dist-info directory as if it still sat at
// the top of a full package. Payload paths outside that directory may be
// listed in the RECORD but do not exist in this backing.
type distInfoTree struct {
	root string // filesystem path of the *.dist-info directory
	base string // its basename, the single virtual top-level directory
}

var _ Tree = (*distInfoTree)(nil)

// OpenDistInfoDir opens a metadata-only view rooted at a *.dist-info
// directory.
func OpenDistInfoDir(path string) (Tree, error) {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "no such directory: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeUnreadablePackage, err, "open dist-info directory %s", path)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeNotDirectory, "%s is not a directory", path)
	}
	return &distInfoTree{root: clean, base: filepath.Base(clean)}, nil
}

// rel maps a package location onto the backing directory. ok is false for
// locations outside the dist-info subtree.
func (t *distInfoTree) rel(loc Location) (string, bool) {
	if loc.p == t.base {
		return ".", true
	}
	rest, ok := strings.CutPrefix(loc.p, t.base+"/")
	if !ok {
		return "", false
	}
	return rest, true
}

func (t *distInfoTree) abs(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

func (t *distInfoTree) Children(dir Location) ([]Entry, error) {
	if dir.IsRoot() {
		return []Entry{{Loc: Location{p: t.base, dir: true}, Dir: true}}, nil
	}
	rel, ok := t.rel(dir)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no such directory: %s", dir)
	}
	return readDirEntries(t.abs(rel), dir)
}

func (t *distInfoTree) IsDir(loc Location) (bool, error) {
	if loc.IsRoot() {
		return true, nil
	}
	rel, ok := t.rel(loc)
	if !ok {
		return false, errors.New(errors.ErrCodeNotFound, "no such path: %s", loc)
	}
	info, err := os.Stat(t.abs(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return false, errors.Wrap(errors.ErrCodeNotFound, err, "no such path: %s", loc)
		}
		return false, errors.Wrap(errors.ErrCodeInternal, err, "stat %s", loc)
	}
	return info.IsDir(), nil
}

func (t *distInfoTree) Exists(loc Location) (bool, error) {
	if loc.IsRoot() {
		return true, nil
	}
	rel, ok := t.rel(loc)
	if !ok {
		return false, nil
	}
	info, err := os.Stat(t.abs(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(errors.ErrCodeInternal, err, "stat %s", loc)
	}
	if loc.dir && !info.IsDir() {
		return false, nil
	}
	return true, nil
}

func (t *distInfoTree) Open(leaf Location) (io.ReadCloser, error) {
	rel, ok := t.rel(leaf)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no such file: %s", leaf)
	}
	return openFSLeaf(t.abs(rel), leaf)
}

func (t *distInfoTree) Leaves() ([]Location, error) {
	return walkLeaves(t)
}

func (t *distInfoTree) Scope() Scope {
	return ScopeDistInfo
}

func (t *distInfoTree) Close() error {
	return nil
}
