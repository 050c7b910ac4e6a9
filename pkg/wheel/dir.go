package wheel

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// dirTree reads an unpacked wheel from the filesystem. Symlinks are
// followed the way the operating system resolves them.
type dirTree struct {
	root string
}

var _ Tree = (*dirTree)(nil)

// OpenDir opens the unpacked wheel rooted at path.
func OpenDir(path string) (Tree, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "no such directory: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeUnreadablePackage, err, "open directory tree %s", path)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeNotDirectory, "%s is not a directory", path)
	}
	return &dirTree{root: path}, nil
}

func (t *dirTree) abs(loc Location) string {
	return filepath.Join(t.root, filepath.FromSlash(loc.p))
}

func (t *dirTree) Children(dir Location) ([]Entry, error) {
	return readDirEntries(t.abs(dir), dir)
}

func (t *dirTree) IsDir(loc Location) (bool, error) {
	info, err := os.Stat(t.abs(loc))
	if err != nil {
		if os.IsNotExist(err) {
			return false, errors.Wrap(errors.ErrCodeNotFound, err, "no such path: %s", loc)
		}
		return false, errors.Wrap(errors.ErrCodeInternal, err, "stat %s", loc)
	}
	return info.IsDir(), nil
}

func (t *dirTree) Exists(loc Location) (bool, error) {
	info, err := os.Stat(t.abs(loc))
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

func (t *dirTree) Open(leaf Location) (io.ReadCloser, error) {
	return openFSLeaf(t.abs(leaf), leaf)
}

func (t *dirTree) Leaves() ([]Location, error) {
	return walkLeaves(t)
}

func (t *dirTree) Scope() Scope {
	return ScopeFull
}

func (t *dirTree) Close() error {
	return nil
}

// readDirEntries lists the filesystem directory at abs as tree entries
// under parent. Symlinked children are classified by their targets.
func readDirEntries(abs string, parent Location) ([]Entry, error) {
	des, err := os.ReadDir(abs)
	if err != nil {
		if info, serr := os.Stat(abs); serr == nil && !info.IsDir() {
			return nil, errors.New(errors.ErrCodeNotDirectory, "%s is not a directory", parent)
		}
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "no such directory: %s", parent)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read directory %s", parent)
	}
	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		isDir := de.IsDir()
		if de.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(abs, de.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		loc := parent.Join(de.Name())
		if isDir {
			loc.dir = true
		}
		entries = append(entries, Entry{Loc: loc, Dir: isDir})
	}
	return entries, nil
}

// openFSLeaf opens the file at abs, mapping filesystem errors onto the
// tree error codes for leaf.
func openFSLeaf(abs string, leaf Location) (io.ReadCloser, error) {
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "no such file: %s", leaf)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "stat %s", leaf)
	}
	if info.IsDir() {
		return nil, errors.New(errors.ErrCodeIsDirectory, "%s is a directory", leaf)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", leaf)
	}
	return f, nil
}
