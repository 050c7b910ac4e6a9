package wheel

import (
	"io"
	"sort"
)

// Scope describes how much of a package a Tree can see.
type Scope string

const (
	// ScopeFull trees expose the complete package payload.
	ScopeFull Scope = "full"
	// ScopeDistInfo trees expose only the *.dist-info directory; payload
	// paths may appear in the RECORD but do not exist in the backing.
	ScopeDistInfo Scope = "dist-info"
)

// Entry is a single child of a directory inside a Tree.
type Entry struct {
	Loc Location
	Dir bool
}

// Tree is a read-only view of a package's file hierarchy. Lookups report
// NOT_FOUND for missing entries, NOT_A_DIRECTORY when a directory
// operation hits a file, and IS_A_DIRECTORY when a file operation hits a
// directory.
type Tree interface {
	// Children lists the entries of the directory at dir, sorted by name.
	// The package root is wheel.Root.
	Children(dir Location) ([]Entry, error)
	// IsDir reports whether the entry at loc is a directory.
	IsDir(loc Location) (bool, error)
	// Exists reports whether anything lives at loc. A directory-marked
	// location only matches a directory.
	Exists(loc Location) (bool, error)
	// Open returns the contents of the file at leaf.
	Open(leaf Location) (io.ReadCloser, error)
	// Leaves lists every file in the tree in lexicographic path order.
	Leaves() ([]Location, error)
	// Scope reports how much of the package this tree can see.
	Scope() Scope
	// Close releases the backing resources. Closing twice is a no-op.
	Close() error
}

// walkLeaves collects every file reachable from the root of t by walking
// Children depth-first and returns the paths in lexicographic order.
func walkLeaves(t Tree) ([]Location, error) {
	var paths []string
	var walk func(dir Location) error
	walk = func(dir Location) error {
		entries, err := t.Children(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Dir {
				if err := walk(e.Loc); err != nil {
					return err
				}
				continue
			}
			paths = append(paths, e.Loc.p)
		}
		return nil
	}
	if err := walk(Root); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	locs := make([]Location, len(paths))
	for i, p := range paths {
		locs[i] = Location{p: p}
	}
	return locs, nil
}
