package wheel

import (
	"regexp"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// SpecialDir identifies a <project>-<version>.dist-info or .data
// directory found at the package root.
type SpecialDir struct {
	Dir     Location // directory location inside the tree
	Name    string   // directory name
	Project string
	Version string
}

// FindDistInfoDir locates the package's unique *.dist-info directory.
// Zero matches and multiple matches are both structural errors.
func FindDistInfoDir(t Tree) (SpecialDir, error) {
	names, err := topLevelMatches(t, distInfoDirRegexp)
	if err != nil {
		return SpecialDir{}, err
	}
	switch len(names) {
	case 0:
		return SpecialDir{}, errors.New(errors.ErrCodeDistInfoNotFound, "package contains no *.dist-info directory")
	case 1:
		return specialDir(names[0], DistInfoSuffix), nil
	}
	return SpecialDir{}, errors.New(errors.ErrCodeDistInfoCollision, "package contains multiple *.dist-info directories")
}

// FindDataDir locates the package's *.data directory, if it has one.
// More than one match is a structural error.
func FindDataDir(t Tree) (SpecialDir, bool, error) {
	names, err := topLevelMatches(t, dataDirRegexp)
	if err != nil {
		return SpecialDir{}, false, err
	}
	switch len(names) {
	case 0:
		return SpecialDir{}, false, nil
	case 1:
		return specialDir(names[0], DataSuffix), true, nil
	}
	return SpecialDir{}, false, errors.New(errors.ErrCodeDistInfoCollision, "package contains multiple *.data directories")
}

func specialDir(name, suffix string) SpecialDir {
	project, version := SplitSpecialDir(name, suffix)
	return SpecialDir{
		Dir:     Location{p: name, dir: true},
		Name:    name,
		Project: project,
		Version: version,
	}
}

// topLevelMatches returns the names of root-level directories matching
// rgx, in the listing order of the tree.
func topLevelMatches(t Tree, rgx *regexp.Regexp) ([]string, error) {
	entries, err := t.Children(Root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Dir && rgx.MatchString(e.Loc.Name()) {
			names = append(names, e.Loc.Name())
		}
	}
	return names, nil
}
