// Package filename parses wheel filenames of the form
// project-version(-build)?-python-abi-platform.whl.
package filename

import (
	"regexp"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// wheelNameRegexp encodes the binary distribution filename convention.
// The build number, when present, must start with a digit; that is what
// keeps it apart from the first compatibility tag.
var wheelNameRegexp = regexp.MustCompile(
	`^([A-Za-z0-9](?:[A-Za-z0-9._]*[A-Za-z0-9])?)` +
		`-([A-Za-z0-9_.!+]+)` +
		`(?:-([0-9][A-Za-z0-9_.]*))?` +
		`-([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)` +
		`-([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)` +
		`-([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)` +
		`\.[Ww][Hh][Ll]$`)

var nameSeparatorRegexp = regexp.MustCompile(`[-_.]+`)

// Parsed holds the components of a wheel filename. Build is nil when the
// filename carries no build number. The tag fields are the compatibility
// tag sets split on ".".
type Parsed struct {
	Project  string
	Version  string
	Build    *string
	Python   []string
	ABI      []string
	Platform []string
}

// Parse splits a wheel filename into its components. The name must be a
// bare filename, not a path. Anything that does not match the wheel
// naming convention returns an INVALID_FILENAME error.
func Parse(name string) (Parsed, error) {
	m := wheelNameRegexp.FindStringSubmatch(name)
	if m == nil {
		return Parsed{}, errors.New(errors.ErrCodeInvalidFilename, "invalid wheel filename: %q", name)
	}
	parsed := Parsed{
		Project:  m[1],
		Version:  m[2],
		Python:   strings.Split(m[4], "."),
		ABI:      strings.Split(m[5], "."),
		Platform: strings.Split(m[6], "."),
	}
	if m[3] != "" {
		build := m[3]
		parsed.Build = &build
	}
	return parsed, nil
}

// String reassembles the filename the components were parsed from.
func (p Parsed) String() string {
	parts := make([]string, 0, 6)
	parts = append(parts, p.Project, p.Version)
	if p.Build != nil {
		parts = append(parts, *p.Build)
	}
	parts = append(parts,
		strings.Join(p.Python, "."),
		strings.Join(p.ABI, "."),
		strings.Join(p.Platform, "."))
	return strings.Join(parts, "-") + ".whl"
}

// CanonicalName normalizes a project name for comparison: runs of
// hyphens, underscores and dots collapse to a single hyphen and the
// result is lowercased.
func CanonicalName(name string) string {
	return strings.ToLower(nameSeparatorRegexp.ReplaceAllString(name, "-"))
}

// CanonicalVersion normalizes a version string for comparison.
// Underscores fold to hyphens and the result is lowercased; no further
// version arithmetic is attempted.
func CanonicalVersion(version string) string {
	return strings.ToLower(strings.ReplaceAll(version, "_", "-"))
}
