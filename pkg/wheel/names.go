package wheel

import (
	"regexp"
	"strings"
)

// Suffixes of the two special top-level directories a wheel may carry.
const (
	DistInfoSuffix = ".dist-info"
	DataSuffix     = ".data"
)

// projectVersionPattern matches the <project>-<version> prefix shared by
// the *.dist-info and *.data directory names. The project half cannot
// contain a dash, so the first dash always separates the two.
const projectVersionPattern = `[A-Za-z0-9](?:[A-Za-z0-9._]*[A-Za-z0-9])?-[A-Za-z0-9_.!+]+`

var (
	distInfoDirRegexp = regexp.MustCompile(`^` + projectVersionPattern + regexp.QuoteMeta(DistInfoSuffix) + `$`)
	dataDirRegexp     = regexp.MustCompile(`^` + projectVersionPattern + regexp.QuoteMeta(DataSuffix) + `$`)
)

// IsDistInfoDir reports whether name is a well-formed
// <project>-<version>.dist-info directory name.
func IsDistInfoDir(name string) bool {
	return distInfoDirRegexp.MatchString(name)
}

// IsDataDir reports whether name is a well-formed
// <project>-<version>.data directory name.
func IsDataDir(name string) bool {
	return dataDirRegexp.MatchString(name)
}

// SplitSpecialDir splits a *.dist-info or *.data directory name into its
// project and version halves. The name must already have passed
// IsDistInfoDir or IsDataDir.
func SplitSpecialDir(name, suffix string) (project, version string) {
	base := strings.TrimSuffix(name, suffix)
	project, version, _ = strings.Cut(base, "-")
	return project, version
}
