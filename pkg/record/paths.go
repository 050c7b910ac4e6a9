package record

import (
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/wheel"
)

// IsRecordPath reports whether path names the RECORD file of a
// *.dist-info directory. The RECORD cannot carry its own digest, so its
// row is exempt from the null-entry rules.
func IsRecordPath(path string) bool {
	pre, post, ok := strings.Cut(path, "/")
	return ok && wheel.IsDistInfoDir(pre) && post == "RECORD"
}

// IsSignaturePath reports whether path names a RECORD signature file.
// Signature files live next to the RECORD but are never listed in it.
func IsSignaturePath(path string) bool {
	pre, post, ok := strings.Cut(path, "/")
	if !ok || !wheel.IsDistInfoDir(pre) {
		return false
	}
	return post == "RECORD.jws" || post == "RECORD.p7s"
}
