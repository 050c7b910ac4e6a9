package inspect

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/pkgfoundry/wheelscan/pkg/digest"
)

// Options configures an Inspector.
type Options struct {
	// Registry limits the digest algorithms accepted during RECORD
	// parsing and file verification. Nil means digest.Default().
	Registry *digest.Registry

	// CaseSensitive promotes spelling drift between the wheel filename
	// and a special directory name from a case-mismatch finding to a
	// structural validation error.
	CaseSensitive bool

	// Logger receives per-phase progress. Nil discards it.
	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.Registry == nil {
		o.Registry = digest.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}
