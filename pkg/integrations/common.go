package integrations

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pkgfoundry/wheelscan/pkg/filename"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a project or release doesn't exist on the index.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrTimeout is returned when a request exceeds the client timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrRateLimited is returned for 429 responses. The chain carries a
	// RateLimitedError from pkg/errors holding the Retry-After value when
	// the index sent one.
	ErrRateLimited = errors.New("rate limited")
)

// NewHTTPClient creates an HTTP client with a standard timeout for index
// API requests. Downloads use a separate client without a timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NormalizePkgName converts a project name to its canonical form.
// Applies the PEP 503 normalization rules used by PyPI: lowercase, with
// runs of ".", "-" and "_" collapsed to a single hyphen.
func NormalizePkgName(name string) string {
	return filename.CanonicalName(strings.TrimSpace(name))
}
