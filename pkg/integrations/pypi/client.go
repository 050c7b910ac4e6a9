package pypi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkgfoundry/wheelscan/pkg/cache"
	"github.com/pkgfoundry/wheelscan/pkg/integrations"
)

// Release holds the file listing for one version of a project on the index.
//
// Project names are normalized following PEP 503 (lowercase, separator runs
// collapsed to hyphens). Files preserve the order the index reported them in.
//
// Zero values: all string fields are empty, Files is nil. This struct is
// safe for concurrent reads after construction.
type Release struct {
	Project string // Normalized project name (e.g., "requests", never empty in valid releases)
	Version string // Release version string (e.g., "2.31.0", never empty in valid releases)
	Files   []File // Distribution files published for this release (nil or empty if none)
}

// File describes one distribution file of a release.
type File struct {
	Filename    string // Distribution filename (e.g., "requests-2.31.0-py3-none-any.whl")
	URL         string // Download URL
	SHA256      string // Hex SHA-256 digest advertised by the index (may be empty)
	Size        int64  // File size in bytes
	PackageType string // Distribution type ("bdist_wheel", "sdist", ...)
	Yanked      bool   // Whether the file has been yanked from the index
}

// Wheels returns the wheel files of the release, preserving index order.
func (r *Release) Wheels() []File {
	var wheels []File
	for _, f := range r.Files {
		if f.PackageType == "bdist_wheel" {
			wheels = append(wheels, f)
		}
	}
	return wheels
}

// PreferredWheel picks the wheel to fetch by default: the first pure
// py3-none-any wheel when one exists, otherwise the first wheel. Yanked
// wheels are skipped unless nothing else is available. Returns false when
// the release has no wheels at all.
func (r *Release) PreferredWheel() (File, bool) {
	wheels := r.Wheels()
	if len(wheels) == 0 {
		return File{}, false
	}

	first := -1
	for i, f := range wheels {
		if f.Yanked {
			continue
		}
		if strings.HasSuffix(f.Filename, "-py3-none-any.whl") {
			return f, true
		}
		if first == -1 {
			first = i
		}
	}
	if first == -1 {
		first = 0
	}
	return wheels[first], true
}

// Client provides access to the PyPI JSON API.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// DefaultBaseURL is the JSON API root of the public index.
const DefaultBaseURL = "https://pypi.org/pypi"

// NewClient creates a PyPI client with the given cache backend.
//
// Parameters:
//   - backend: Cache backend for API response caching (nil disables caching)
//   - cacheTTL: How long responses are cached (typical: 1-24 hours)
//
// The returned Client is safe for concurrent use.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return NewClientWithBase(backend, DefaultBaseURL, cacheTTL)
}

// NewClientWithBase creates a client against a non-default index API root,
// for self-hosted mirrors (devpi, Artifactory). An empty baseURL falls back
// to [DefaultBaseURL].
func NewClientWithBase(backend cache.Cache, baseURL string, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		Client:  integrations.NewClient(backend, "pypi", cacheTTL, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Release retrieves the file listing for a release of a project.
//
// The project name is normalized automatically. An empty version resolves to
// the latest release. If refresh is true, the cache is bypassed and a fresh
// API call is made.
//
// Returns:
//   - Release populated with the index's file listing on success
//   - [integrations.ErrNotFound] if the project or version doesn't exist
//   - [integrations.ErrTimeout] / [integrations.ErrRateLimited] /
//     [integrations.ErrNetwork] for HTTP failures
//   - Other errors for JSON decoding failures
//
// The returned Release pointer is never nil if err is nil.
func (c *Client) Release(ctx context.Context, project, version string, refresh bool) (*Release, error) {
	project = integrations.NormalizePkgName(project)

	url := fmt.Sprintf("%s/%s/json", c.baseURL, project)
	key := project
	if version != "" {
		url = fmt.Sprintf("%s/%s/%s/json", c.baseURL, project, version)
		key = project + "/" + version
	}

	var data apiResponse
	err := c.Cached(ctx, key, refresh, &data, func() error {
		return c.Get(ctx, url, &data)
	})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			ref := project
			if version != "" {
				ref += " " + version
			}
			return nil, fmt.Errorf("%w: pypi release %s", err, ref)
		}
		return nil, err
	}

	rel := &Release{
		Project: project,
		Version: data.Info.Version,
		Files:   make([]File, 0, len(data.URLs)),
	}
	if rel.Version == "" {
		rel.Version = version
	}
	for _, u := range data.URLs {
		rel.Files = append(rel.Files, File{
			Filename:    u.Filename,
			URL:         u.URL,
			SHA256:      u.Digests.SHA256,
			Size:        u.Size,
			PackageType: u.PackageType,
			Yanked:      u.Yanked,
		})
	}
	return rel, nil
}

// LatestVersion resolves the most recent release version of a project.
func (c *Client) LatestVersion(ctx context.Context, project string) (string, error) {
	rel, err := c.Release(ctx, project, "", false)
	if err != nil {
		return "", err
	}
	return rel.Version, nil
}

// Download streams a distribution file into w and returns the number of
// bytes copied. When the index advertised a SHA-256 digest for the file,
// the downloaded bytes are verified against it and a mismatch is an error.
// Downloads are never cached; cancel ctx to abort a stalled transfer.
func (c *Client) Download(ctx context.Context, file File, w io.Writer) (int64, error) {
	h := sha256.New()
	n, err := c.Client.Download(ctx, file.URL, io.MultiWriter(w, h))
	if err != nil {
		return n, err
	}

	if file.SHA256 != "" {
		sum := hex.EncodeToString(h.Sum(nil))
		if !strings.EqualFold(sum, file.SHA256) {
			return n, fmt.Errorf("digest mismatch for %s: index advertised sha256 %s, downloaded %s",
				file.Filename, file.SHA256, sum)
		}
	}
	return n, nil
}

type apiResponse struct {
	Info apiInfo  `json:"info"`
	URLs []apiURL `json:"urls"`
}

type apiInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type apiURL struct {
	Filename    string     `json:"filename"`
	URL         string     `json:"url"`
	Size        int64      `json:"size"`
	PackageType string     `json:"packagetype"`
	Yanked      bool       `json:"yanked"`
	Digests     apiDigests `json:"digests"`
}

type apiDigests struct {
	SHA256 string `json:"sha256"`
}
