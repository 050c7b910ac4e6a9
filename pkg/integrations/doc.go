// Package integrations provides HTTP clients for package index APIs.
//
// # Overview
//
// This package contains the shared plumbing for talking to package indexes.
// Each index has its own subpackage:
//
//   - [pypi]: Python Package Index
//
// # Client Pattern
//
// Index clients follow a consistent pattern:
//
//	backend, err := cache.NewFileCache("")
//	client := pypi.NewClient(backend, 24*time.Hour)
//	rel, err := client.Release(ctx, "requests", "", false)  // false = use cache
//
// Clients handle:
//   - HTTP requests with retry for transient failures
//   - Response caching via [cache.Cache] with a configurable TTL
//   - API-specific parsing and name normalization
//
// # Shared Infrastructure
//
// The [Client] type provides the shared HTTP functionality used by index
// clients: JSON GET with default headers, cached fetches keyed per
// namespace, and uncached streaming downloads.
//
// # Errors
//
// Lookup failures surface as [ErrNotFound]. Timeouts surface as
// [ErrTimeout], 429 responses as [ErrRateLimited], and other transport
// failures or unexpected statuses as [ErrNetwork]. Transient failures
// (connection errors, timeouts, 5xx, 429) are retried with exponential
// backoff before any of these is returned.
//
// [pypi]: github.com/pkgfoundry/wheelscan/pkg/integrations/pypi
// [cache.Cache]: github.com/pkgfoundry/wheelscan/pkg/cache.Cache
package integrations
