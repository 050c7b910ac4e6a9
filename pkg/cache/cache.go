// Package cache provides pluggable byte caches for index responses and
// inspection reports.
//
// # Architecture
//
// The [Cache] interface abstracts over storage backends:
//   - [FileCache]: Sharded JSON files on disk, for CLI usage
//   - [MemoryCache]: In-process LRU, the single-instance server default
//   - [RedisCache]: Redis-backed storage, for multi-instance server deployments
//   - [NullCache]: No-op storage, for tests and disabled caching
//
// Values are opaque byte slices; callers marshal and unmarshal. Entries carry
// a time-to-live and expired entries read as misses.
//
// # Keys
//
// Key construction is separated from storage via [Keyer], so that everything
// that affects a cached value is part of its key. The index client keys by
// namespace and request, the report cache by archive digest and the verify
// options that shaped the report:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ReportKey(sum, cache.ReportKeyOpts{CaseSensitive: true})
//
// # Usage
//
//	c, err := cache.NewFileCache(dir)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	if data, ok, err := c.Get(ctx, key); err == nil && ok {
//	    return data, nil
//	}
//	data := produce()
//	_ = c.Set(ctx, key, data, time.Hour)
package cache

import (
	"context"
	"time"
)

// Cache stores byte values under string keys with optional expiration.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and fresh; a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
