// Package pypi provides an HTTP client for the Python Package Index API.
//
// # Overview
//
// This package resolves releases and downloads distribution files from PyPI
// (https://pypi.org), the official repository for Python packages. It backs
// the fetch workflow: resolve a release, pick a wheel, download it, inspect
// it.
//
// # Usage
//
//	backend, err := cache.NewFileCache("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := pypi.NewClient(backend, 24*time.Hour)
//
//	rel, err := client.Release(ctx, "requests", "", false)  // "" = latest
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	wheel, ok := rel.PreferredWheel()
//	if !ok {
//	    log.Fatalf("%s %s publishes no wheels", rel.Project, rel.Version)
//	}
//	n, err := client.Download(ctx, wheel, out)
//
// # Release
//
// [Client.Release] returns a [Release] containing:
//
//   - Project, Version: Release identity (project name PEP 503 normalized)
//   - Files: Every distribution file with filename, URL, size, advertised
//     SHA-256 digest, and yanked status
//
// [Release.PreferredWheel] picks the wheel to fetch by default, preferring
// pure py3-none-any wheels and skipping yanked files.
//
// # Caching
//
// API responses are cached to reduce load on PyPI and speed up repeated
// requests. The cache TTL is set when creating the client. Pass refresh=true
// to [Client.Release] to bypass the cache. Downloads are never cached;
// [Client.Download] verifies the bytes against the digest the index
// advertised instead.
package pypi
