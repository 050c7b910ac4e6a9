// Package pkg provides the core libraries for Wheelscan package inspection.
//
// # Overview
//
// Wheelscan takes a built Python distribution, either a wheel archive or an
// unpacked dist-info directory, and produces a structured validation report.
// The pkg directory is organized into four main areas:
//
//  1. Parsing - Wheel naming, RECORD, and dist-info metadata formats
//  2. Validation - Digest verification and report assembly
//  3. Infrastructure - Caching, report storage, HTTP retry, observability
//  4. Integrations - External API clients (PyPI)
//
// # Architecture
//
// The typical data flow through Wheelscan:
//
//	Wheel archive (.whl) or dist-info directory
//	         ↓
//	    [filename] package (parse identity from the name)
//	         ↓
//	    [wheel] package (open the tree, locate special dirs)
//	         ↓
//	    [record] + [metadata] packages (parse dist-info files)
//	         ↓
//	    [verify] package (check RECORD rows against contents)
//	         ↓
//	    [inspect] package (assemble report + derived checks)
//	         ↓
//	    JSON report (validated by [schema])
//
// # Quick Start
//
// Inspect a wheel and serialize the report:
//
//	import (
//	    "context"
//	    "github.com/pkgfoundry/wheelscan/pkg/inspect"
//	)
//
//	ins := inspect.New(inspect.Options{})
//	rep, err := ins.Inspect(context.Background(), "demo-1.0-py3-none-any.whl")
//	if err != nil {
//	    return err
//	}
//	data, err := inspect.MarshalReport(rep)
//
// # Main Packages
//
// ## Parsing
//
// [filename] - Wheel filename parsing and validation. Splits a .whl name into
// project, version, optional build tag, and the python/abi/platform tag sets.
//
// [record] - RECORD file parsing. Each row carries a path, an optional
// urlsafe-base64 digest, and an optional size.
//
// [metadata] - Dist-info file parsers for METADATA (core metadata fields and
// requirement specifiers), WHEEL, and entry_points.txt.
//
// [wheel] - Uniform tree access over both backends. ZipTree reads wheel
// archives, DirTree reads unpacked directories, and discovery helpers locate
// the .dist-info and .data directories.
//
// ## Validation
//
// [digest] - Registry of digest algorithms keyed by hashlib-style names
// (md5 through sha512, blake2b, blake2s). Registries can be restricted to an
// allowlist, and weak algorithms are flagged.
//
// [verify] - RECORD verification. Streams every tree entry, compares digests
// and sizes row by row, and reports per-path findings (verified, mismatch,
// missing, unverifiable).
//
// [inspect] - Orchestration. Runs the full pipeline over a tree, assembles
// the [inspect.Report], and computes derived checks (readme rendering,
// keyword splitting, declared dependencies and modules).
//
// [schema] - JSON Schema documents for the report formats plus validation of
// serialized reports against them.
//
// [describe] - Human-readable report rendering for the CLI, including the
// markdown summary shown after an inspection.
//
// ## Infrastructure
//
// [cache] - Content-keyed caches for reports and index responses. FileCache
// for the CLI, RedisCache for the server, MemoryCache (LRU) for tests and
// small deployments, NullCache to disable caching.
//
// [store] - Durable report storage. FileStore keeps JSON documents on disk,
// MongoStore backs the server's report endpoints.
//
// [httputil] - Shared HTTP plumbing: retry with exponential backoff and
// Retry-After support, plus response status classification.
//
// [errors] - Coded errors shared across packages. Codes map to exit codes in
// the CLI and HTTP statuses in the server.
//
// [observability] - Process-wide hooks for cache and inspection events.
//
// ## Integrations
//
// [integrations] - HTTP clients for package indexes, currently PyPI. The
// shared client core handles retries, rate limits, and JSON decoding.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/verify/...             # Specific package
//	go test -tags integration ./pkg/...  # Include integration tests
//
// [filename]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/filename
// [record]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/record
// [metadata]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/metadata
// [wheel]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/wheel
// [digest]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/digest
// [verify]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/verify
// [inspect]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/inspect
// [inspect.Report]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/inspect#Report
// [schema]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/schema
// [describe]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/describe
// [cache]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/cache
// [store]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/store
// [httputil]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/errors
// [observability]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/observability
// [integrations]: https://pkg.go.dev/github.com/pkgfoundry/wheelscan/pkg/integrations
package pkg
