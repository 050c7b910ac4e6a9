// Package digest maintains the registry of hash algorithms a RECORD file
// may reference and streams file contents through them. md5 and sha1 are
// recognized so they can fingerprint whole files, but they are refused
// for verification.
package digest

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha3"
	"crypto/sha512"
	"hash"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// chunkSize is the read size used when streaming file contents.
const chunkSize = 64 * 1024

// Algorithm describes one registered hash algorithm.
type Algorithm struct {
	Name string
	Size int // digest size in bytes
	New  func() hash.Hash
}

// EncodedLength returns the length of the algorithm's digest in unpadded
// url-safe base64.
func (a Algorithm) EncodedLength() int {
	return (a.Size*8 + 5) / 6
}

// Registry holds the known hash algorithms and the subset allowed for
// RECORD verification.
type Registry struct {
	known   map[string]Algorithm
	weak    map[string]bool
	allowed map[string]bool
}

// Default returns the standard registry: every fixed-size algorithm the
// Python hashlib module guarantees, with md5 and sha1 marked weak and
// everything else allowed for verification.
func Default() *Registry {
	algs := []Algorithm{
		{Name: "md5", Size: md5.Size, New: md5.New},
		{Name: "sha1", Size: sha1.Size, New: sha1.New},
		{Name: "sha224", Size: sha256.Size224, New: sha256.New224},
		{Name: "sha256", Size: sha256.Size, New: sha256.New},
		{Name: "sha384", Size: sha512.Size384, New: sha512.New384},
		{Name: "sha512", Size: sha512.Size, New: sha512.New},
		{Name: "sha3_224", Size: 28, New: func() hash.Hash { return sha3.New224() }},
		{Name: "sha3_256", Size: 32, New: func() hash.Hash { return sha3.New256() }},
		{Name: "sha3_384", Size: 48, New: func() hash.Hash { return sha3.New384() }},
		{Name: "sha3_512", Size: 64, New: func() hash.Hash { return sha3.New512() }},
		{Name: "blake2b", Size: 64, New: func() hash.Hash { h, _ := blake2b.New512(nil); return h }},
		{Name: "blake2s", Size: 32, New: func() hash.Hash { h, _ := blake2s.New256(nil); return h }},
	}
	r := &Registry{
		known:   make(map[string]Algorithm, len(algs)),
		weak:    map[string]bool{"md5": true, "sha1": true},
		allowed: make(map[string]bool, len(algs)),
	}
	for _, a := range algs {
		r.known[a.Name] = a
		if !r.weak[a.Name] {
			r.allowed[a.Name] = true
		}
	}
	return r
}

// Restrict returns a copy of the registry whose verification allowlist is
// narrowed to the given algorithms. Weak or unknown names are rejected.
func (r *Registry) Restrict(names ...string) (*Registry, error) {
	allowed := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(name)
		if _, err := r.Lookup(name); err != nil {
			return nil, err
		}
		allowed[name] = true
	}
	return &Registry{known: r.known, weak: r.weak, allowed: allowed}, nil
}

// Lookup resolves an algorithm for RECORD verification. Unknown names and
// names outside the allowlist are unsupported; md5 and sha1 are refused
// as weak.
func (r *Registry) Lookup(name string) (Algorithm, error) {
	name = strings.ToLower(name)
	a, ok := r.known[name]
	if !ok {
		return Algorithm{}, errors.New(errors.ErrCodeUnsupportedAlgorithm, "unknown digest algorithm %q", name)
	}
	if r.weak[name] {
		return Algorithm{}, errors.New(errors.ErrCodeWeakAlgorithm, "digest algorithm %q is too weak for verification", name)
	}
	if !r.allowed[name] {
		return Algorithm{}, errors.New(errors.ErrCodeUnsupportedAlgorithm, "digest algorithm %q is not enabled", name)
	}
	return a, nil
}

// Names returns the verification allowlist in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.allowed))
	for name := range r.allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sum streams rd once through the named algorithms and returns the raw
// digests keyed by algorithm name plus the number of bytes read. Weak
// algorithms are permitted here; Sum fingerprints, it does not verify.
func (r *Registry) Sum(ctx context.Context, rd io.Reader, names ...string) (map[string][]byte, int64, error) {
	hashers := make(map[string]hash.Hash, len(names))
	for _, name := range names {
		name = strings.ToLower(name)
		a, ok := r.known[name]
		if !ok {
			return nil, 0, errors.New(errors.ErrCodeUnsupportedAlgorithm, "unknown digest algorithm %q", name)
		}
		hashers[name] = a.New()
	}
	buf := make([]byte, chunkSize)
	var size int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		n, err := rd.Read(buf)
		if n > 0 {
			size += int64(n)
			for _, h := range hashers {
				h.Write(buf[:n])
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	sums := make(map[string][]byte, len(hashers))
	for name, h := range hashers {
		sums[name] = h.Sum(nil)
	}
	return sums, size, nil
}
