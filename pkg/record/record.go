// Package record parses RECORD manifests, the CSV file listing every
// path a wheel installs together with its digest and size.
package record

import (
	"encoding/base64"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/digest"
	"github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/wheel"
)

// Digest is a RECORD digest reference.
type Digest struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"digest"` // unpadded url-safe base64
}

// Row is a single RECORD entry. Directory rows keep their trailing slash
// and never carry a digest or size.
type Row struct {
	Path   string  `json:"path"`
	Digest *Digest `json:"digest"`
	Size   *int64  `json:"size"`
}

// IsDir reports whether the row records a directory.
func (r Row) IsDir() bool {
	return strings.HasSuffix(r.Path, "/")
}

// Record is a parsed RECORD manifest.
type Record struct {
	rows   []Row
	byPath map[string]int
	dirs   map[string]bool // explicit dir rows and implied parents, without trailing slash
}

// Options adjusts parsing.
type Options struct {
	// Registry is the digest algorithm allowlist. Nil means
	// digest.Default().
	Registry *digest.Registry
}

// Parse reads a RECORD manifest with the default digest registry.
func Parse(r io.Reader) (*Record, error) {
	return ParseWithOptions(r, Options{})
}

// ParseWithOptions reads a RECORD manifest. Malformed rows abort parsing
// with a MALFORMED_RECORD error naming the 1-based row. Byte-identical
// duplicate rows collapse; any other duplicate for the same path is a
// conflict. Empty input yields an empty Record.
func ParseWithOptions(r io.Reader, opts Options) (*Record, error) {
	reg := opts.Registry
	if reg == nil {
		reg = digest.Default()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rec := &Record{
		byPath: make(map[string]int),
		dirs:   make(map[string]bool),
	}
	rowNum := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedRecord, err, "RECORD is not well-formed CSV")
		}
		rowNum++
		row, err := parseRow(fields, reg, rowNum)
		if err != nil {
			return nil, err
		}
		if err := rec.insert(row, rowNum); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Rows returns the entries in file order, duplicates collapsed.
func (rec *Record) Rows() []Row {
	out := make([]Row, len(rec.rows))
	copy(out, rec.rows)
	return out
}

// Len returns the number of distinct entries.
func (rec *Record) Len() int {
	return len(rec.rows)
}

// Get returns the row recorded for the exact path string, trailing slash
// included for directory rows.
func (rec *Record) Get(path string) (Row, bool) {
	i, ok := rec.byPath[path]
	if !ok {
		return Row{}, false
	}
	return rec.rows[i], true
}

// HasDir reports whether path is a directory according to the manifest,
// either through an explicit directory row or as an implied parent of a
// recorded file. A trailing slash on path is optional.
func (rec *Record) HasDir(path string) bool {
	bare := strings.TrimSuffix(path, "/")
	if bare == "" {
		return true
	}
	return rec.dirs[bare]
}

func parseRow(fields []string, reg *digest.Registry, rowNum int) (Row, error) {
	if len(fields) != 3 {
		name := ""
		if len(fields) > 0 {
			name = fields[0]
		}
		return Row{}, errors.New(errors.ErrCodeMalformedRecord,
			"row %d (%q): expected 3 fields, got %d", rowNum, name, len(fields))
	}
	path, algDigest, sizeText := fields[0], fields[1], fields[2]
	if _, err := wheel.ParseLocation(path); err != nil {
		return Row{}, errors.Wrap(errors.ErrCodeMalformedRecord, err,
			"row %d: invalid path %q", rowNum, path)
	}

	var dig *Digest
	if algDigest != "" {
		alg, value, ok := strings.Cut(algDigest, "=")
		if !ok {
			return Row{}, errors.New(errors.ErrCodeMalformedRecord,
				"row %d (%s): digest %q is not in alg=digest form", rowNum, path, algDigest)
		}
		alg = strings.ToLower(alg)
		a, err := reg.Lookup(alg)
		if err != nil {
			return Row{}, errors.Wrap(errors.ErrCodeMalformedRecord, err,
				"row %d (%s): unusable digest algorithm", rowNum, path)
		}
		if len(value) != a.EncodedLength() {
			return Row{}, errors.New(errors.ErrCodeMalformedRecord,
				"row %d (%s): %s digest has length %d, want %d", rowNum, path, alg, len(value), a.EncodedLength())
		}
		if _, err := base64.RawURLEncoding.DecodeString(value); err != nil {
			return Row{}, errors.New(errors.ErrCodeMalformedRecord,
				"row %d (%s): digest %q is not unpadded url-safe base64", rowNum, path, value)
		}
		dig = &Digest{Algorithm: alg, Value: value}
	}

	var size *int64
	if sizeText != "" {
		n, err := strconv.ParseInt(sizeText, 10, 64)
		if err != nil || n < 0 {
			return Row{}, errors.New(errors.ErrCodeMalformedRecord,
				"row %d (%s): invalid size %q", rowNum, path, sizeText)
		}
		size = &n
	}

	if strings.HasSuffix(path, "/") && (dig != nil || size != nil) {
		return Row{}, errors.New(errors.ErrCodeMalformedRecord,
			"row %d (%s): directory rows cannot carry a digest or size", rowNum, path)
	}
	if dig == nil && size != nil {
		return Row{}, errors.New(errors.ErrCodeMalformedRecord,
			"row %d (%s): size without digest", rowNum, path)
	}
	if dig != nil && size == nil {
		return Row{}, errors.New(errors.ErrCodeMalformedRecord,
			"row %d (%s): digest without size", rowNum, path)
	}
	return Row{Path: path, Digest: dig, Size: size}, nil
}

func (rec *Record) insert(row Row, rowNum int) error {
	bare := strings.TrimSuffix(row.Path, "/")

	// A path recorded as a file cannot also serve as a directory.
	for p := parentOf(bare); p != ""; p = parentOf(p) {
		if i, ok := rec.byPath[p]; ok && !rec.rows[i].IsDir() {
			return errors.New(errors.ErrCodeMalformedRecord,
				"row %d (%s): %q is recorded as both a file and a directory", rowNum, row.Path, p)
		}
	}
	if !row.IsDir() && rec.dirs[bare] {
		return errors.New(errors.ErrCodeMalformedRecord,
			"row %d (%s): path is recorded as both a file and a directory", rowNum, row.Path)
	}
	if row.IsDir() {
		if i, ok := rec.byPath[bare]; ok && !rec.rows[i].IsDir() {
			return errors.New(errors.ErrCodeMalformedRecord,
				"row %d (%s): path is recorded as both a file and a directory", rowNum, row.Path)
		}
	}

	if i, ok := rec.byPath[row.Path]; ok {
		if !sameRow(rec.rows[i], row) {
			return errors.New(errors.ErrCodeMalformedRecord,
				"row %d (%s): duplicate entry with conflicting data", rowNum, row.Path)
		}
		return nil
	}

	rec.byPath[row.Path] = len(rec.rows)
	rec.rows = append(rec.rows, row)
	if row.IsDir() {
		rec.dirs[bare] = true
	}
	for p := parentOf(bare); p != ""; p = parentOf(p) {
		rec.dirs[p] = true
	}
	return nil
}

func sameRow(a, b Row) bool {
	if a.Path != b.Path {
		return false
	}
	switch {
	case a.Digest == nil && b.Digest != nil, a.Digest != nil && b.Digest == nil:
		return false
	case a.Digest != nil && *a.Digest != *b.Digest:
		return false
	}
	switch {
	case a.Size == nil && b.Size != nil, a.Size != nil && b.Size == nil:
		return false
	case a.Size != nil && *a.Size != *b.Size:
		return false
	}
	return true
}

func parentOf(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}
