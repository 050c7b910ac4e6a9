// Package verify checks a package's files against its RECORD manifest.
// Every outcome is reported as a finding; verification never aborts on
// a bad file.
package verify

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/digest"
	"github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/record"
	"github.com/pkgfoundry/wheelscan/pkg/wheel"
)

// Status classifies the outcome of checking one path.
type Status string

const (
	StatusVerified       Status = "verified"
	StatusDigestMismatch Status = "digest-mismatch"
	StatusSizeMismatch   Status = "size-mismatch"
	StatusNotInRecord    Status = "missing-from-record"
	StatusNotInPackage   Status = "missing-from-package"
	StatusUnverifiable   Status = "unverifiable-entry"
	StatusCaseMismatch   Status = "case-mismatch"
)

// Finding is the outcome of checking one path.
type Finding struct {
	Path   string `json:"path"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Options adjusts verification.
type Options struct {
	// Registry is the digest algorithm allowlist. Nil means
	// digest.Default().
	Registry *digest.Registry
}

// Tree checks every manifest row and every backend leaf, one finding
// per path. The RECORD's own digestless row and the RECORD signature
// files are exempt. Findings come back sorted by path, then status.
// The only errors are backend breakdown and context cancellation;
// per-file problems become findings.
func Tree(ctx context.Context, t wheel.Tree, rec *record.Record, opts Options) ([]Finding, error) {
	reg := opts.Registry
	if reg == nil {
		reg = digest.Default()
	}
	leaves, err := t.Leaves()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to list package files")
	}
	leafSet := make(map[string]bool, len(leaves))
	for _, leaf := range leaves {
		leafSet[leaf.Path()] = true
	}
	scopeBase, err := distInfoScopeBase(t)
	if err != nil {
		return nil, err
	}

	findings := []Finding{}
	for _, row := range rec.Rows() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if scopeBase != "" && !underScope(row.Path, scopeBase) {
			findings = append(findings, Finding{row.Path, StatusUnverifiable, "outside backend scope"})
			continue
		}
		if row.IsDir() {
			findings = append(findings, checkDirRow(t, row))
			continue
		}
		if row.Digest == nil {
			if record.IsRecordPath(row.Path) {
				continue
			}
			if !leafSet[row.Path] {
				findings = append(findings, Finding{row.Path, StatusNotInPackage, ""})
				continue
			}
			findings = append(findings, Finding{row.Path, StatusUnverifiable, "entry has no digest or size"})
			continue
		}
		if !leafSet[row.Path] {
			findings = append(findings, Finding{row.Path, StatusNotInPackage, ""})
			continue
		}
		f, err := checkFileRow(ctx, t, row, reg)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}

	for _, leaf := range leaves {
		path := leaf.Path()
		if _, listed := rec.Get(path); listed {
			continue
		}
		if record.IsSignaturePath(path) {
			continue
		}
		findings = append(findings, Finding{path, StatusNotInRecord, ""})
	}

	SortFindings(findings)
	return findings, nil
}

// SortFindings orders findings by path, then status. Tree returns its
// findings already sorted; callers that merge in findings of their own
// re-sort with this.
func SortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Status < findings[j].Status
	})
}

// File verifies a single opened leaf against its manifest row. Read
// failures surface as unverifiable findings unless the context is
// done, in which case the context error is returned.
func File(ctx context.Context, r io.Reader, row record.Row, reg *digest.Registry) (Finding, error) {
	if reg == nil {
		reg = digest.Default()
	}
	if row.Digest == nil || row.Size == nil {
		return Finding{row.Path, StatusUnverifiable, "entry has no digest or size"}, nil
	}
	sums, size, err := reg.Sum(ctx, r, row.Digest.Algorithm)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return Finding{}, cerr
		}
		if errors.Is(err, errors.ErrCodeUnsupportedAlgorithm) || errors.Is(err, errors.ErrCodeWeakAlgorithm) {
			return Finding{row.Path, StatusUnverifiable,
				fmt.Sprintf("unusable digest algorithm %s", row.Digest.Algorithm)}, nil
		}
		return Finding{row.Path, StatusUnverifiable, fmt.Sprintf("read error: %v", err)}, nil
	}
	if size != *row.Size {
		return Finding{row.Path, StatusSizeMismatch,
			fmt.Sprintf("size listed as %d in RECORD, actually %d", *row.Size, size)}, nil
	}
	actual := base64.RawURLEncoding.EncodeToString(sums[row.Digest.Algorithm])
	if actual != row.Digest.Value {
		return Finding{row.Path, StatusDigestMismatch,
			fmt.Sprintf("%s digest listed as %s in RECORD, actually %s",
				row.Digest.Algorithm, row.Digest.Value, actual)}, nil
	}
	return Finding{row.Path, StatusVerified, ""}, nil
}

func checkFileRow(ctx context.Context, t wheel.Tree, row record.Row, reg *digest.Registry) (Finding, error) {
	loc, err := wheel.ParseLocation(row.Path)
	if err != nil {
		return Finding{row.Path, StatusUnverifiable, "unusable manifest path"}, nil
	}
	rc, err := t.Open(loc)
	if err != nil {
		return Finding{row.Path, StatusUnverifiable, fmt.Sprintf("read error: %v", err)}, nil
	}
	defer rc.Close()
	return File(ctx, rc, row, reg)
}

func checkDirRow(t wheel.Tree, row record.Row) Finding {
	loc, err := wheel.ParseLocation(row.Path)
	if err != nil {
		return Finding{row.Path, StatusUnverifiable, "unusable manifest path"}
	}
	isDir, err := t.IsDir(loc)
	switch {
	case errors.Is(err, errors.ErrCodeNotFound):
		return Finding{row.Path, StatusNotInPackage, ""}
	case err != nil:
		return Finding{row.Path, StatusUnverifiable, fmt.Sprintf("read error: %v", err)}
	case !isDir:
		return Finding{row.Path, StatusNotInPackage, "recorded as a directory, found a file"}
	}
	return Finding{row.Path, StatusVerified, ""}
}

// distInfoScopeBase names the dist-info directory a metadata-only tree
// is rooted at. Full trees have no scope base.
func distInfoScopeBase(t wheel.Tree) (string, error) {
	if t.Scope() != wheel.ScopeDistInfo {
		return "", nil
	}
	kids, err := t.Children(wheel.Root)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "failed to list package root")
	}
	if len(kids) == 1 && kids[0].Dir {
		return kids[0].Loc.Name(), nil
	}
	return "", nil
}

func underScope(path, base string) bool {
	first, _, _ := strings.Cut(path, "/")
	return first == base
}
